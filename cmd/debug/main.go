package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github-cv-curator/internal/adapter/analyzer"
	"github-cv-curator/internal/adapter/extractor"
	"github-cv-curator/internal/adapter/github"
	"github-cv-curator/internal/adapter/output"
	"github-cv-curator/internal/adapter/scorer"
	"github-cv-curator/internal/logger"
)

// 调试工具：抓取一个用户的全部仓库，打印每个仓库的评分明细
//
//	go run ./cmd/debug <username> "<job description>"
func main() {
	if len(os.Args) < 3 {
		fmt.Println("用法: debug <username> \"<job description>\"")
		os.Exit(2)
	}
	username, jobText := os.Args[1], os.Args[2]

	_ = godotenv.Load()
	githubToken := os.Getenv("GITHUB_TOKEN")

	zl, err := logger.New(false, true)
	if err != nil {
		log.Fatalf("❌ 日志初始化失败: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	requirement, err := extractor.NewRequirementExtractor(nil).Extract(jobText)
	if err != nil {
		log.Fatalf("❌ 职位描述解析失败: %v", err)
	}
	fmt.Printf("🎯 required=%v preferred=%v seniority=%s domains=%v\n",
		requirement.RequiredSkills, requirement.PreferredSkills, requirement.Seniority, requirement.DomainTags)

	// 1. 抓取仓库
	fetcher := github.NewFetcher(github.NewClient(githubToken), 4, zl)
	fmt.Printf("📥 正在抓取 %s 的仓库...\n", username)
	raws, err := fetcher.ListUserRepos(ctx, username, 100)
	if err != nil {
		log.Fatalf("❌ 获取仓库失败: %v", err)
	}

	// 2. 提取事实
	batch := extractor.NewFactExtractor().ExtractAll(raws)
	fmt.Printf("✅ 成功提取 %d 个仓库，跳过 %d 个\n", len(batch.Facts), len(batch.Failures))
	for _, f := range batch.Failures {
		fmt.Printf("  ⚠️ %s: %s\n", f.ID, f.Reason)
	}
	if len(batch.Facts) == 0 {
		fmt.Println("❌ 没有可评分的仓库")
		return
	}

	// 3. 评分
	sc, err := scorer.New(nil, scorer.DefaultWeights())
	if err != nil {
		log.Fatalf("❌ 评分器初始化失败: %v", err)
	}
	scored, failures, err := analyzer.NewRepoAnalyzer(sc, zl).ScoreAll(ctx, batch.Facts, requirement)
	if err != nil {
		log.Fatalf("❌ 评分失败: %v", err)
	}
	for _, f := range failures {
		fmt.Printf("  ⚠️ %s: %s\n", f.ID, f.Reason)
	}

	fmt.Println("\n================ [ 评分明细 ] ================")
	if err := output.NewConsoleWriter(os.Stdout, true).PrintScored(scored); err != nil {
		log.Fatalf("❌ 输出失败: %v", err)
	}
	for _, r := range scored {
		fmt.Printf("%s skills=%v matched=%v/%v\n", r.ID(), r.Skills, r.MatchedRequired, r.MatchedPreferred)
	}
}
