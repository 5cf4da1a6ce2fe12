// Package gemini is an LLM-assisted relevance scorer. It asks Gemini how well
// a repository demonstrates a job requirement and blends that judgement into
// the deterministic score.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github-cv-curator/internal/adapter/scorer"
	"github-cv-curator/internal/common"
	"github-cv-curator/internal/domain"
	"github-cv-curator/internal/logger"
)

const (
	DefaultModel = "gemini-2.5-flash-lite"
	DefaultBlend = 0.5

	readmeExcerptRunes = 1500
	maxLogLength       = 300
)

// generator is the slice of *genai.GenerativeModel the scorer needs.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Scorer implements port.Scorer on top of the deterministic scorer.
type Scorer struct {
	client    *genai.Client
	model     generator
	base      *scorer.Scorer
	blend     float64
	retryOpts []common.Option
	logger    *zap.Logger
}

// 定义一个内部结构体来接收 AI 返回的 JSON
type aiResponse struct {
	Relevance float64 `json:"relevance"`
	Reason    string  `json:"reason"`
}

// NewScorer connects to Gemini. blend is the share of the final score taken
// from the LLM judgement, in [0,1].
func NewScorer(ctx context.Context, apiKey, modelName string, base *scorer.Scorer, blend float64, log *zap.Logger) (*Scorer, error) {
	if base == nil {
		return nil, common.NewError(common.ErrCodeInvalidInput, "gemini scorer needs a deterministic base scorer")
	}
	if blend < 0 || blend > 1 || math.IsNaN(blend) {
		return nil, common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("gemini blend must be within [0,1], got %v", blend))
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeAIProcessing, "create gemini client", err)
	}

	model := client.GenerativeModel(modelName)
	// 强制要求返回 JSON，降低解析错误的概率
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0)

	s := newScorer(model, base, blend, log)
	s.client = client
	return s, nil
}

func newScorer(model generator, base *scorer.Scorer, blend float64, log *zap.Logger) *Scorer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scorer{
		model: model,
		base:  base,
		blend: blend,
		retryOpts: []common.Option{
			common.WithMaxRetries(2),
			common.WithInitialDelay(time.Second),
		},
		logger: log,
	}
}

// Close releases the underlying client.
func (s *Scorer) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Name identifies the scoring strategy.
func (s *Scorer) Name() string { return "gemini" }

// Score starts from the deterministic evaluation. When Gemini answers, every
// deterministic contribution is scaled by (1-blend) and the LLM judgement adds
// blend*relevance under domain.FactorLLM, so the breakdown still sums to the
// score. When Gemini fails the deterministic result is returned unchanged.
func (s *Scorer) Score(ctx context.Context, fact domain.RepositoryFact, req domain.JobRequirement) (domain.ScoredRepository, error) {
	res, err := s.base.Score(ctx, fact, req)
	if err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	judgement, err := s.judge(ctx, fact, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		s.logger.Warn("gemini judgement unavailable, using deterministic score",
			zap.String("repo_id", fact.ID), zap.Error(err))
		return res, nil
	}

	s.logger.Debug("gemini judgement",
		zap.String("repo_id", fact.ID),
		zap.Float64("relevance", judgement.Relevance),
		zap.String("reason", logger.TruncateForLog(judgement.Reason, maxLogLength)))

	return blendScore(res, judgement.Relevance, s.blend), nil
}

func blendScore(res domain.ScoredRepository, relevance, blend float64) domain.ScoredRepository {
	breakdown := make(map[string]float64, len(res.Breakdown)+1)
	for name, v := range res.Breakdown {
		breakdown[name] = v * (1 - blend)
	}
	breakdown[domain.FactorLLM] = relevance * blend

	factors := make(map[string]float64, len(res.Factors)+1)
	for name, v := range res.Factors {
		factors[name] = v
	}
	factors[domain.FactorLLM] = relevance / domain.MaxScore

	var total float64
	for _, name := range domain.FactorOrder {
		total += breakdown[name]
	}

	res.Breakdown = breakdown
	res.Factors = factors
	res.Score = math.Max(0, math.Min(domain.MaxScore, total))
	return res
}

func (s *Scorer) judge(ctx context.Context, fact domain.RepositoryFact, req domain.JobRequirement) (*aiResponse, error) {
	prompt := buildPrompt(fact, req)

	var raw string
	err := common.Do(ctx, func() error {
		resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return err
		}
		text, err := responseText(resp)
		if err != nil {
			return common.Permanent(err)
		}
		raw = text
		return nil
	}, s.retryOpts...)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeAIProcessing, fmt.Sprintf("gemini call for %s", fact.ID), err)
	}

	res, err := parseAIResponse(raw)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeAIProcessing,
			fmt.Sprintf("gemini answer for %s: %s", fact.ID, logger.TruncateForLog(raw, maxLogLength)), err)
	}
	return res, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("AI 返回内容为空")
	}
	var b strings.Builder
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", errors.New("AI 返回内容为空")
	}
	return b.String(), nil
}

func buildPrompt(fact domain.RepositoryFact, req domain.JobRequirement) string {
	langs := fact.LanguageNames()
	sort.Strings(langs)

	var b strings.Builder
	b.WriteString("You are reviewing a candidate's GitHub repository for a job application.\n")
	b.WriteString("Rate how convincingly the repository demonstrates the job requirement.\n\n")

	b.WriteString("Job requirement:\n")
	fmt.Fprintf(&b, "- required skills: %s\n", orNone(req.RequiredSkills))
	fmt.Fprintf(&b, "- preferred skills: %s\n", orNone(req.PreferredSkills))
	fmt.Fprintf(&b, "- seniority: %s\n", req.Seniority)
	fmt.Fprintf(&b, "- domains: %s\n\n", orNone(req.DomainTags))

	b.WriteString("Repository:\n")
	fmt.Fprintf(&b, "- id: %s\n", fact.ID)
	fmt.Fprintf(&b, "- description: %s\n", fact.Description)
	fmt.Fprintf(&b, "- languages: %s\n", orNone(langs))
	fmt.Fprintf(&b, "- topics: %s\n", orNone(fact.Topics))
	fmt.Fprintf(&b, "- stars: %d, forks: %d\n", fact.Stars, fact.Forks)
	fmt.Fprintf(&b, "- README excerpt:\n%s\n\n", logger.TruncateForLog(fact.ReadmeText, readmeExcerptRunes))

	b.WriteString(`Reply with JSON only: {"relevance": <number 0-10>, "reason": "<one sentence>"}`)
	return b.String()
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

// parseAIResponse 智能寻找 JSON 的起止位置
// 即使 AI 返回 "```json { ... } ```"，也能抠出中间的 { ... }
func parseAIResponse(raw string) (*aiResponse, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return nil, errors.New("no JSON object in answer")
	}

	var res aiResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &res); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}
	if math.IsNaN(res.Relevance) || res.Relevance < 0 || res.Relevance > domain.MaxScore {
		return nil, fmt.Errorf("relevance %v outside [0,10]", res.Relevance)
	}
	return &res, nil
}
