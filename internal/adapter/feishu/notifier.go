package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github-cv-curator/internal/common"
	"github-cv-curator/internal/domain"
)

const maxGapsInCard = 5

type Notifier struct {
	webhookURL string
	client     *http.Client
	retryOpts  []common.Option
	logger     *zap.Logger
}

func NewNotifier(webhook string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if webhook == "" {
		logger.Warn("飞书 Webhook 为空，推送功能将无法工作")
	}
	return &Notifier{
		webhookURL: webhook,
		client:     &http.Client{Timeout: 10 * time.Second},
		retryOpts: []common.Option{
			common.WithMaxRetries(3),
			common.WithInitialDelay(500 * time.Millisecond),
		},
		logger: logger,
	}
}

// NotifyRun 发送飞书卡片消息 (Schema 2.0): selected projects and the top skill gaps.
func (n *Notifier) NotifyRun(ctx context.Context, report *domain.RunReport) error {
	if n.webhookURL == "" {
		return common.NewError(common.ErrCodeNotification, "Webhook URL 为空")
	}

	body, err := json.Marshal(buildCard(report))
	if err != nil {
		return common.WrapError(common.ErrCodeNotification, "encode card", err)
	}

	err = common.Do(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
		if reqErr != nil {
			return common.Permanent(reqErr)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, postErr := n.client.Do(req)
		if postErr != nil {
			return postErr
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("飞书 API 报错: 状态码 %d", resp.StatusCode)
		}
		return nil
	}, n.retryOpts...)
	if err != nil {
		return common.WrapError(common.ErrCodeNotification, "发送请求失败", err)
	}

	n.logger.Info("run summary pushed", zap.String("username", report.Username), zap.Int("projects", report.Selection.Len()))
	return nil
}

func buildCard(report *domain.RunReport) map[string]interface{} {
	title := fmt.Sprintf("📄 CV 项目精选: %s", report.Username)

	var md strings.Builder
	if report.Selection.Len() == 0 {
		md.WriteString("**没有可推荐的项目**\n")
	}
	for _, e := range report.Selection.Entries {
		fmt.Fprintf(&md, "**%d. [%s](%s)**  |  **⭐ Score:** %.1f/10\n%s\n\n",
			e.Rank, e.Repository.ID(), e.Repository.Fact.URL, e.Repository.Score, e.Justification)
	}

	if len(report.Gaps) > 0 {
		md.WriteString("**🧭 技能缺口:**\n")
		for i, g := range report.Gaps {
			if i == maxGapsInCard {
				fmt.Fprintf(&md, "- … 以及另外 %d 项\n", len(report.Gaps)-maxGapsInCard)
				break
			}
			fmt.Fprintf(&md, "- %s (%s)\n", g.Skill, g.Importance)
		}
	}

	elements := []map[string]interface{}{
		{
			"tag":       "markdown",
			"content":   md.String(),
			"text_size": "normal",
		},
	}
	if report.Selection.Len() > 0 {
		elements = append(elements, map[string]interface{}{
			"tag": "button",
			"text": map[string]interface{}{
				"tag":     "plain_text",
				"content": "🔗 查看 GitHub 主页",
			},
			"type": "primary",
			"behaviors": []map[string]interface{}{
				{
					"type":        "open_url",
					"default_url": "https://github.com/" + report.Username,
				},
			},
		})
	}

	return map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"schema": "2.0",
			"config": map[string]interface{}{
				"update_multi": true,
			},
			"header": map[string]interface{}{
				"title": map[string]interface{}{
					"tag":     "plain_text",
					"content": title,
				},
				"template": "blue",
			},
			"body": map[string]interface{}{
				"direction": "vertical",
				"elements":  elements,
			},
		},
	}
}
