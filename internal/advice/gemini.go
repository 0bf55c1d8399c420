package advice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"

	"balansim/internal/core"
)

const promptTemplate = `User's financial data:
- Total income: %s
- Total expenses: %s
- Current balance: %s
- Number of recorded transactions: %d

Based on this data, give the user a short, motivating and practical piece of advice in 2-3 sentences.`

// GeminiAdvisor asks a Gemini model for advice over the public REST API.
type GeminiAdvisor struct {
	svc     *generativelanguage.Service
	model   string
	timeout time.Duration
}

// NewGeminiAdvisor returns Static(MissingKeyAdvice) when apiKey is empty, so
// callers never have to special-case a missing key.
func NewGeminiAdvisor(ctx context.Context, apiKey, model string, timeout time.Duration, opts ...option.ClientOption) (Advisor, error) {
	if strings.TrimSpace(apiKey) == "" {
		return Static(MissingKeyAdvice), nil
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := generativelanguage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create generative language client: %w", err)
	}
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	return &GeminiAdvisor{svc: svc, model: model, timeout: timeout}, nil
}

func buildPrompt(s Summary) string {
	return fmt.Sprintf(promptTemplate, s.Income, s.Expense, s.Balance, s.TransactionCount)
}

// Advise implements Advisor.
func (g *GeminiAdvisor) Advise(ctx context.Context, s Summary) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req := &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{{
			Role:  "user",
			Parts: []*generativelanguage.Part{{Text: buildPrompt(s)}},
		}},
	}
	resp, err := g.svc.Models.GenerateContent(g.model, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: generate content: %w", core.ErrExternalService, err)
	}

	var b strings.Builder
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil {
				b.WriteString(p.Text)
			}
		}
		break // first usable candidate only
	}
	return strings.TrimSpace(b.String()), nil
}
