// Package scorer turns collected signals into structured analyses via the
// Anthropic API. Responses are prefilled to start a JSON array and validated
// against an embedded schema before anything reaches the trackers.
package scorer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/initial69/Automatic-Pipeline/internal/model"
)

const (
	maxResponseTokens = 4096
	maxAttempts       = 3
	retryBaseDelay    = 2 * time.Second
)

// Anthropic scores signals with Claude. Multiple API keys rotate on auth and
// rate-limit errors so one exhausted key does not stall the run.
type Anthropic struct {
	clients []anthropic.Client
	model   string
	current int
	logger  zerolog.Logger
}

func NewAnthropic(apiKeys []string, modelName string, logger zerolog.Logger) (*Anthropic, error) {
	if len(apiKeys) == 0 {
		return nil, fmt.Errorf("at least one Anthropic API key is required")
	}

	clients := make([]anthropic.Client, 0, len(apiKeys))
	for _, key := range apiKeys {
		clients = append(clients, anthropic.NewClient(option.WithAPIKey(key)))
	}
	return &Anthropic{
		clients: clients,
		model:   modelName,
		logger:  logger,
	}, nil
}

// Score sends the batch in one request. On a retriable failure it rotates to
// the next key and backs off; the error of the final attempt is returned.
func (s *Anthropic) Score(ctx context.Context, signals []model.Signal) ([]model.Analysis, error) {
	if len(signals) == 0 {
		return nil, nil
	}

	prompt := buildPrompt(signals)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			s.logger.Warn().
				Err(lastErr).
				Int("attempt", attempt+1).
				Dur("backoff", delay).
				Msg("scoring retry")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		analyses, err := s.scoreOnce(ctx, prompt)
		if err == nil {
			return analyses, nil
		}
		lastErr = err

		if rotatable(err) && len(s.clients) > 1 {
			s.current = (s.current + 1) % len(s.clients)
			s.logger.Warn().Int("key_index", s.current).Msg("rotated to next API key")
		}
	}
	return nil, fmt.Errorf("scoring failed after %d attempts: %w", maxAttempts, lastErr)
}

func (s *Anthropic) scoreOnce(ctx context.Context, prompt string) ([]model.Analysis, error) {
	client := s.clients[s.current]

	// Prefill the assistant turn with "[" so the response continues as a
	// bare JSON array.
	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: maxResponseTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock("[")),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic call failed: %w", err)
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return nil, fmt.Errorf("model returned empty response")
	}

	return ParseAnalyses([]byte(extractJSON(restorePrefill(responseText))))
}

// restorePrefill reattaches the prefilled "[" the response is expected to
// continue from. Some responses restart with a complete array instead of
// continuing; prepending unconditionally would produce unbalanced JSON.
func restorePrefill(responseText string) string {
	trimmed := strings.TrimSpace(responseText)
	if strings.HasPrefix(trimmed, "[") {
		return trimmed
	}
	return "[" + trimmed
}

// rotatable reports whether the failure is tied to the current key rather
// than the request itself.
func rotatable(err error) bool {
	var apierr *anthropic.Error
	if !errors.As(err, &apierr) {
		return false
	}
	switch apierr.StatusCode {
	case 401, 403, 429, 529:
		return true
	}
	return false
}
