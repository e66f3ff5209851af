package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrEmptyResponse is returned when a model answers with nothing.
var ErrEmptyResponse = errors.New("empty model response")

// RetryClient retries failed generations with exponential backoff.
type RetryClient struct {
	Client   LLMClient
	Attempts int
	// Interval is the wait before the first retry.
	Interval time.Duration
	Logger   *slog.Logger
}

func NewRetryClient(c LLMClient, attempts int, logger *slog.Logger) *RetryClient {
	return &RetryClient{
		Client:   c,
		Attempts: attempts,
		Interval: time.Second,
		Logger:   logger,
	}
}

func (r *RetryClient) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	attempt := 0
	op := func() error {
		attempt++
		resp, err := r.Client.Generate(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		if strings.TrimSpace(resp) == "" {
			return ErrEmptyResponse
		}
		out = resp
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.Interval
	var b backoff.BackOff = eb
	if r.Attempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(r.Attempts-1))
	}
	notify := func(err error, wait time.Duration) {
		if r.Logger != nil {
			r.Logger.Warn("llm call failed, retrying", "attempt", attempt, "wait", wait.String(), "error", err)
		}
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return "", fmt.Errorf("failed to generate after %d attempts: %w", attempt, err)
	}
	return out, nil
}
