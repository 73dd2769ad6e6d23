// Package llm wraps the text-completion providers used to pick and describe
// styles.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// CompletionRequest is one system+user exchange. JSON asks the provider for a
// JSON-only answer when it supports that mode.
type CompletionRequest struct {
	System      string
	User        string
	JSON        bool
	Temperature float64
}

// CompletionClient returns the raw text answer of a model.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ClientFunc adapts a function into a CompletionClient.
type ClientFunc func(ctx context.Context, req CompletionRequest) (string, error)

func (f ClientFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}

// ErrEmptyCompletion reports a provider answer without any text.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// Fallback tries each client in order and returns the first non-empty answer.
type Fallback []CompletionClient

func (c Fallback) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if len(c) == 0 {
		return "", fmt.Errorf("llm: no provider configured")
	}
	var errs []error
	for _, client := range c {
		if client == nil {
			continue
		}
		text, err := client.Complete(ctx, req)
		if err == nil && text != "" {
			return text, nil
		}
		if err == nil {
			err = ErrEmptyCompletion
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", errors.Join(errs...)
}

var _ CompletionClient = Fallback(nil)
