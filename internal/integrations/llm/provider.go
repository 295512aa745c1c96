package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
)

// ErrUnavailable marks a provider that could not be reached at all. The
// chain moves on to the next provider when it sees it.
var ErrUnavailable = errors.New("llm provider unavailable")

// Request is a single non-streaming completion.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	JSON        bool
}

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Provider is one model backend.
type Provider interface {
	// Name is the model identifier reported with each classification.
	Name() string
	Complete(ctx context.Context, req Request) (Response, error)
}

// Outcome tells the caller how a chain call ended.
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeUnavailable means no provider is configured or none of the
	// configured ones could be reached.
	OutcomeUnavailable
	// OutcomeFailed means a provider was reached and the call failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Chain tries providers in order. The first provider that answers wins; a
// provider failure other than ErrUnavailable stops the chain.
type Chain struct {
	providers []Provider
}

func NewChain(providers ...Provider) *Chain {
	var ps []Provider
	for _, p := range providers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return &Chain{providers: ps}
}

// Empty reports whether no provider is configured.
func (c *Chain) Empty() bool {
	return c == nil || len(c.providers) == 0
}

// Names lists the configured providers in order.
func (c *Chain) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

func (c *Chain) Complete(ctx context.Context, req Request) (Response, Outcome, error) {
	if c.Empty() {
		return Response{}, OutcomeUnavailable, ErrUnavailable
	}
	var lastErr error
	for _, p := range c.providers {
		resp, err := p.Complete(ctx, req)
		if err == nil {
			if resp.Model == "" {
				resp.Model = p.Name()
			}
			return resp, OutcomeOK, nil
		}
		if !isUnavailable(err) {
			return Response{}, OutcomeFailed, err
		}
		slog.Warn("llm provider unavailable, trying next", "provider", p.Name(), "error", err)
		lastErr = err
	}
	return Response{}, OutcomeUnavailable, lastErr
}

// isUnavailable reports connection failures. A deadline hit while dialing
// is a timeout, not an unreachable backend.
func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
