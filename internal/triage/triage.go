package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"supporttriage/internal/corpus"
	"supporttriage/internal/domain"
	"supporttriage/internal/heuristic"
	"supporttriage/internal/integrations/llm"
	"supporttriage/internal/retrieval"
	"supporttriage/internal/sla"
)

var (
	// ErrModelOutputMalformed is returned when the model answer holds no
	// parseable JSON object.
	ErrModelOutputMalformed = llm.ErrMalformedOutput
	// ErrModelTimeout is returned when the model call exceeds its deadline.
	ErrModelTimeout = errors.New("model call timed out")
	// ErrModelUnavailable is returned when none of the configured model
	// backends could be reached.
	ErrModelUnavailable = errors.New("no configured model backend reachable")
	// ErrInvalidTicket is returned for a ticket without title or description.
	ErrInvalidTicket = errors.New("title and description are required")
)

// HeuristicModel is reported as the model of heuristic classifications.
const HeuristicModel = "heuristic"

const (
	defaultRetrievalLimit = 6
	defaultConfidence     = 0.7
	defaultJustification  = "Clasificación automática."
)

// Models is the model backend used by the service; *llm.Chain satisfies it.
type Models interface {
	Empty() bool
	Complete(ctx context.Context, req llm.Request) (llm.Response, llm.Outcome, error)
}

type Options struct {
	Temperature    float64
	MaxTokens      int
	Timeout        time.Duration
	RetrievalLimit int
	// DebugPrompt attaches the rendered prompt to model-path results.
	DebugPrompt bool
}

// Service classifies tickets against the current corpus snapshot.
type Service struct {
	corpus *corpus.Holder
	scorer retrieval.Scorer
	models Models
	opts   Options
}

func NewService(holder *corpus.Holder, scorer retrieval.Scorer, models Models, opts Options) *Service {
	if scorer == nil {
		scorer = retrieval.DiceScorer{}
	}
	if opts.RetrievalLimit <= 0 {
		opts.RetrievalLimit = defaultRetrievalLimit
	}
	return &Service{corpus: holder, scorer: scorer, models: models, opts: opts}
}

// Corpus returns the snapshot the next classification will use.
func (s *Service) Corpus() *corpus.Store {
	return s.corpus.Current()
}

// ClassifyTicket retrieves similar documents, resolves the client and
// classifies the ticket with the configured model. The local heuristics are
// used only when no model backend is configured.
func (s *Service) ClassifyTicket(ctx context.Context, ticket domain.Ticket) (domain.ClassificationResult, error) {
	if !ticket.Valid() {
		return domain.ClassificationResult{}, ErrInvalidTicket
	}
	start := time.Now()
	store := s.corpus.Current()

	matches := s.scorer.Score(ticket.Text(), store.Documents(), s.opts.RetrievalLimit)
	var client *domain.ClientRecord
	if strings.TrimSpace(ticket.Client) != "" {
		client = store.FindClientByName(ticket.Client)
	}
	resolver := sla.NewResolver(store.SlaMatrix())

	var result domain.ClassificationResult
	if s.models == nil || s.models.Empty() {
		result = s.classifyHeuristic(ticket, client, resolver)
	} else {
		var err error
		result, err = s.classifyWithModel(ctx, ticket, matches, client, store)
		if err != nil {
			return domain.ClassificationResult{}, err
		}
	}

	result.Matches = retrieval.Summaries(matches)
	result.ClientContext = client

	slog.Info("triage classified",
		"model", result.ModelUsed,
		"priority", result.Priority,
		"impact", result.Impact,
		"confidence", result.Confidence,
		"matches", len(matches),
		"client_found", client != nil,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

func (s *Service) classifyHeuristic(ticket domain.Ticket, client *domain.ClientRecord, resolver sla.Resolver) domain.ClassificationResult {
	result := heuristic.Classify(ticket, client, resolver)
	result.ModelUsed = HeuristicModel
	return result
}

func (s *Service) classifyWithModel(
	ctx context.Context,
	ticket domain.Ticket,
	matches []domain.ScoredMatch,
	client *domain.ClientRecord,
	store *corpus.Store,
) (domain.ClassificationResult, error) {
	prompt := llm.BuildPrompt(llm.PromptInput{
		Ticket:    ticket,
		Matches:   matches,
		Client:    client,
		SlaMatrix: store.SlaMatrix(),
		Metrics:   store.MetricMap(),
	})

	callCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	resp, outcome, err := s.models.Complete(callCtx, llm.Request{
		System:      llm.SystemPrompt,
		Prompt:      prompt,
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
		JSON:        true,
	})
	switch outcome {
	case llm.OutcomeOK:
	case llm.OutcomeUnavailable:
		slog.Error("triage model backends unreachable", "error", err)
		return domain.ClassificationResult{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	default:
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return domain.ClassificationResult{}, fmt.Errorf("%w after %s: %v", ErrModelTimeout, s.opts.Timeout, err)
		}
		return domain.ClassificationResult{}, fmt.Errorf("calling model: %w", err)
	}

	slog.Info("triage model call",
		"model", resp.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"total_tokens", resp.Usage.TotalTokens())

	parsed, err := llm.ParseClassification(resp.Text)
	if err != nil {
		slog.Warn("triage model output malformed", "model", resp.Model, "size", len(resp.Text))
		return domain.ClassificationResult{}, fmt.Errorf("parsing model response: %w", err)
	}

	result := normalize(parsed)
	result.ModelUsed = resp.Model
	if s.opts.DebugPrompt {
		result.Prompt = prompt
	}
	return result, nil
}

// normalize fills every field the model left empty with its default.
func normalize(c llm.Classification) domain.ClassificationResult {
	result := domain.ClassificationResult{
		Priority:      domain.Priority(orDefault(c.Priority, string(domain.PriorityP3))),
		Urgency:       domain.Urgency(orDefault(c.Urgency, string(domain.UrgencyMedium))),
		Impact:        domain.Impact(orDefault(c.Impact, string(domain.ImpactMedium))),
		Justification: orDefault(c.Justification, defaultJustification),
		SLA: domain.SlaTargets{
			FirstResponseTime:    orDefault(c.FirstResponseTime, domain.NotAvailable),
			AssistanceTime:       orDefault(c.AssistanceTime, domain.NotAvailable),
			ResolutionTargetTime: orDefault(c.ResolutionTargetTime, domain.NotAvailable),
		},
		Confidence:      defaultConfidence,
		Recommendations: c.Recommendations,
	}
	if c.Confidence != nil {
		result.Confidence = clamp01(*c.Confidence)
	}
	if result.Recommendations == nil {
		result.Recommendations = []string{}
	}
	return result
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
