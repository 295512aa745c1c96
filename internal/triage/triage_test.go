package triage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supporttriage/internal/corpus"
	"supporttriage/internal/domain"
	"supporttriage/internal/integrations/llm"
	"supporttriage/internal/retrieval"
)

type fakeModels struct {
	text    string
	err     error
	outcome llm.Outcome
	block   bool
	last    llm.Request
}

func (f *fakeModels) Empty() bool { return false }

func (f *fakeModels) Complete(ctx context.Context, req llm.Request) (llm.Response, llm.Outcome, error) {
	f.last = req
	if f.block {
		<-ctx.Done()
		return llm.Response{}, llm.OutcomeFailed, fmt.Errorf("anthropic API error: %w", ctx.Err())
	}
	if f.err != nil {
		return llm.Response{}, f.outcome, f.err
	}
	return llm.Response{Text: f.text, Model: "fake-model"}, llm.OutcomeOK, nil
}

func testHolder() *corpus.Holder {
	var docs []domain.Document
	for i := 0; i < 10; i++ {
		docs = append(docs, domain.Document{
			ID:       fmt.Sprintf("TCK-%d", i),
			Type:     domain.DocumentHistoricalTicket,
			Content:  "Error 500 en checkout de pagos",
			Metadata: map[string]any{"categoria": "Pagos"},
		})
	}
	matrix := []domain.SlaRow{
		{Impact: domain.ImpactCritical, FirstResponseTime: "15 min", AssistanceTime: "1 h", ResolutionTargetTime: "4 h"},
		{Impact: domain.ImpactHigh, FirstResponseTime: "30 min", AssistanceTime: "2 h", ResolutionTargetTime: "8 h"},
		{Impact: domain.ImpactMedium, FirstResponseTime: "2 h", AssistanceTime: "4 h", ResolutionTargetTime: "24 h"},
		{Impact: domain.ImpactLow, FirstResponseTime: "8 h", AssistanceTime: "1 d", ResolutionTargetTime: "5 d"},
	}
	clients := []domain.ClientRecord{
		{ID: "C1", Name: "Acme Corp", AffectedUserPercent: 85, ServiceState: "Estable"},
		{ID: "C2", Name: "Globex", AffectedUserPercent: 10, ServiceState: "Estable"},
	}
	return corpus.NewHolder(corpus.NewStore(docs, matrix, map[string]string{"MTTR": "Tiempo medio"}, clients))
}

func checkoutTicket(client string) domain.Ticket {
	return domain.Ticket{Title: "Checkout", Description: "Error 500 al pagar", Client: client}
}

func TestClassifyTicketHeuristicPath(t *testing.T) {
	svc := NewService(testHolder(), nil, llm.NewChain(), Options{})

	got, err := svc.ClassifyTicket(context.Background(), checkoutTicket("acme corp"))
	require.NoError(t, err)

	assert.Equal(t, HeuristicModel, got.ModelUsed)
	assert.Equal(t, domain.ImpactCritical, got.Impact)
	assert.Equal(t, domain.PriorityP1, got.Priority)
	assert.Equal(t, domain.UrgencyCritical, got.Urgency)
	assert.Equal(t, "15 min", got.SLA.FirstResponseTime)
	assert.Equal(t, 0.62, got.Confidence)
	require.NotNil(t, got.ClientContext)
	assert.Equal(t, "C1", got.ClientContext.ID)
	assert.Len(t, got.Matches, defaultRetrievalLimit)
	assert.Equal(t, "Pagos", got.Matches[0].Category)
	assert.Empty(t, got.Prompt)
}

func TestClassifyTicketHeuristicIsDeterministic(t *testing.T) {
	svc := NewService(testHolder(), nil, nil, Options{})
	ticket := domain.Ticket{Title: "Reporte", Description: "consulta lenta", Client: "Globex"}

	first, err := svc.ClassifyTicket(context.Background(), ticket)
	require.NoError(t, err)
	second, err := svc.ClassifyTicket(context.Background(), ticket)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, domain.ImpactMedium, first.Impact)
	assert.Equal(t, domain.PriorityP3, first.Priority)
}

func TestClassifyTicketUnknownClient(t *testing.T) {
	svc := NewService(testHolder(), nil, nil, Options{})

	got, err := svc.ClassifyTicket(context.Background(), checkoutTicket("Initech"))
	require.NoError(t, err)
	assert.Nil(t, got.ClientContext)

	got, err = svc.ClassifyTicket(context.Background(), checkoutTicket(""))
	require.NoError(t, err)
	assert.Nil(t, got.ClientContext)
}

func TestClassifyTicketInvalid(t *testing.T) {
	svc := NewService(testHolder(), nil, nil, Options{})
	_, err := svc.ClassifyTicket(context.Background(), domain.Ticket{Title: "solo título"})
	assert.ErrorIs(t, err, ErrInvalidTicket)
	_, err = svc.ClassifyTicket(context.Background(), domain.Ticket{Description: "  "})
	assert.ErrorIs(t, err, ErrInvalidTicket)
}

func TestClassifyTicketModelPath(t *testing.T) {
	models := &fakeModels{text: `{"prioridad":"P2","urgencia":"Alta","impacto":"Alto",
		"sla":{"tiempo_primer_respuesta":"30 min","tiempo_asistencia":"2 h","tiempo_objetivo_solucion":"8 h"},
		"justificacion":"Cliente con MRR alto","confianza":0.85,"recomendaciones":["Escalar a N2"]}`}
	svc := NewService(testHolder(), retrieval.DiceScorer{}, models, Options{Temperature: 0.3, MaxTokens: 1024, DebugPrompt: true})

	got, err := svc.ClassifyTicket(context.Background(), checkoutTicket("Globex"))
	require.NoError(t, err)

	assert.Equal(t, "fake-model", got.ModelUsed)
	assert.Equal(t, domain.PriorityP2, got.Priority)
	assert.Equal(t, domain.ImpactHigh, got.Impact)
	assert.Equal(t, "8 h", got.SLA.ResolutionTargetTime)
	assert.Equal(t, 0.85, got.Confidence)
	assert.Equal(t, []string{"Escalar a N2"}, got.Recommendations)
	require.NotNil(t, got.ClientContext)
	assert.Equal(t, "C2", got.ClientContext.ID)
	assert.Len(t, got.Matches, defaultRetrievalLimit)

	assert.Equal(t, llm.SystemPrompt, models.last.System)
	assert.True(t, models.last.JSON)
	assert.Equal(t, 0.3, models.last.Temperature)
	assert.Contains(t, models.last.Prompt, "Relevancia:")
	assert.Contains(t, models.last.Prompt, `"nombre": "Globex"`)
	assert.Equal(t, models.last.Prompt, got.Prompt)
}

func TestClassifyTicketModelDefaults(t *testing.T) {
	svc := NewService(testHolder(), nil, &fakeModels{text: `{}`}, Options{})

	got, err := svc.ClassifyTicket(context.Background(), checkoutTicket(""))
	require.NoError(t, err)

	assert.Equal(t, domain.PriorityP3, got.Priority)
	assert.Equal(t, domain.UrgencyMedium, got.Urgency)
	assert.Equal(t, domain.ImpactMedium, got.Impact)
	assert.Equal(t, domain.NotAvailable, got.SLA.FirstResponseTime)
	assert.Equal(t, domain.NotAvailable, got.SLA.AssistanceTime)
	assert.Equal(t, domain.NotAvailable, got.SLA.ResolutionTargetTime)
	assert.Equal(t, 0.7, got.Confidence)
	assert.NotNil(t, got.Recommendations)
	assert.Empty(t, got.Recommendations)
	assert.Equal(t, "Clasificación automática.", got.Justification)
}

func TestClassifyTicketClampsConfidence(t *testing.T) {
	svc := NewService(testHolder(), nil, &fakeModels{text: `{"confianza": 1.7}`}, Options{})
	got, err := svc.ClassifyTicket(context.Background(), checkoutTicket(""))
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Confidence)
}

func TestClassifyTicketMalformedOutput(t *testing.T) {
	svc := NewService(testHolder(), nil, &fakeModels{text: "not json"}, Options{})
	_, err := svc.ClassifyTicket(context.Background(), checkoutTicket(""))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelOutputMalformed)
}

func TestClassifyTicketRecoversEmbeddedJSON(t *testing.T) {
	svc := NewService(testHolder(), nil, &fakeModels{text: `Aquí va: {"prioridad":"P4","impacto":"Bajo"} fin`}, Options{})
	got, err := svc.ClassifyTicket(context.Background(), checkoutTicket(""))
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityP4, got.Priority)
	assert.Equal(t, domain.ImpactLow, got.Impact)
}

func TestClassifyTicketTimeout(t *testing.T) {
	svc := NewService(testHolder(), nil, &fakeModels{block: true}, Options{Timeout: 20 * time.Millisecond})
	_, err := svc.ClassifyTicket(context.Background(), checkoutTicket(""))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelTimeout)
}

func TestClassifyTicketProviderFailure(t *testing.T) {
	svc := NewService(testHolder(), nil, &fakeModels{err: errors.New("400 bad request"), outcome: llm.OutcomeFailed}, Options{})
	_, err := svc.ClassifyTicket(context.Background(), checkoutTicket(""))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrModelTimeout)
	assert.NotErrorIs(t, err, ErrModelOutputMalformed)
}

type dialFailProvider struct {
	err   error
	calls int
}

func (p *dialFailProvider) Name() string { return "unreachable" }

func (p *dialFailProvider) Complete(context.Context, llm.Request) (llm.Response, error) {
	p.calls++
	return llm.Response{}, p.err
}

func TestClassifyTicketDialDeadlineIsTimeout(t *testing.T) {
	chain := llm.NewChain(&dialFailProvider{err: &net.OpError{Op: "dial", Net: "tcp", Err: context.DeadlineExceeded}})
	svc := NewService(testHolder(), nil, chain, Options{Timeout: time.Second})

	got, err := svc.ClassifyTicket(context.Background(), checkoutTicket("Acme Corp"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelTimeout)
	assert.NotErrorIs(t, err, ErrModelUnavailable)
	assert.Empty(t, got.ModelUsed)
}

func TestClassifyTicketUnreachableBackendsFail(t *testing.T) {
	first := &dialFailProvider{err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}}
	second := &dialFailProvider{err: fmt.Errorf("ollama: %w", llm.ErrUnavailable)}
	svc := NewService(testHolder(), nil, llm.NewChain(first, second), Options{})

	got, err := svc.ClassifyTicket(context.Background(), checkoutTicket("Acme Corp"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.NotErrorIs(t, err, ErrModelTimeout)
	assert.Empty(t, got.ModelUsed)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestClassifyTicketUsesReloadedCorpus(t *testing.T) {
	holder := testHolder()
	svc := NewService(holder, nil, nil, Options{})

	holder.Swap(corpus.Empty())
	got, err := svc.ClassifyTicket(context.Background(), checkoutTicket("Acme Corp"))
	require.NoError(t, err)
	assert.Empty(t, got.Matches)
	assert.Nil(t, got.ClientContext)
	assert.Equal(t, domain.NotAvailable, got.SLA.FirstResponseTime)
}
