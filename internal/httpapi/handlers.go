package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"supporttriage/internal/domain"
	"supporttriage/internal/storage/sqlite"
	"supporttriage/internal/triage"
)

type ticketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Client      string `json:"client"`
	Channel     string `json:"channel"`
}

type similarTicket struct {
	ID     string              `json:"id"`
	Title  string              `json:"titulo"`
	Type   domain.DocumentType `json:"type"`
	Rating float64             `json:"rating"`
}

type ticketResponse struct {
	TicketID        string               `json:"ticket_id"`
	Priority        domain.Priority      `json:"prioridad"`
	Urgency         domain.Urgency       `json:"urgencia"`
	Impact          domain.Impact        `json:"impacto"`
	SLA             domain.SlaTargets    `json:"sla_objetivo"`
	Justification   string               `json:"justificacion"`
	Confidence      float64              `json:"confianza"`
	Recommendations []string             `json:"recomendaciones"`
	SimilarTickets  []similarTicket      `json:"tickets_similares"`
	Model           string               `json:"model"`
	ClientContext   *domain.ClientRecord `json:"clientContext"`
	Prompt          string               `json:"debug_prompt,omitempty"`
}

type feedbackRequest struct {
	TicketID        string                     `json:"ticketId"`
	CorrectedFields map[string]json.RawMessage `json:"correctedFields"`
	Comment         string                     `json:"comment"`
}

type clientSummary struct {
	ID   string  `json:"id"`
	Name string  `json:"nombre"`
	MRR  float64 `json:"mrr"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) listClients(c *gin.Context) {
	clients := s.corpus.Current().Clients()
	out := make([]clientSummary, len(clients))
	for i, cl := range clients {
		out[i] = clientSummary{ID: cl.ID, Name: cl.Name, MRR: cl.MRR}
	}
	c.JSON(http.StatusOK, gin.H{"clients": out})
}

func (s *Server) slaMatrix(c *gin.Context) {
	store := s.corpus.Current()
	matrix := store.SlaMatrix()
	if matrix == nil {
		matrix = []domain.SlaRow{}
	}
	c.JSON(http.StatusOK, gin.H{"ans_matrix": matrix, "metricas": store.MetricMap()})
}

func (s *Server) classifyTicket(c *gin.Context) {
	var req ticketRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title y description son obligatorios"})
		return
	}

	ticketID, result, err := s.intake.Submit(c.Request.Context(), domain.Ticket{
		Title:       req.Title,
		Description: req.Description,
		Client:      req.Client,
		Channel:     req.Channel,
	})
	if err != nil {
		if errors.Is(err, triage.ErrInvalidTicket) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title y description son obligatorios"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al clasificar el ticket", "details": err.Error()})
		return
	}

	similar := make([]similarTicket, len(result.Matches))
	for i, m := range result.Matches {
		title := m.Category
		if title == "" {
			title = "Ticket similar"
		}
		similar[i] = similarTicket{ID: m.ID, Title: title, Type: m.Type, Rating: m.Rating}
	}

	c.JSON(http.StatusOK, ticketResponse{
		TicketID:        ticketID,
		Priority:        result.Priority,
		Urgency:         result.Urgency,
		Impact:          result.Impact,
		SLA:             result.SLA,
		Justification:   result.Justification,
		Confidence:      result.Confidence,
		Recommendations: result.Recommendations,
		SimilarTickets:  similar,
		Model:           result.ModelUsed,
		ClientContext:   result.ClientContext,
		Prompt:          result.Prompt,
	})
}

func (s *Server) createFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.TicketID) == "" || req.CorrectedFields == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticketId y correctedFields son obligatorios"})
		return
	}

	entry, err := sqlite.InsertFeedback(s.db, domain.FeedbackEntry{
		TicketID:        req.TicketID,
		CorrectedFields: req.CorrectedFields,
		Comment:         req.Comment,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo guardar el feedback", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "entry": entry})
}

func (s *Server) listFeedback(c *gin.Context) {
	entries, err := sqlite.GetRecentFeedback(s.db, s.feedbackWindow)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo leer el feedback", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": entries})
}

func (s *Server) stats(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days debe ser un entero positivo"})
			return
		}
		days = n
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	st, err := sqlite.GetClassificationStats(s.db, since, triage.HeuristicModel)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron calcular las estadísticas", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days, "stats": st})
}
