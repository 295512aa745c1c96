package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"supporttriage/internal/domain"
)

// SystemPrompt is sent as the system message of every classification call.
const SystemPrompt = "Eres un experto en clasificación de tickets de soporte. Siempre respondes en formato JSON válido."

const outputSchema = `{
  "prioridad": "P1|P2|P3|P4",
  "urgencia": "Crítica|Alta|Media|Baja",
  "impacto": "Crítico|Alto|Medio|Bajo",
  "sla": {
    "tiempo_primer_respuesta": "string",
    "tiempo_asistencia": "string",
    "tiempo_objetivo_solucion": "string"
  },
  "justificacion": "string breve (<80 palabras)",
  "confianza": "valor decimal entre 0 y 1",
  "recomendaciones": ["string", "..."]
}`

// PromptInput is everything the classification prompt is built from.
type PromptInput struct {
	Ticket    domain.Ticket
	Matches   []domain.ScoredMatch
	Client    *domain.ClientRecord
	SlaMatrix []domain.SlaRow
	Metrics   map[string]string
}

// BuildPrompt renders the user prompt: ANS table, metric glossary, retrieved
// context, client block, the ticket and the required output schema.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder
	b.WriteString("Eres un Ingeniero de Soporte Senior responsable de clasificar tickets entrantes y asignar SLAs.\n\n")
	b.WriteString("Debes utilizar la tabla ANS y las definiciones oficiales para garantizar coherencia. Respeta siempre los límites del ANS.\n\n")

	b.WriteString(slaBlock(in.SlaMatrix))
	b.WriteString("\n\nDefiniciones clave:\n")
	b.WriteString(metricsBlock(in.Metrics))
	b.WriteString("\n\nContexto histórico (tickets y cuentas similares):\n")
	b.WriteString(contextBlock(in.Matches))
	b.WriteString("\n\n")
	b.WriteString(clientBlock(in.Client))

	channel := strings.TrimSpace(in.Ticket.Channel)
	if channel == "" {
		channel = "no especificado"
	}
	b.WriteString("\n\nTicket nuevo:\n")
	fmt.Fprintf(&b, "Título: %s\n", in.Ticket.Title)
	fmt.Fprintf(&b, "Descripción: %s\n", in.Ticket.Description)
	fmt.Fprintf(&b, "Canal: %s\n\n", channel)

	b.WriteString("Entrega ÚNICAMENTE un JSON con el siguiente formato:\n")
	b.WriteString(outputSchema)
	b.WriteString("\n\nRequisitos adicionales:\n")
	b.WriteString("- Si el ticket impacta a clientes en riesgo de churn o con MRR alto, eleva la prioridad al menos un nivel.\n")
	b.WriteString("- Usa la tabla ANS para definir los tiempos exactos del campo \"sla\".\n")
	b.WriteString("- El campo \"confianza\" debe estar entre 0 y 1.\n")
	b.WriteString("- No agregues texto fuera del JSON.\n")
	return b.String()
}

func slaBlock(matrix []domain.SlaRow) string {
	lines := make([]string, 0, len(matrix))
	for _, row := range matrix {
		lines = append(lines, fmt.Sprintf("- Impacto %s: 1ª respuesta %s, asistencia %s, solución %s",
			row.Impact, row.FirstResponseTime, row.AssistanceTime, row.ResolutionTargetTime))
	}
	return "Tabla ANS oficial:\n" + strings.Join(lines, "\n")
}

func metricsBlock(metrics map[string]string) string {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = fmt.Sprintf("- %s: %s", k, metrics[k])
	}
	return strings.Join(lines, "\n")
}

func contextBlock(matches []domain.ScoredMatch) string {
	if len(matches) == 0 {
		return "No hay contexto histórico disponible."
	}
	entries := make([]string, len(matches))
	for i, m := range matches {
		entries[i] = fmt.Sprintf("[#%d] ID=%s (%s)\nRelevancia: %.2f\n%s\n",
			i+1, m.Document.ID, m.Document.Type, m.Rating, m.Document.Content)
	}
	return strings.Join(entries, "\n")
}

func clientBlock(client *domain.ClientRecord) string {
	if client == nil {
		return "El cliente no se encuentra en la tabla estratégica."
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(client); err != nil {
		return "El cliente no se encuentra en la tabla estratégica."
	}
	return "Cliente estratégico:\n" + strings.TrimRight(buf.String(), "\n")
}
