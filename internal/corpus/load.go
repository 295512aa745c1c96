package corpus

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/tidwall/gjson"

	"supporttriage/internal/domain"
)

// Load reads the generated corpus file and the client table. Any source that
// cannot be read or parsed is logged at WARN and treated as empty, so a
// missing data directory never prevents startup.
func Load(corpusPath, clientsPath string) *Store {
	corpusDoc := readJSON(corpusPath)
	clientDoc := readJSON(clientsPath)

	docs := parseDocuments(corpusDoc.Get("documents"))

	matrixSrc := corpusDoc.Get("ans_matrix")
	if !matrixSrc.IsArray() || len(matrixSrc.Array()) == 0 {
		matrixSrc = clientDoc.Get("ans_matrix")
	}
	matrix := parseSlaMatrix(matrixSrc)

	metricsSrc := corpusDoc.Get("metricas_definiciones")
	if !metricsSrc.IsObject() {
		metricsSrc = clientDoc.Get("metricas_definiciones")
	}
	metrics := parseMetrics(metricsSrc)

	clients := parseClients(clientDoc.Get("clients"))

	slog.Info("corpus loaded",
		"documents", len(docs),
		"sla_rows", len(matrix),
		"metrics", len(metrics),
		"clients", len(clients))

	return NewStore(docs, matrix, metrics, clients)
}

func readJSON(path string) gjson.Result {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("corpus source unreadable, using empty data", "path", path, "error", err)
		return gjson.Result{}
	}
	if !gjson.ValidBytes(data) {
		slog.Warn("corpus source is not valid JSON, using empty data", "path", path)
		return gjson.Result{}
	}
	return gjson.ParseBytes(data)
}

func parseDocuments(arr gjson.Result) []domain.Document {
	var docs []domain.Document
	arr.ForEach(func(_, item gjson.Result) bool {
		doc := domain.Document{
			ID:      item.Get("id").String(),
			Type:    domain.DocumentType(item.Get("type").String()),
			Content: item.Get("content").String(),
		}
		if meta, ok := item.Get("metadata").Value().(map[string]any); ok {
			doc.Metadata = meta
		}
		docs = append(docs, doc)
		return true
	})
	return docs
}

func parseSlaMatrix(arr gjson.Result) []domain.SlaRow {
	var rows []domain.SlaRow
	arr.ForEach(func(_, item gjson.Result) bool {
		impact := item.Get("impacto").String()
		if impact == "" {
			return true
		}
		rows = append(rows, domain.SlaRow{
			Impact:               domain.Impact(impact),
			FirstResponseTime:    item.Get("tiempo_primer_respuesta").String(),
			AssistanceTime:       item.Get("tiempo_asistencia").String(),
			ResolutionTargetTime: item.Get("tiempo_objetivo_solucion").String(),
		})
		return true
	})
	return rows
}

func parseMetrics(obj gjson.Result) map[string]string {
	metrics := make(map[string]string)
	obj.ForEach(func(key, value gjson.Result) bool {
		metrics[key.String()] = value.String()
		return true
	})
	return metrics
}

// parseClients resolves the field-name variants found in client tables
// (cliente/nombre, mrr_usd/mrr, incidente_pdf/incidente_critico).
func parseClients(arr gjson.Result) []domain.ClientRecord {
	var clients []domain.ClientRecord
	arr.ForEach(func(_, item gjson.Result) bool {
		clients = append(clients, domain.ClientRecord{
			ID:                  firstString(item, "id"),
			Name:                firstString(item, "cliente", "nombre"),
			MRR:                 firstNumber(item, "mrr_usd", "mrr"),
			ServiceState:        firstString(item, "estado_servicio"),
			AffectedUserPercent: firstNumber(item, "porcentaje_usuarios_afectados"),
			UseCase:             firstString(item, "caso_uso"),
			CriticalIncidentRef: firstString(item, "incidente_pdf", "incidente_critico"),
			BusinessImpact:      firstString(item, "impacto_negocio"),
		})
		return true
	})
	return clients
}

func firstString(item gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := item.Get(k); v.Exists() && v.Type != gjson.Null {
			if s := v.String(); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstNumber(item gjson.Result, keys ...string) float64 {
	for _, k := range keys {
		if v := item.Get(k); v.Exists() && v.Type != gjson.Null {
			return v.Float()
		}
	}
	return 0
}

// Describe summarizes a snapshot for CLI output and logs.
func Describe(s *Store) string {
	return fmt.Sprintf("%d documents, %d SLA rows, %d metrics, %d clients",
		len(s.documents), len(s.slaMatrix), len(s.metrics), len(s.clients))
}
