package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrMalformedOutput is returned when a model response holds no JSON object.
var ErrMalformedOutput = errors.New("model did not return valid JSON")

// Classification is the loosely-typed model answer. Fields the model left
// out, or sent with the wrong JSON type, are zero; the caller applies
// defaults.
type Classification struct {
	Priority             string
	Urgency              string
	Impact               string
	FirstResponseTime    string
	AssistanceTime       string
	ResolutionTargetTime string
	Justification        string
	// Confidence is nil unless the model sent a JSON number.
	Confidence *float64
	// Recommendations is nil unless the model sent a JSON array.
	Recommendations []string
}

// ParseClassification extracts the classification object from a model
// response. It accepts bare JSON, JSON wrapped in code fences, and JSON
// embedded in surrounding prose (first '{' to last '}').
func ParseClassification(raw string) (Classification, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return Classification{}, err
	}

	var c Classification
	c.Priority = stringField(obj, "prioridad")
	c.Urgency = stringField(obj, "urgencia")
	c.Impact = stringField(obj, "impacto")

	slaObj := obj.Get("sla")
	if !slaObj.IsObject() {
		slaObj = obj.Get("sla_objetivo")
	}
	c.FirstResponseTime = stringField(slaObj, "tiempo_primer_respuesta")
	c.AssistanceTime = stringField(slaObj, "tiempo_asistencia")
	c.ResolutionTargetTime = stringField(slaObj, "tiempo_objetivo_solucion")

	c.Justification = stringField(obj, "justificacion")
	if c.Justification == "" {
		c.Justification = stringField(obj, "explicacion")
	}

	if conf := obj.Get("confianza"); conf.Type == gjson.Number {
		v := conf.Float()
		c.Confidence = &v
	}

	if recs := obj.Get("recomendaciones"); recs.IsArray() {
		c.Recommendations = []string{}
		for _, r := range recs.Array() {
			c.Recommendations = append(c.Recommendations, r.String())
		}
	}
	return c, nil
}

func extractObject(raw string) (gjson.Result, error) {
	text := cleanResponse(raw)
	if gjson.Valid(text) {
		if res := gjson.Parse(text); res.IsObject() {
			return res, nil
		}
		return gjson.Result{}, fmt.Errorf("%w: top-level value is not an object", ErrMalformedOutput)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return gjson.Result{}, ErrMalformedOutput
	}
	candidate := text[start : end+1]
	if !gjson.Valid(candidate) {
		return gjson.Result{}, fmt.Errorf("%w: embedded object does not parse (response: %s)", ErrMalformedOutput, truncate(text, 200))
	}
	return gjson.Parse(candidate), nil
}

// cleanResponse strips surrounding whitespace and markdown code fences.
func cleanResponse(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func stringField(obj gjson.Result, key string) string {
	v := obj.Get(key)
	if v.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(v.String())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
