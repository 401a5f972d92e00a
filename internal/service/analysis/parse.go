package analysis

import (
	"encoding/json"
	"strings"

	"github.com/mamadbah2/pondwatch/internal/domain/models"
)

// Parse turns a model answer into a result for the given context. Answers
// that do not carry the expected record are returned as free text.
func Parse(label models.AnalysisContext, text string) models.AnalysisResult {
	result := models.AnalysisResult{Context: label, Analysis: strings.TrimSpace(text)}

	body, ok := jsonObject(text)
	if !ok {
		return result
	}

	switch label {
	case models.ContextHealthDetection:
		var h models.HealthDetection
		if err := json.Unmarshal([]byte(body), &h); err != nil || (h.Status == "" && h.Diagnosis == "") {
			return result
		}
		result.Health = &h
	case models.ContextGrowthPrediction:
		var g models.GrowthForecast
		if err := json.Unmarshal([]byte(body), &g); err != nil || (g.GrowthRate == "" && g.HarvestRecommendation == "") {
			return result
		}
		result.Growth = &g
	default:
		return result
	}

	result.Structured = true
	result.Analysis = ""
	return result
}

// jsonObject strips markdown fences and surrounding prose and returns the
// outermost {...} block.
func jsonObject(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
