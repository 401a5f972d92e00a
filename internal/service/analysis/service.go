// Package analysis asks the LLM about ponds and reads back structured
// answers where the context has one.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/aggregate"
	"github.com/mamadbah2/pondwatch/internal/calc"
	"github.com/mamadbah2/pondwatch/internal/domain/models"
	"github.com/mamadbah2/pondwatch/internal/instrumentation"
	"github.com/mamadbah2/pondwatch/pkg/clients/anthropic"
)

// ErrLLMDisabled is returned when no API key is configured.
var ErrLLMDisabled = errors.New("ai assistant is not configured")

// baseSystem states the same optimal bands the water quality index scores against.
var baseSystem = fmt.Sprintf(`You are an aquaculture expert helping fish farmers in West Africa manage tilapia and catfish ponds.
Optimal ranges: temperature %g-%g°C, pH %g-%g, dissolved oxygen %g-%g mg/L, ammonia below %g mg/L.
Answer in the language of the farmer's question, French by default. Be concrete and brief.`,
	calc.TemperatureOptimal.Min, calc.TemperatureOptimal.Max,
	calc.PHOptimal.Min, calc.PHOptimal.Max,
	calc.OxygenOptimal.Min, calc.OxygenOptimal.Max,
	calc.AmmoniaOptimal.Max)

var systemPrompts = map[models.AnalysisContext]string{
	models.ContextHealthDetection: baseSystem + `
Assess fish health from the symptoms and readings. Reply with ONLY a JSON object:
{"healthScore": 0-100, "status": "healthy|sick|critical", "confidence": 0-100, "diagnosis": "...", "symptoms": ["..."], "treatment": "...", "prevention": "..."}`,
	models.ContextGrowthPrediction: baseSystem + `
Forecast growth and harvest. Reply with ONLY a JSON object:
{"growthRate": "...", "harvestRecommendation": "...", "feedingStrategy": "...", "expectedYield": "...", "marketTiming": "...", "profitEstimate": "..."}`,
	models.ContextPondAnalysis: baseSystem + `
Analyse the pond's current state: water quality, stocking density, feeding and health. Point out risks first.`,
	models.ContextPondRecommendations: baseSystem + `
Give a short numbered list of actions the farmer should take this week for this pond.`,
	models.ContextAssistant: baseSystem + `
You are chatting over WhatsApp. Keep answers under 8 lines.`,
}

// Service runs the five analysis contexts against an LLM client.
type Service struct {
	client  anthropic.Client
	metrics *instrumentation.Metrics
	logger  *zap.Logger
}

// NewService wires the service. A nil client disables every call.
func NewService(client anthropic.Client, metrics *instrumentation.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, metrics: metrics, logger: logger}
}

// Enabled reports whether an LLM client is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.client != nil
}

// PondContext is what the service knows about a pond when it asks.
type PondContext struct {
	Pond     models.Pond
	Metrics  *aggregate.PondMetrics
	Readings aggregate.Readings
	Health   []models.HealthRecord
}

// NewPondContext derives the metrics and latest readings of one pond from its
// records.
func NewPondContext(pond models.Pond, health []models.HealthRecord, logs []models.WaterQualityLog, prices aggregate.Prices) PondContext {
	metrics := aggregate.Metrics([]models.Pond{pond}, health, logs, prices)
	var own []models.HealthRecord
	for _, h := range health {
		if h.PondID == pond.ID {
			own = append(own, h)
		}
	}
	return PondContext{
		Pond:     pond,
		Metrics:  &metrics[0],
		Readings: aggregate.LatestReadings(pond, logs),
		Health:   own,
	}
}

// HealthInput is a health detection request.
type HealthInput struct {
	PondContext
	Symptoms string
}

// GrowthInput is a growth prediction request.
type GrowthInput struct {
	PondContext
	Prediction *aggregate.GrowthPrediction
	Question   string
}

// DetectHealth diagnoses a pond from reported symptoms.
func (s *Service) DetectHealth(ctx context.Context, in HealthInput) (models.AnalysisResult, error) {
	var b strings.Builder
	describePond(&b, in.PondContext)
	fmt.Fprintf(&b, "Observed symptoms: %s\n", in.Symptoms)
	return s.structured(ctx, models.ContextHealthDetection, b.String())
}

// PredictGrowth forecasts growth and harvest for a pond.
func (s *Service) PredictGrowth(ctx context.Context, in GrowthInput) (models.AnalysisResult, error) {
	var b strings.Builder
	describePond(&b, in.PondContext)
	if p := in.Prediction; p != nil {
		fmt.Fprintf(&b, "Model projection: harvest on %s (%d days), current weight %.0f g, expected yield %.1f kg, feed used %.1f kg, margin %.1f%%\n",
			p.HarvestDate.Format("2006-01-02"), p.DaysToHarvest, p.CurrentWeightGrams, p.ExpectedYieldKg, p.FeedUsedKg, p.ProfitMarginPct)
	}
	if in.Question != "" {
		fmt.Fprintf(&b, "Farmer question: %s\n", in.Question)
	}
	return s.structured(ctx, models.ContextGrowthPrediction, b.String())
}

// AnalyzePond returns a prose analysis of a pond.
func (s *Service) AnalyzePond(ctx context.Context, in PondContext) (models.AnalysisResult, error) {
	var b strings.Builder
	describePond(&b, in)
	return s.structured(ctx, models.ContextPondAnalysis, b.String())
}

// RecommendPond returns recommended actions for a pond.
func (s *Service) RecommendPond(ctx context.Context, in PondContext) (models.AnalysisResult, error) {
	var b strings.Builder
	describePond(&b, in)
	return s.structured(ctx, models.ContextPondRecommendations, b.String())
}

// Ask answers a free question in an ongoing conversation. fleet is a short
// summary of the farmer's ponds prepended to the system prompt.
func (s *Service) Ask(ctx context.Context, fleet string, history []anthropic.Message, question string) (string, error) {
	system := systemPrompts[models.ContextAssistant]
	if fleet != "" {
		system += "\n\nThe farmer's ponds right now:\n" + fleet
	}
	messages := append(append([]anthropic.Message{}, history...), anthropic.User(question))
	return s.complete(ctx, models.ContextAssistant, system, messages)
}

func (s *Service) structured(ctx context.Context, label models.AnalysisContext, prompt string) (models.AnalysisResult, error) {
	text, err := s.complete(ctx, label, systemPrompts[label], []anthropic.Message{anthropic.User(prompt)})
	if err != nil {
		return models.AnalysisResult{Context: label}, err
	}

	result := Parse(label, text)
	if !result.Structured && (label == models.ContextHealthDetection || label == models.ContextGrowthPrediction) {
		s.logger.Debug("llm answer not structured, returning text", zap.String("context", string(label)))
	}
	return result, nil
}

func (s *Service) complete(ctx context.Context, label models.AnalysisContext, system string, messages []anthropic.Message) (string, error) {
	if !s.Enabled() {
		return "", ErrLLMDisabled
	}

	text, err := s.client.Complete(ctx, system, messages)
	if err != nil {
		s.metrics.RecordLLMCall(string(label), "error")
		s.logger.Error("llm call failed", zap.String("context", string(label)), zap.Error(err))
		return "", fmt.Errorf("%s: %w", label, err)
	}
	s.metrics.RecordLLMCall(string(label), "ok")
	return text, nil
}

func describePond(b *strings.Builder, in PondContext) {
	p := in.Pond
	fmt.Fprintf(b, "Pond %q: %.0f m², %.1f m deep, %d fish aged %d days, status %s.\n",
		p.Name, p.SizeM2, p.DepthM, p.FishCount, p.FishAgeDays, p.Status)

	r := in.Readings
	if r.Temperature == nil && r.PH == nil {
		r.Temperature, r.PH = p.WaterTemperature, p.PHLevel
	}
	writeReading(b, "Temperature", "°C", r.Temperature)
	writeReading(b, "pH", "", r.PH)
	writeReading(b, "Dissolved oxygen", " mg/L", r.DissolvedOxygen)
	writeReading(b, "Ammonia", " mg/L", r.Ammonia)

	if m := in.Metrics; m != nil {
		fmt.Fprintf(b, "Stocking density %.1f fish/m², efficiency %d/100, water quality index %d/100, latest health %s.\n",
			m.StockingDensity, m.Efficiency, m.WaterQualityIndex, m.Health)
	}

	recent := aggregate.MostRecent(in.Health, 3, func(h models.HealthRecord) time.Time { return h.CreatedAt })
	for _, h := range recent {
		fmt.Fprintf(b, "Health check %s: %s", h.CreatedAt.Format("2006-01-02"), h.HealthStatus)
		if h.Symptoms != "" {
			fmt.Fprintf(b, " (%s)", h.Symptoms)
		}
		b.WriteString("\n")
	}
}

func writeReading(b *strings.Builder, name, unit string, v *float64) {
	if v == nil {
		return
	}
	fmt.Fprintf(b, "%s: %.1f%s\n", name, *v, unit)
}
