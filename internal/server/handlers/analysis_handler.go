package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/aggregate"
	"github.com/mamadbah2/pondwatch/internal/domain/models"
	"github.com/mamadbah2/pondwatch/internal/repository"
	"github.com/mamadbah2/pondwatch/internal/service/analysis"
	"github.com/mamadbah2/pondwatch/pkg/clients/anthropic"
)

// AnalysisHandler asks the LLM about a pond or answers assistant questions.
type AnalysisHandler struct {
	records *RecordsHandler
	svc     *analysis.Service
	prices  aggregate.Prices
	loc     *time.Location
	logger  *zap.Logger
}

// NewAnalysisHandler constructs the handler. Pond lookups and ownership
// checks are shared with records.
func NewAnalysisHandler(records *RecordsHandler, svc *analysis.Service, prices aggregate.Prices, loc *time.Location, logger *zap.Logger) *AnalysisHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &AnalysisHandler{records: records, svc: svc, prices: prices, loc: loc, logger: logger}
}

type pondAnalysisRequest struct {
	PondID string `json:"pond_id" binding:"required"`
}

type healthAnalysisRequest struct {
	PondID   string `json:"pond_id" binding:"required"`
	Symptoms string `json:"symptoms" binding:"required"`
}

type growthAnalysisRequest struct {
	PondID   string `json:"pond_id" binding:"required"`
	Question string `json:"question"`
}

type assistantRequest struct {
	Question string              `json:"question" binding:"required"`
	History  []anthropic.Message `json:"history" binding:"omitempty,max=20,dive"`
}

type assistantResponse struct {
	Context models.AnalysisContext `json:"context"`
	Answer  string                 `json:"answer"`
}

// RequireLLM answers 503 before any store work when no LLM is configured.
func (h *AnalysisHandler) RequireLLM(c *gin.Context) {
	if !h.svc.Enabled() {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": analysis.ErrLLMDisabled.Error()})
		return
	}
	c.Next()
}

// pondContext gathers what the analysis needs about one visible pond.
func (h *AnalysisHandler) pondContext(c *gin.Context, pondID string) (analysis.PondContext, repository.Fleet, bool) {
	ctx := c.Request.Context()
	session := sessionFrom(c)

	pond, err := h.records.ownedPond(ctx, session, pondID)
	if err != nil {
		respondError(c, h.logger, err)
		return analysis.PondContext{}, repository.Fleet{}, false
	}

	fleet, err := repository.LoadFleet(ctx, h.records.store, repository.ScopeFor(session))
	if err != nil {
		respondError(c, h.logger, err)
		return analysis.PondContext{}, repository.Fleet{}, false
	}
	return analysis.NewPondContext(pond, fleet.Health, fleet.Water, h.prices), fleet, true
}

// Health runs health detection from reported symptoms.
func (h *AnalysisHandler) Health(c *gin.Context) {
	var req healthAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	pc, _, ok := h.pondContext(c, req.PondID)
	if !ok {
		return
	}
	result, err := h.svc.DetectHealth(c.Request.Context(), analysis.HealthInput{PondContext: pc, Symptoms: req.Symptoms})
	h.respond(c, result, err)
}

// Growth runs the growth forecast, seeded with the local projection.
func (h *AnalysisHandler) Growth(c *gin.Context) {
	var req growthAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	pc, fleet, ok := h.pondContext(c, req.PondID)
	if !ok {
		return
	}

	in := analysis.GrowthInput{PondContext: pc, Question: req.Question}
	predictions := aggregate.GrowthPredictions([]models.Pond{pc.Pond}, fleet.Schedules, fleet.Health, h.records.now(), h.loc, h.prices)
	if len(predictions) > 0 {
		in.Prediction = &predictions[0]
	}
	result, err := h.svc.PredictGrowth(c.Request.Context(), in)
	h.respond(c, result, err)
}

// Pond runs the prose pond analysis.
func (h *AnalysisHandler) Pond(c *gin.Context) {
	var req pondAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	pc, _, ok := h.pondContext(c, req.PondID)
	if !ok {
		return
	}
	result, err := h.svc.AnalyzePond(c.Request.Context(), pc)
	h.respond(c, result, err)
}

// Recommendations lists actions for a pond.
func (h *AnalysisHandler) Recommendations(c *gin.Context) {
	var req pondAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	pc, _, ok := h.pondContext(c, req.PondID)
	if !ok {
		return
	}
	result, err := h.svc.RecommendPond(c.Request.Context(), pc)
	h.respond(c, result, err)
}

// Assistant answers a free question. The caller keeps the conversation and
// sends it back as history.
func (h *AnalysisHandler) Assistant(c *gin.Context) {
	var req assistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	ctx := c.Request.Context()
	fleet, err := repository.LoadFleet(ctx, h.records.store, repository.ScopeFor(sessionFrom(c)))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	summary := aggregate.Metrics(fleet.Ponds, fleet.Health, fleet.Water, h.prices)

	answer, err := h.svc.Ask(ctx, describeFleet(summary), req.History, req.Question)
	if err != nil {
		h.respondLLMError(c, err)
		return
	}
	c.JSON(http.StatusOK, assistantResponse{Context: models.ContextAssistant, Answer: answer})
}

func (h *AnalysisHandler) respond(c *gin.Context, result models.AnalysisResult, err error) {
	if err != nil {
		h.respondLLMError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AnalysisHandler) respondLLMError(c *gin.Context, err error) {
	if errors.Is(err, analysis.ErrLLMDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": "analysis failed, try again later"})
}

func describeFleet(metrics []aggregate.PondMetrics) string {
	var b strings.Builder
	for _, m := range metrics {
		fmt.Fprintf(&b, "- %s: status %s, health %s, water quality %d/100, density %.1f fish/m²\n",
			m.Name, m.Status, m.Health, m.WaterQualityIndex, m.StockingDensity)
	}
	return b.String()
}
