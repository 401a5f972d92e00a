package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/domain/models"
	"github.com/mamadbah2/pondwatch/internal/repository"
)

// RecordsHandler serves CRUD on ponds and their feeding, health and water records.
type RecordsHandler struct {
	store  repository.Store
	now    func() time.Time
	logger *zap.Logger
}

// NewRecordsHandler constructs the handler. Writes should go through a
// repository.NotifyingStore so mounted views refresh.
func NewRecordsHandler(store repository.Store, now func() time.Time, logger *zap.Logger) *RecordsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &RecordsHandler{store: store, now: now, logger: logger}
}

type pondRequest struct {
	UserID           string            `json:"user_id"`
	Name             string            `json:"name" binding:"required,max=100"`
	SizeM2           float64           `json:"size_m2" binding:"required,gt=0"`
	DepthM           float64           `json:"depth_m" binding:"gte=0"`
	FishCount        int               `json:"fish_count" binding:"gte=0"`
	FishAgeDays      int               `json:"fish_age_days" binding:"gte=0"`
	Status           models.PondStatus `json:"status" binding:"omitempty,oneof=active maintenance inactive"`
	WaterTemperature *float64          `json:"water_temperature" binding:"omitempty,gte=0,lte=50"`
	PHLevel          *float64          `json:"ph_level" binding:"omitempty,gte=0,lte=14"`
}

type feedingRequest struct {
	PondID       string               `json:"pond_id" binding:"required"`
	FeedingTime  string               `json:"feeding_time" binding:"required"`
	FeedAmountKg float64              `json:"feed_amount_kg" binding:"required,gt=0"`
	FeedType     string               `json:"feed_type" binding:"required"`
	Status       models.FeedingStatus `json:"status" binding:"omitempty,oneof=pending completed"`
}

type feedingStatusRequest struct {
	Status models.FeedingStatus `json:"status" binding:"required,oneof=pending completed"`
}

type healthRequest struct {
	PondID       string              `json:"pond_id" binding:"required"`
	HealthStatus models.HealthStatus `json:"health_status" binding:"required,oneof=healthy sick critical"`
	Symptoms     string              `json:"symptoms"`
	Treatment    string              `json:"treatment"`
}

type waterRequest struct {
	PondID          string     `json:"pond_id" binding:"required"`
	Temperature     *float64   `json:"temperature" binding:"omitempty,gte=0,lte=50"`
	PH              *float64   `json:"ph" binding:"omitempty,gte=0,lte=14"`
	DissolvedOxygen *float64   `json:"dissolved_oxygen" binding:"omitempty,gte=0"`
	AmmoniaLevel    *float64   `json:"ammonia_level" binding:"omitempty,gte=0"`
	RecordedAt      *time.Time `json:"recorded_at"`
}

// ownedPond loads a pond the session may act on.
func (h *RecordsHandler) ownedPond(ctx context.Context, session models.Session, id string) (models.Pond, error) {
	pond, err := h.store.GetPond(ctx, id)
	if err != nil {
		return models.Pond{}, err
	}
	if !session.IsAdmin() && pond.UserID != session.UserID {
		return models.Pond{}, fmt.Errorf("pond %s: %w", id, errForbidden)
	}
	return pond, nil
}

// ListPonds returns the caller's ponds, or every pond for an admin.
func (h *RecordsHandler) ListPonds(c *gin.Context) {
	ponds, err := h.store.ListPonds(c.Request.Context(), repository.ScopeFor(sessionFrom(c)))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ponds)
}

// GetPond returns one pond.
func (h *RecordsHandler) GetPond(c *gin.Context) {
	pond, err := h.ownedPond(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pond)
}

// CreatePond registers a pond for the caller. Admins may set user_id.
func (h *RecordsHandler) CreatePond(c *gin.Context) {
	var req pondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	session := sessionFrom(c)
	owner := session.UserID
	if session.IsAdmin() && req.UserID != "" {
		owner = req.UserID
	}

	now := h.now().UTC()
	pond := models.Pond{ID: uuid.NewString(), UserID: owner, CreatedAt: now}
	req.apply(&pond, now)

	if err := h.store.InsertPond(c.Request.Context(), pond); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, pond)
}

// UpdatePond replaces a pond's editable fields.
func (h *RecordsHandler) UpdatePond(c *gin.Context) {
	var req pondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	ctx := c.Request.Context()
	pond, err := h.ownedPond(ctx, sessionFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	req.apply(&pond, h.now().UTC())

	if err := h.store.UpdatePond(ctx, pond); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pond)
}

func (r pondRequest) apply(p *models.Pond, now time.Time) {
	p.Name = r.Name
	p.SizeM2 = r.SizeM2
	p.DepthM = r.DepthM
	p.FishCount = r.FishCount
	p.FishAgeDays = r.FishAgeDays
	p.Status = r.Status
	if p.Status == "" {
		p.Status = models.PondActive
	}
	p.WaterTemperature = r.WaterTemperature
	p.PHLevel = r.PHLevel
	p.UpdatedAt = now
}

// DeletePond removes a pond and its records.
func (h *RecordsHandler) DeletePond(c *gin.Context) {
	ctx := c.Request.Context()
	pond, err := h.ownedPond(ctx, sessionFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.store.DeletePond(ctx, pond.ID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListFeedingSchedules returns visible schedules, optionally for one pond_id.
func (h *RecordsHandler) ListFeedingSchedules(c *gin.Context) {
	items, err := h.store.ListFeedingSchedules(c.Request.Context(), repository.ScopeFor(sessionFrom(c)))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, forPond(items, c.Query("pond_id"), func(s models.FeedingSchedule) string { return s.PondID }))
}

// CreateFeedingSchedule plans a feeding.
func (h *RecordsHandler) CreateFeedingSchedule(c *gin.Context) {
	var req feedingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.ownedPond(ctx, sessionFrom(c), req.PondID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	schedule := models.FeedingSchedule{
		ID:           uuid.NewString(),
		PondID:       req.PondID,
		FeedingTime:  req.FeedingTime,
		FeedAmountKg: req.FeedAmountKg,
		FeedType:     req.FeedType,
		Status:       req.Status,
		CreatedAt:    h.now().UTC(),
	}
	if schedule.Status == "" {
		schedule.Status = models.FeedingPending
	}

	if err := h.store.InsertFeedingSchedule(ctx, schedule); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, schedule)
}

// UpdateFeedingStatus marks a feeding pending or completed.
func (h *RecordsHandler) UpdateFeedingStatus(c *gin.Context) {
	var req feedingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	ctx := c.Request.Context()
	schedule, err := h.store.GetFeedingSchedule(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if _, err := h.ownedPond(ctx, sessionFrom(c), schedule.PondID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.store.UpdateFeedingStatus(ctx, schedule.ID, req.Status); err != nil {
		respondError(c, h.logger, err)
		return
	}
	schedule.Status = req.Status
	c.JSON(http.StatusOK, schedule)
}

// DeleteFeedingSchedule removes a feeding.
func (h *RecordsHandler) DeleteFeedingSchedule(c *gin.Context) {
	ctx := c.Request.Context()
	schedule, err := h.store.GetFeedingSchedule(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if _, err := h.ownedPond(ctx, sessionFrom(c), schedule.PondID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.store.DeleteFeedingSchedule(ctx, schedule.ID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListHealthRecords returns visible health records, optionally for one pond_id.
func (h *RecordsHandler) ListHealthRecords(c *gin.Context) {
	items, err := h.store.ListHealthRecords(c.Request.Context(), repository.ScopeFor(sessionFrom(c)))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, forPond(items, c.Query("pond_id"), func(r models.HealthRecord) string { return r.PondID }))
}

// CreateHealthRecord logs an inspection.
func (h *RecordsHandler) CreateHealthRecord(c *gin.Context) {
	var req healthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.ownedPond(ctx, sessionFrom(c), req.PondID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	record := models.HealthRecord{
		ID:           uuid.NewString(),
		PondID:       req.PondID,
		HealthStatus: req.HealthStatus,
		Symptoms:     req.Symptoms,
		Treatment:    req.Treatment,
		CreatedAt:    h.now().UTC(),
	}
	if err := h.store.InsertHealthRecord(ctx, record); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// DeleteHealthRecord removes an inspection.
func (h *RecordsHandler) DeleteHealthRecord(c *gin.Context) {
	ctx := c.Request.Context()
	record, err := h.store.GetHealthRecord(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if _, err := h.ownedPond(ctx, sessionFrom(c), record.PondID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.store.DeleteHealthRecord(ctx, record.ID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListWaterQualityLogs returns visible water logs, optionally for one pond_id.
func (h *RecordsHandler) ListWaterQualityLogs(c *gin.Context) {
	items, err := h.store.ListWaterQualityLogs(c.Request.Context(), repository.ScopeFor(sessionFrom(c)))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, forPond(items, c.Query("pond_id"), func(l models.WaterQualityLog) string { return l.PondID }))
}

// CreateWaterQualityLog records readings and copies temperature and pH onto
// the pond as its declared values.
func (h *RecordsHandler) CreateWaterQualityLog(c *gin.Context) {
	var req waterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	ctx := c.Request.Context()
	pond, err := h.ownedPond(ctx, sessionFrom(c), req.PondID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	now := h.now().UTC()
	log := models.WaterQualityLog{
		ID:              uuid.NewString(),
		PondID:          req.PondID,
		Temperature:     req.Temperature,
		PH:              req.PH,
		DissolvedOxygen: req.DissolvedOxygen,
		AmmoniaLevel:    req.AmmoniaLevel,
		RecordedAt:      now,
	}
	if req.RecordedAt != nil {
		log.RecordedAt = req.RecordedAt.UTC()
	}

	pond.UpdatedAt = now
	if err := repository.RecordWaterQuality(ctx, h.store, pond, log); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, log)
}

func forPond[T any](items []T, pondID string, of func(T) string) []T {
	if pondID == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if of(item) == pondID {
			out = append(out, item)
		}
	}
	return out
}
