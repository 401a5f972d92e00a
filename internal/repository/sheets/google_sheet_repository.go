package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/pondwatch/internal/config"
	"github.com/mamadbah2/pondwatch/internal/domain/models"
)

const (
	dateLayout = "2006-01-02"
	// DailyReportRange is where daily reports are appended, one row per farmer and day.
	DailyReportRange = "DailyReports!A:O"
)

// DailyReportHeader names the columns written by AppendDailyReport.
var DailyReportHeader = []interface{}{
	"date", "user_id", "total_ponds", "active_ponds", "total_fish",
	"feedings_total", "feedings_done", "feed_kg", "feeding_efficiency",
	"alerts", "health_trend", "avg_temperature", "avg_ph", "estimated_revenue", "created_at",
}

// Repository defines the persistence operations supported by the Google Sheets adapter.
type Repository interface {
	WriteRow(ctx context.Context, sheetRange string, values []interface{}) error
	AppendDailyReport(ctx context.Context, report models.DailyReport) error
}

// GoogleSheetRepository implements the Repository interface using the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	return newRepository(ctx, cfg.SpreadsheetID, logger,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope))
}

func newRepository(ctx context.Context, spreadsheetID string, logger *zap.Logger, opts ...option.ClientOption) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: spreadsheetID,
		logger:        logger,
	}, nil
}

// WriteRow appends the provided values to the supplied sheet range.
func (r *GoogleSheetRepository) WriteRow(ctx context.Context, sheetRange string, values []interface{}) error {
	if sheetRange == "" {
		return fmt.Errorf("sheetRange must not be empty")
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append row into range %s: %w", sheetRange, err)
	}

	r.logger.Debug("row appended to sheet", zap.String("range", sheetRange))
	return nil
}

// AppendDailyReport writes one report as a row of DailyReportRange.
func (r *GoogleSheetRepository) AppendDailyReport(ctx context.Context, report models.DailyReport) error {
	return r.WriteRow(ctx, DailyReportRange, DailyReportRow(report))
}

// DailyReportRow lays a report out in DailyReportHeader order. Missing
// averages are written as empty cells.
func DailyReportRow(report models.DailyReport) []interface{} {
	return []interface{}{
		report.Date.Format(dateLayout),
		report.UserID,
		report.TotalPonds,
		report.ActivePonds,
		report.TotalFish,
		report.FeedingsTotal,
		report.FeedingsDone,
		report.FeedKg,
		report.FeedingEff,
		report.Alerts,
		report.HealthTrend,
		optional(report.AvgTemperature),
		optional(report.AvgPH),
		report.EstimatedRevenue,
		report.CreatedAt.Format(time.RFC3339),
	}
}

func optional(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
