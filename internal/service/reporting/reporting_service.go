package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/aggregate"
	"github.com/mamadbah2/pondwatch/internal/domain/models"
	"github.com/mamadbah2/pondwatch/internal/repository"
	repo "github.com/mamadbah2/pondwatch/internal/repository/sheets"
)

const dateLayout = "2006-01-02"

// Store is what the daily report reads and writes.
type Store interface {
	repository.Reader
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
}

// Sender delivers a report over WhatsApp.
type Sender interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Options wires a Service. Sheets and Sender are optional.
type Options struct {
	Store    Store
	Sheets   repo.Repository
	Sender   Sender
	Prices   aggregate.Prices
	Location *time.Location
	Now      func() time.Time
	Logger   *zap.Logger
}

// Service builds the end-of-day summary for every farmer.
type Service struct {
	store  Store
	sheets repo.Repository
	sender Sender
	prices aggregate.Prices
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(opts Options) *Service {
	s := &Service{
		store:  opts.Store,
		sheets: opts.Sheets,
		sender: opts.Sender,
		prices: opts.Prices,
		loc:    opts.Location,
		now:    opts.Now,
		logger: opts.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.prices == (aggregate.Prices{}) {
		s.prices = aggregate.DefaultPrices
	}
	return s
}

// BuildReport summarizes the session's ponds for the calendar day of now.
func (s *Service) BuildReport(ctx context.Context, session models.Session, now time.Time) (models.DailyReport, error) {
	fleet, err := repository.LoadFleet(ctx, s.store, repository.ScopeFor(session))
	if err != nil {
		return models.DailyReport{}, fmt.Errorf("load fleet for %s: %w", session.UserID, err)
	}

	counts := aggregate.Fleet(fleet.Ponds)
	today := aggregate.TodayFeeding(fleet.Schedules, now, s.loc)
	water := aggregate.WaterQuality(fleet.Water)

	revenue := 0
	for _, m := range aggregate.Metrics(fleet.Ponds, fleet.Health, fleet.Water, s.prices) {
		revenue += m.EstimatedRevenue
	}

	local := now.In(s.loc)
	return models.DailyReport{
		Date:             time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc),
		UserID:           session.UserID,
		TotalPonds:       counts.TotalPonds,
		ActivePonds:      counts.ActivePonds,
		TotalFish:        counts.TotalFish,
		FeedingsTotal:    today.Total,
		FeedingsDone:     today.Completed,
		FeedKg:           today.FeedKg,
		FeedingEff:       today.Efficiency,
		Alerts:           aggregate.Alerts(fleet.Ponds).Count,
		HealthTrend:      string(aggregate.HealthTrend(fleet.Health)),
		AvgTemperature:   water.AverageTemperature,
		AvgPH:            water.AveragePH,
		EstimatedRevenue: revenue,
		CreatedAt:        now,
	}, nil
}

// RunDaily builds, stores, exports and sends the report of every profile
// that owns ponds. A failure for one farmer does not stop the others.
func (s *Service) RunDaily(ctx context.Context) error {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}

	now := s.now()
	var errs []error
	sent := 0

	for _, profile := range profiles {
		session, err := models.SessionFor(profile)
		if err != nil {
			s.logger.Warn("skip profile with unknown role", zap.String("user_id", profile.ID), zap.Error(err))
			continue
		}

		report, err := s.BuildReport(ctx, session, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if report.TotalPonds == 0 {
			continue
		}

		if err := s.deliver(ctx, profile, report); err != nil {
			s.logger.Error("daily report failed", zap.String("user_id", profile.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		sent++
	}

	s.logger.Info("daily reports done", zap.Int("profiles", len(profiles)), zap.Int("reports", sent), zap.Int("failures", len(errs)))
	return errors.Join(errs...)
}

func (s *Service) deliver(ctx context.Context, profile models.Profile, report models.DailyReport) error {
	if err := s.store.SaveDailyReport(ctx, report); err != nil {
		return fmt.Errorf("save report for %s: %w", profile.ID, err)
	}

	// Export and delivery are best effort once the report is stored.
	if s.sheets != nil {
		if err := s.sheets.AppendDailyReport(ctx, report); err != nil {
			s.logger.Warn("sheets export failed", zap.String("user_id", profile.ID), zap.Error(err))
		}
	}

	if s.sender != nil && profile.Phone != "" {
		req := models.OutboundMessageRequest{To: profile.Phone, Message: FormatReport(profile.FullName, report)}
		if err := s.sender.SendOutbound(ctx, req); err != nil {
			s.logger.Warn("report delivery failed", zap.String("user_id", profile.ID), zap.Error(err))
		}
	}
	return nil
}

// FormatReport renders a report as a WhatsApp message.
func FormatReport(name string, r models.DailyReport) string {
	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "📊 Bilan du %s pour %s\n", r.Date.Format(dateLayout), name)
	} else {
		fmt.Fprintf(&b, "📊 Bilan du %s\n", r.Date.Format(dateLayout))
	}
	fmt.Fprintf(&b, "Étangs: %d (%d actifs), %d poissons\n", r.TotalPonds, r.ActivePonds, r.TotalFish)
	fmt.Fprintf(&b, "Repas: %d/%d faits, %.1f kg (%.2f%%)\n", r.FeedingsDone, r.FeedingsTotal, r.FeedKg, r.FeedingEff)
	fmt.Fprintf(&b, "Alertes: %d | Tendance santé: %s\n", r.Alerts, r.HealthTrend)
	if r.AvgTemperature != nil {
		fmt.Fprintf(&b, "Température moyenne: %.1f°C\n", *r.AvgTemperature)
	}
	if r.AvgPH != nil {
		fmt.Fprintf(&b, "pH moyen: %.2f\n", *r.AvgPH)
	}
	fmt.Fprintf(&b, "Revenu estimé: %d GNF", r.EstimatedRevenue)
	return b.String()
}
