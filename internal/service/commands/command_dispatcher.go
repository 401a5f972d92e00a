package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/aggregate"
	"github.com/mamadbah2/pondwatch/internal/calc"
	"github.com/mamadbah2/pondwatch/internal/domain/models"
	"github.com/mamadbah2/pondwatch/internal/repository"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// ErrUnsupportedCommand indicates we do not yet support the requested command.
var ErrUnsupportedCommand = errors.New("unsupported command")

// ErrUnknownPond is returned when the named pond is not one of the sender's.
var ErrUnknownPond = errors.New("unknown pond")

const (
	defaultFeedType = "granulés"
	timeFormat      = "15:04"
)

// Dispatcher executes record-logging commands on behalf of a session.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, session models.Session) (string, error)
}

// Service implements the Dispatcher interface. Writes go through the store it
// is given, so a repository.NotifyingStore keeps mounted views fresh.
type Service struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService constructs a command dispatcher. A nil now uses time.Now.
func NewService(store repository.Store, now func() time.Time, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    now,
	}
}

// HandleCommand converts the command to its record representation and persists it.
// Every command takes the pond name or id as first argument.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, session models.Session) (string, error) {
	now := s.now().UTC()

	s.logger.Debug("dispatching command",
		zap.String("command", string(cmd.Type)),
		zap.String("user_id", session.UserID),
		zap.Strings("args", cmd.Args))

	if !cmd.Writes() {
		return "", ErrUnsupportedCommand
	}
	if len(cmd.Args) < 2 {
		return "", ErrInvalidArguments
	}

	pond, err := s.findPond(ctx, session, cmd.Args[0])
	if err != nil {
		return "", err
	}

	switch cmd.Type {
	case models.CommandFeed:
		schedule, err := buildFeeding(pond, cmd.Args[1:], now)
		if err != nil {
			return "", err
		}
		if err := s.store.InsertFeedingSchedule(ctx, schedule); err != nil {
			return "", fmt.Errorf("save feeding: %w", err)
		}
		message := fmt.Sprintf("Repas enregistré pour %s: %.2f kg de %s.", pond.Name, schedule.FeedAmountKg, schedule.FeedType)
		if ration := calc.FeedingAmount(pond.FishCount, pond.FishAgeDays); ration > 0 {
			message += fmt.Sprintf("\nRation conseillée: %.2f kg/jour.", ration)
		}
		return message, nil
	case models.CommandWater:
		log, err := buildWaterLog(pond, cmd.Args[1:], now)
		if err != nil {
			return "", err
		}
		pond.UpdatedAt = now
		if err := repository.RecordWaterQuality(ctx, s.store, pond, log); err != nil {
			return "", err
		}
		return waterMessage(pond, log), nil
	case models.CommandHealth:
		record, err := buildHealthRecord(pond, cmd.Args[1:], now)
		if err != nil {
			return "", err
		}
		if err := s.store.InsertHealthRecord(ctx, record); err != nil {
			return "", fmt.Errorf("save health record: %w", err)
		}
		message := fmt.Sprintf("Contrôle sanitaire enregistré pour %s: %s.", pond.Name, healthLabel(record.HealthStatus))
		summary := s.safeSummary(ctx, func(ctx context.Context) (string, error) {
			return s.healthSummary(ctx, session, pond.ID)
		})
		if summary != "" {
			message += "\n" + summary
		}
		return message, nil
	default:
		return "", ErrUnsupportedCommand
	}
}

// findPond matches a pond by id or case-insensitive name among the ponds the
// session may write to.
func (s *Service) findPond(ctx context.Context, session models.Session, ref string) (models.Pond, error) {
	ponds, err := s.store.ListPonds(ctx, repository.ScopeFor(session))
	if err != nil {
		return models.Pond{}, fmt.Errorf("list ponds: %w", err)
	}

	ref = strings.ToLower(ref)
	for _, p := range ponds {
		if p.ID == ref || strings.ToLower(p.Name) == ref || compact(p.Name) == ref {
			return p, nil
		}
	}
	return models.Pond{}, fmt.Errorf("%w: %s", ErrUnknownPond, ref)
}

// compact lowers a pond name and drops its spaces so "Etang Nord" is
// reachable as "etangnord" from a single token.
func compact(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", ""))
}

func buildFeeding(pond models.Pond, args []string, now time.Time) (models.FeedingSchedule, error) {
	amount, err := parseDecimal(args[0])
	if err != nil || amount <= 0 {
		return models.FeedingSchedule{}, ErrInvalidArguments
	}

	feedType := defaultFeedType
	if len(args) > 1 {
		feedType = strings.Join(args[1:], " ")
	}

	return models.FeedingSchedule{
		ID:           uuid.NewString(),
		PondID:       pond.ID,
		FeedingTime:  now.Format(timeFormat),
		FeedAmountKg: amount,
		FeedType:     feedType,
		Status:       models.FeedingCompleted,
		CreatedAt:    now,
	}, nil
}

func buildWaterLog(pond models.Pond, args []string, now time.Time) (models.WaterQualityLog, error) {
	temp, err := parseDecimal(args[0])
	if err != nil || temp < 0 || temp > 50 {
		return models.WaterQualityLog{}, ErrInvalidArguments
	}

	log := models.WaterQualityLog{
		ID:          uuid.NewString(),
		PondID:      pond.ID,
		Temperature: models.Float(temp),
		RecordedAt:  now,
	}

	if len(args) > 1 {
		ph, err := parseDecimal(args[1])
		if err != nil || ph < 0 || ph > 14 {
			return models.WaterQualityLog{}, ErrInvalidArguments
		}
		log.PH = models.Float(ph)
	}

	return log, nil
}

func buildHealthRecord(pond models.Pond, args []string, now time.Time) (models.HealthRecord, error) {
	status, ok := parseHealth(args[0])
	if !ok {
		return models.HealthRecord{}, ErrInvalidArguments
	}

	symptoms := ""
	if len(args) > 1 {
		symptoms = strings.Join(args[1:], " ")
	}

	return models.HealthRecord{
		ID:           uuid.NewString(),
		PondID:       pond.ID,
		HealthStatus: status,
		Symptoms:     symptoms,
		CreatedAt:    now,
	}, nil
}

// parseHealth accepts the stored status names and their French equivalents.
func parseHealth(word string) (models.HealthStatus, bool) {
	switch word {
	case "healthy", "sain", "bon":
		return models.HealthHealthy, true
	case "sick", "malade":
		return models.HealthSick, true
	case "critical", "critique":
		return models.HealthCritical, true
	}
	return "", false
}

func healthLabel(status models.HealthStatus) string {
	switch status {
	case models.HealthSick:
		return "malade"
	case models.HealthCritical:
		return "critique"
	default:
		return "sain"
	}
}

// parseDecimal accepts both "2.5" and "2,5".
func parseDecimal(raw string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
}

// waterMessage scores the pond on the same readings the dashboard uses: the
// new log, completed by the pond's declared values. pond is the state before
// the log was recorded.
func waterMessage(pond models.Pond, log models.WaterQualityLog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Relevé enregistré pour %s: %.1f°C", pond.Name, *log.Temperature)
	if log.PH != nil {
		fmt.Fprintf(&b, ", pH %.1f", *log.PH)
	}
	b.WriteString(".")

	r := aggregate.LatestReadings(pond, []models.WaterQualityLog{log})
	fmt.Fprintf(&b, "\nIndice qualité de l'eau: %d/100.", calc.WaterQualityIndex(r.Temperature, r.PH, r.DissolvedOxygen, r.Ammonia))

	pond.WaterTemperature = r.Temperature
	pond.PHLevel = r.PH
	if alerts := aggregate.Alerts([]models.Pond{pond}); alerts.Count > 0 {
		alert := alerts.Ponds[0]
		if alert.Temperature {
			b.WriteString("\n⚠️ Température hors de la plage optimale (26-30°C).")
		}
		if alert.PH {
			b.WriteString("\n⚠️ pH hors de la plage optimale (6.5-8.5).")
		}
	}
	return b.String()
}

func (s *Service) healthSummary(ctx context.Context, session models.Session, pondID string) (string, error) {
	records, err := s.store.ListHealthRecords(ctx, repository.ScopeFor(session))
	if err != nil {
		return "", err
	}

	var pondRecords []models.HealthRecord
	for _, r := range records {
		if r.PondID == pondID {
			pondRecords = append(pondRecords, r)
		}
	}
	if len(pondRecords) < 2 {
		return "", nil
	}

	switch aggregate.HealthTrend(pondRecords) {
	case aggregate.TrendImproving:
		return "Tendance: en amélioration.", nil
	case aggregate.TrendDeclining:
		return "Tendance: en dégradation, surveillez l'étang de près.", nil
	default:
		return "Tendance: stable.", nil
	}
}

func (s *Service) safeSummary(ctx context.Context, fn func(context.Context) (string, error)) string {
	if fn == nil {
		return ""
	}

	summary, err := fn(ctx)
	if err != nil {
		s.logger.Debug("follow-up summary failed", zap.Error(err))
		return ""
	}

	return summary
}
