package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/aggregate"
	"github.com/mamadbah2/pondwatch/internal/config"
	"github.com/mamadbah2/pondwatch/internal/domain/models"
	"github.com/mamadbah2/pondwatch/internal/repository"
	"github.com/mamadbah2/pondwatch/internal/service/analysis"
	"github.com/mamadbah2/pondwatch/internal/service/commands"
	"github.com/mamadbah2/pondwatch/pkg/clients/anthropic"
	client "github.com/mamadbah2/pondwatch/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Directory is the store surface the assistant reads.
type Directory interface {
	repository.Reader
	FindProfileByPhone(ctx context.Context, phone string) (models.Profile, error)
}

// Options wires a MetaWhatsAppService.
type Options struct {
	Config    config.WhatsAppConfig
	Client    client.Client
	Store     Directory
	Assistant *analysis.Service
	Commands  commands.Dispatcher
	Sessions  *SessionManager
	Prices    aggregate.Prices
	Location  *time.Location
	Now       func() time.Time
	Logger    *zap.Logger
}

// MetaWhatsAppService is the production implementation backed by WhatsApp
// Cloud API. Farmers are recognised by their profile phone number.
type MetaWhatsAppService struct {
	cfg       config.WhatsAppConfig
	client    client.Client
	store     Directory
	assistant *analysis.Service
	commands  commands.Dispatcher
	sessions  *SessionManager
	prices    aggregate.Prices
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(opts Options) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:       opts.Config,
		client:    opts.Client,
		store:     opts.Store,
		assistant: opts.Assistant,
		commands:  opts.Commands,
		sessions:  opts.Sessions,
		prices:    opts.Prices,
		loc:       opts.Location,
		now:       opts.Now,
		logger:    opts.Logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.sessions == nil {
		svc.sessions = NewSessionManager(DefaultMaxHistory)
	}
	if svc.loc == nil {
		svc.loc = time.Local
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.prices == (aggregate.Prices{}) {
		svc.prices = aggregate.DefaultPrices
	}
	return svc
}

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub.mode %s", mode)
	}

	if verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}

	return challenge, nil
}

// HandleWebhook processes inbound webhook payloads.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
			for _, status := range change.Value.Statuses {
				if status.Status == "failed" {
					s.logger.Warn("outbound message failed", zap.String("message_id", status.ID), zap.String("to", status.RecipientID))
				}
			}
		}
	}

	return firstErr
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	text := extractMessageText(msg)
	if text == "" {
		fields := []zap.Field{zap.String("type", msg.Type), zap.String("message_id", msg.ID)}
		if msg.Image != nil {
			fields = append(fields, zap.String("mime_type", msg.Image.MimeType))
		}
		s.logger.Debug("ignoring non-text message", fields...)
		return nil
	}

	reply, err := s.Reply(ctx, msg.From, text)
	if err != nil {
		return err
	}
	return s.send(ctx, msg.From, reply)
}

// Reply computes the answer to one inbound text from a phone number.
func (s *MetaWhatsAppService) Reply(ctx context.Context, phone, text string) (string, error) {
	profile, err := s.store.FindProfileByPhone(ctx, normalizePhone(phone))
	if errors.Is(err, repository.ErrNotFound) {
		return unknownNumberText, nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup profile: %w", err)
	}

	session, err := models.SessionFor(profile)
	if err != nil {
		return "", err
	}

	cmd := models.ParseCommand(text)
	s.logger.Info("parsed inbound command",
		zap.String("user_id", session.UserID),
		zap.String("command", string(cmd.Type)),
		zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandHelp:
		return helpText, nil
	case models.CommandReset:
		s.sessions.ClearSession(session.UserID)
		return "Conversation réinitialisée.", nil
	}

	if cmd.Writes() {
		return s.record(ctx, cmd, session)
	}

	fleet, err := repository.LoadFleet(ctx, s.store, repository.ScopeFor(session))
	if err != nil {
		return "", fmt.Errorf("load fleet for %s: %w", session.UserID, err)
	}
	metrics := aggregate.Metrics(fleet.Ponds, fleet.Health, fleet.Water, s.prices)

	switch cmd.Type {
	case models.CommandPonds:
		return formatPonds(metrics, aggregate.Fleet(fleet.Ponds)), nil
	case models.CommandAlerts:
		return formatAlerts(aggregate.Alerts(fleet.Ponds)), nil
	case models.CommandFeeding:
		return formatFeeding(aggregate.TodayFeeding(fleet.Schedules, s.now(), s.loc)), nil
	}

	if !s.assistant.Enabled() {
		return helpText, nil
	}

	history := s.sessions.History(session.UserID)
	answer, err := s.assistant.Ask(ctx, fleetSummary(metrics), history, cmd.Raw)
	if err != nil {
		return "Désolé, l'assistant est indisponible pour le moment. Réessayez plus tard.", nil
	}
	s.sessions.Append(session.UserID, anthropic.User(cmd.Raw), anthropic.Assistant(answer))
	return answer, nil
}

// record hands a logging command to the dispatcher. Argument and pond
// errors are answered in the chat.
func (s *MetaWhatsAppService) record(ctx context.Context, cmd models.Command, session models.Session) (string, error) {
	if s.commands == nil {
		return helpText, nil
	}

	reply, err := s.commands.HandleCommand(ctx, cmd, session)
	switch {
	case errors.Is(err, commands.ErrInvalidArguments):
		return usageText, nil
	case errors.Is(err, commands.ErrUnknownPond):
		return "Étang introuvable. Envoyez /ponds pour voir vos étangs.", nil
	case err != nil:
		return "", fmt.Errorf("%s command: %w", cmd.Type, err)
	}
	return reply, nil
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         req.To,
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	return err
}

func (s *MetaWhatsAppService) send(ctx context.Context, to, body string) error {
	if s.client == nil {
		s.logger.Warn("whatsapp client not configured, reply dropped", zap.String("to", to))
		return nil
	}
	return s.SendOutbound(ctx, models.OutboundMessageRequest{To: to, Message: body})
}

func extractMessageText(msg models.InboundMessage) string {
	if msg.Text != nil {
		return msg.Text.Body
	}

	if msg.Interactive != nil {
		if msg.Interactive.ButtonReply != nil {
			return msg.Interactive.ButtonReply.ID
		}
		if msg.Interactive.ListReply != nil {
			return msg.Interactive.ListReply.ID
		}
	}

	return ""
}

// normalizePhone maps a WhatsApp wa_id and a stored "+224 6.." number to
// the same digits-only form.
func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
