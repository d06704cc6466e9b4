package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/bakery/internal/config"
	"github.com/mamadbah2/bakery/internal/domain/models"
	"github.com/mamadbah2/bakery/internal/service/commands"
	client "github.com/mamadbah2/bakery/pkg/clients/whatsapp"
)

const (
	sendTimeout      = 10 * time.Second
	translateTimeout = 8 * time.Second
)

// Translator rewrites free text such as "baked a dozen croissants" into a
// command line the parser understands.
type Translator interface {
	TranslateToCommand(ctx context.Context, input string) (string, error)
}

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg        config.WhatsAppConfig
	client     client.Client
	dispatcher commands.Dispatcher
	sessions   *SessionManager
	translator Translator
	logger     *zap.Logger
}

// Option customises a MetaWhatsAppService.
type Option func(*MetaWhatsAppService)

// WithTranslator enables the free-text fallback for messages the command
// parser does not recognise.
func WithTranslator(t Translator) Option {
	return func(s *MetaWhatsAppService) { s.translator = t }
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, dispatcher commands.Dispatcher, logger *zap.Logger, opts ...Option) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:        cfg,
		client:     client,
		dispatcher: dispatcher,
		sessions:   NewSessionManager(defaultSessionTTL),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	svc.logger = svc.logger.Named("svc.whatsapp")
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
	if len(payload.Entry) == 0 {
		return nil
	}

	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if len(change.Value.Messages) == 0 {
				continue
			}

			for _, msg := range change.Value.Messages {
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}

	return firstErr
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	text := extractMessageText(msg)
	if text == "" {
		s.logger.Debug("ignoring message without text", zap.String("type", msg.Type), zap.String("message_id", msg.ID))
		return nil
	}

	// Meta redelivers webhooks it considers unacknowledged.
	if !s.sessions.Begin(msg.From, msg.ID) {
		s.logger.Info("skipping redelivered message", zap.String("message_id", msg.ID))
		return nil
	}

	cmd := models.ParseCommand(text)
	if cmd.Type == models.CommandUnknown && s.translator != nil {
		cmd = s.translate(ctx, cmd)
	}
	s.logger.Info("parsed inbound command",
		zap.String("from", msg.From),
		zap.String("command", string(cmd.Type)),
		zap.Any("args", cmd.Args))

	reply, err := s.dispatcher.HandleCommand(ctx, cmd, msg.From)
	if err != nil {
		// Let a redelivery retry the command.
		s.sessions.Forget(msg.From, msg.ID)
		s.logger.Error("command failed", zap.Error(err), zap.String("command", string(cmd.Type)))
		reply = "Sorry, the bakery records are unavailable right now. Please try again in a moment."
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if _, sendErr := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:   msg.From,
		Body: reply,
	}); sendErr != nil {
		return errors.Join(err, fmt.Errorf("reply to %s: %w", msg.From, sendErr))
	}
	return err
}

// translate asks the translator for a command line. The original unknown
// command is kept when translation fails or yields nothing usable, so the
// dispatcher still answers with the help text.
func (s *MetaWhatsAppService) translate(ctx context.Context, cmd models.Command) models.Command {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, translateTimeout)
	defer cancel()

	line, err := s.translator.TranslateToCommand(ctxWithTimeout, cmd.Raw)
	if err != nil {
		s.logger.Warn("free-text translation failed", zap.Error(err))
		return cmd
	}

	translated := models.ParseCommand(line)
	if translated.Type == models.CommandUnknown {
		return cmd
	}
	s.logger.Debug("translated free text", zap.String("raw", cmd.Raw), zap.String("command", line))
	return translated
}

// SendOutbound lets internal operators push quick notifications via HTTP.
// The daily digest is delivered through it as well.
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

func extractMessageText(msg models.InboundMessage) string {
	if msg.Text != nil {
		return msg.Text.Body
	}

	if msg.Interactive != nil && msg.Interactive.ButtonReply != nil {
		return msg.Interactive.ButtonReply.ID
	}

	return ""
}
