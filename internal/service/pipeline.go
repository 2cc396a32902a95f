package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streamreact/companion/internal/domain"
	"github.com/streamreact/companion/internal/protocol"
	"github.com/streamreact/companion/internal/trigger"
)

// Dispatch runs one inbound event for the session that sent it. Rejected
// events are reported to the sender only and the returned error classifies
// the rejection; a rejected event never affects other sessions.
func (s *Service) Dispatch(ctx context.Context, sessionID string, ev protocol.Inbound) error {
	s.metrics.ObserveEvent(ev.EventName())

	switch e := ev.(type) {
	case protocol.Authenticate:
		return s.authenticate(sessionID, e)
	case protocol.ChatSubmit:
		return s.chat(ctx, sessionID, e)
	case protocol.DonationSubmit:
		return s.donate(ctx, sessionID, e)
	case protocol.SignalRelay:
		return s.relaySignal(sessionID, e)
	case protocol.JoinRoom:
		return s.joinRoom(sessionID, e)
	case protocol.LeaveRoom:
		s.out.Leave(sessionID, e.RoomID)
		return nil
	case protocol.Disconnect:
		s.sessions.Unregister(sessionID)
		return nil
	default:
		err := fmt.Errorf("%w: unsupported event %s", domain.ErrValidation, ev.EventName())
		s.notifyError(sessionID, err.Error())
		return err
	}
}

// Reject reports an event that could not be decoded.
func (s *Service) Reject(sessionID string, err error) {
	s.notifyError(sessionID, err.Error())
}

func (s *Service) authenticate(sessionID string, e protocol.Authenticate) error {
	identity, err := s.verifier.Verify(e.Token)
	if err != nil {
		s.reply(sessionID, protocol.Outbound{Event: protocol.EventAuthenticated, Data: protocol.AuthenticatedPayload{
			Success: false,
			Error:   domain.ErrVerification.Error(),
		}})
		return err
	}

	if !s.sessions.Bind(sessionID, *identity) {
		return fmt.Errorf("%w: unknown session", domain.ErrUnauthenticated)
	}
	s.log.Info("session authenticated",
		zap.String("session_id", sessionID),
		zap.String("user_id", identity.ID),
		zap.String("role", string(identity.Role)))

	s.reply(sessionID, protocol.Outbound{Event: protocol.EventAuthenticated, Data: protocol.AuthenticatedPayload{
		Success: true,
		User:    identity,
	}})
	return nil
}

func (s *Service) chat(ctx context.Context, sessionID string, e protocol.ChatSubmit) error {
	identity, ok := s.sessions.IdentityOf(sessionID)
	if !ok {
		s.notifyError(sessionID, domain.ErrUnauthenticated.Error())
		return domain.ErrUnauthenticated
	}

	content := strings.TrimSpace(e.Content)
	if content == "" {
		return s.rejectInvalid(sessionID, "message must not be empty")
	}
	if utf8.RuneCountInString(content) > s.config.ChatMaxLength {
		return s.rejectInvalid(sessionID, fmt.Sprintf("message longer than %d characters", s.config.ChatMaxLength))
	}

	msg := &domain.ChatMessage{
		ID:         uuid.New().String(),
		Content:    content,
		AuthorID:   identity.ID,
		AuthorName: identity.Username,
		Avatar:     identity.Avatar,
		Kind:       domain.MessageKindText,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		s.log.Error("failed to persist chat message", zap.String("session_id", sessionID), zap.Error(err))
		s.notifyError(sessionID, "error sending message")
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	s.broadcast(protocol.NewChatMessage(msg))

	if t, ok := s.matchTrigger(ctx, content); ok {
		s.log.Debug("trigger matched", zap.String("keyword", t.Keyword), zap.String("category", t.Category))
		s.react(domain.Reaction{
			VideoURL:    t.VideoURL,
			Category:    t.Category,
			TriggeredBy: identity.Username,
			Message:     content,
		})
	}
	return nil
}

func (s *Service) donate(ctx context.Context, sessionID string, e protocol.DonationSubmit) error {
	identity, ok := s.sessions.IdentityOf(sessionID)
	if !ok {
		s.notifyError(sessionID, domain.ErrUnauthenticated.Error())
		return domain.ErrUnauthenticated
	}
	if err := domain.CheckAmount(e.Amount); err != nil {
		s.notifyError(sessionID, err.Error())
		return err
	}
	if !e.Amount.IsPositive() {
		return s.rejectInvalid(sessionID, "amount must be positive")
	}

	donation := &domain.Donation{
		ID:         uuid.New().String(),
		Amount:     e.Amount,
		Message:    strings.TrimSpace(e.Message),
		AuthorID:   identity.ID,
		AuthorName: identity.Username,
	}
	if err := s.store.CreateDonation(ctx, donation); err != nil {
		s.log.Error("failed to persist donation", zap.String("session_id", sessionID), zap.Error(err))
		s.notifyError(sessionID, "error processing donation")
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	s.broadcast(protocol.NewDonationReceived(donation))

	if t, ok := s.donationTrigger(ctx); ok {
		amount := donation.Amount
		s.react(domain.Reaction{
			VideoURL:    t.VideoURL,
			Category:    domain.CategoryDonation,
			TriggeredBy: identity.Username,
			Amount:      &amount,
		})
	}
	return nil
}

func (s *Service) relaySignal(sessionID string, e protocol.SignalRelay) error {
	n, err := s.out.SendJSONToRoom(e.RoomID, sessionID, protocol.Outbound{
		Event: protocol.EventSignal,
		Data: protocol.SignalPayload{
			Type:   e.Kind,
			Signal: e.Payload,
			UserID: e.SenderID,
		},
	})
	if err != nil {
		s.log.Error("failed to relay signal", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	s.log.Debug("signal relayed", zap.String("room_id", e.RoomID), zap.Int("recipients", n))
	return nil
}

func (s *Service) joinRoom(sessionID string, e protocol.JoinRoom) error {
	if err := s.out.Join(sessionID, e.RoomID); err != nil {
		s.notifyError(sessionID, err.Error())
		return err
	}
	return nil
}

func (s *Service) matchTrigger(ctx context.Context, text string) (*domain.Trigger, bool) {
	return trigger.Match(text, s.activeTriggers(ctx))
}

func (s *Service) donationTrigger(ctx context.Context) (*domain.Trigger, bool) {
	return trigger.FirstInCategory(domain.CategoryDonation, s.activeTriggers(ctx))
}

// activeTriggers serves matching from memory. Only the first event after
// startup reads the store, and a failure there is logged and treated as no
// triggers.
func (s *Service) activeTriggers(ctx context.Context) []domain.Trigger {
	if triggers, loaded := s.triggers.Snapshot(); loaded {
		return triggers
	}
	if err := s.triggers.Refresh(ctx); err != nil {
		s.log.Warn("trigger lookup failed", zap.Error(err))
		return nil
	}
	triggers, _ := s.triggers.Snapshot()
	return triggers
}

func (s *Service) react(r domain.Reaction) {
	s.broadcast(protocol.NewReaction(r))
	s.metrics.ObserveReaction(r.Category)
}

func (s *Service) broadcast(frame protocol.Outbound) {
	if err := s.out.BroadcastJSON(frame); err != nil {
		s.log.Error("failed to broadcast", zap.String("event", frame.Event), zap.Error(err))
	}
}

func (s *Service) reply(sessionID string, frame protocol.Outbound) {
	if err := s.out.SendJSONToConnection(sessionID, frame); err != nil {
		s.log.Debug("failed to reply", zap.String("session_id", sessionID), zap.String("event", frame.Event), zap.Error(err))
	}
}

func (s *Service) notifyError(sessionID, message string) {
	s.reply(sessionID, protocol.NewError(message))
}

func (s *Service) rejectInvalid(sessionID, reason string) error {
	err := fmt.Errorf("%w: %s", domain.ErrValidation, reason)
	s.notifyError(sessionID, reason)
	return err
}

// IsClientError reports whether err was caused by the sender rather than by
// the server.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrUnauthenticated) ||
		errors.Is(err, domain.ErrVerification) ||
		errors.Is(err, domain.ErrRateLimited)
}
