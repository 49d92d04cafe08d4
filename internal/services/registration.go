package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tradearena-io/tournament-engine/internal/db"
	"github.com/tradearena-io/tournament-engine/internal/db/model"
	"github.com/tradearena-io/tournament-engine/internal/observability/metrics"
	"github.com/tradearena-io/tournament-engine/internal/types"
)

// ApplyResult is the outcome of one registration event application.
type ApplyResult string

const (
	// ApplyResultApplied means the event caused exactly one state transition.
	ApplyResultApplied ApplyResult = "APPLIED"
	// ApplyResultReplay means the idempotency key was seen before; no-op.
	ApplyResultReplay ApplyResult = "REPLAY"
	// ApplyResultFull means a confirmed purchase hit a tournament at
	// capacity and was rejected without altering the count.
	ApplyResultFull ApplyResult = "REJECTED_FULL"
	// ApplyResultSkipped means the participant was not in a qualified
	// state (e.g. a cancellation after a refund); terminal states are final.
	ApplyResultSkipped ApplyResult = "SKIPPED"
)

// ApplyRegistrationEvent admits or removes a participant from a webhook
// delivery. The event document is stored before any side effect, keyed on
// the external event id, so at-least-once delivery collapses to at-most-once
// application. State transitions run under the tournament's serialization
// token and are followed by a ranking pass outside the critical section.
func (s *Service) ApplyRegistrationEvent(
	ctx context.Context, event *model.RegistrationEvent,
) (ApplyResult, error) {
	if !event.Type.Valid() {
		return "", types.NewPermanent(fmt.Errorf("unknown registration event type: %s", event.Type))
	}

	if err := s.db.SaveRegistrationEvent(ctx, event); err != nil {
		if db.IsDuplicateKeyError(err) {
			return s.applyRedelivered(ctx, event.ID)
		}
		return "", fmt.Errorf("failed to store registration event: %w", err)
	}

	return s.applyAndFinalize(ctx, event)
}

// applyRedelivered decides what a duplicate idempotency key means. An event
// whose apply completed is acknowledged as a no-op, but one whose first
// delivery stored the document and then failed to apply is retried from the
// stored document, so the provider's redelivery still lands the transition.
func (s *Service) applyRedelivered(ctx context.Context, eventID string) (ApplyResult, error) {
	stored, err := s.db.GetRegistrationEvent(ctx, eventID)
	if err != nil {
		return "", fmt.Errorf("failed to load stored registration event: %w", err)
	}

	if stored.Processed {
		metrics.IncWebhookReplay()
		log.Ctx(ctx).Info().
			Str("event_id", stored.ID).
			Stringer("event_type", stored.Type).
			Msg("Registration event replayed, acknowledging as no-op")
		return ApplyResultReplay, nil
	}

	log.Ctx(ctx).Warn().
		Str("event_id", stored.ID).
		Stringer("event_type", stored.Type).
		Msg("Redelivered registration event was stored but never applied, retrying apply")
	return s.applyAndFinalize(ctx, stored)
}

func (s *Service) applyAndFinalize(
	ctx context.Context, event *model.RegistrationEvent,
) (ApplyResult, error) {
	var result ApplyResult
	var applyErr error
	s.locks.Do(event.TournamentID, func() {
		result, applyErr = s.applyEventLocked(ctx, event)
	})
	if applyErr != nil {
		return "", applyErr
	}

	if err := s.db.MarkRegistrationEventProcessed(ctx, event.ID); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("event_id", event.ID).Msg("Failed to mark registration event processed")
	}

	// rankings must never observe a half-applied registration, but they
	// should observe an applied one promptly
	if result == ApplyResultApplied {
		if err := s.RankAndPublish(ctx, event.TournamentID); err != nil {
			log.Ctx(ctx).Error().Err(err).
				Str("tournament_id", event.TournamentID).
				Msg("Failed to rank after registration change")
		}
	}

	return result, nil
}

func (s *Service) applyEventLocked(
	ctx context.Context, event *model.RegistrationEvent,
) (ApplyResult, error) {
	switch event.Type {
	case types.EventRegistrationConfirmed:
		return s.applyConfirmed(ctx, event)
	case types.EventRegistrationCancelled:
		return s.applyDeactivation(ctx, event, types.QualifiedStatesForCancelled(), types.ParticipantInactiveCancelled)
	case types.EventRegistrationRefunded:
		return s.applyDeactivation(ctx, event, types.QualifiedStatesForRefunded(), types.ParticipantInactiveRefunded)
	default:
		// Valid() is checked at the entry point; this is unreachable
		return "", types.NewPermanent(fmt.Errorf("unhandled registration event type: %s", event.Type))
	}
}

func (s *Service) applyConfirmed(
	ctx context.Context, event *model.RegistrationEvent,
) (ApplyResult, error) {
	if err := s.db.IncrementTournamentParticipants(ctx, event.TournamentID); err != nil {
		if db.IsTournamentFullError(err) {
			metrics.IncRegistrationFull()
			log.Ctx(ctx).Warn().
				Str("tournament_id", event.TournamentID).
				Str("event_id", event.ID).
				Msg("Confirmed registration rejected, tournament at capacity")
			return ApplyResultFull, nil
		}
		if db.IsTournamentClosedError(err) {
			// a completed or cancelled tournament never admits again
			log.Ctx(ctx).Warn().
				Str("tournament_id", event.TournamentID).
				Str("event_id", event.ID).
				Msg("Confirmed registration skipped, tournament already closed")
			return ApplyResultSkipped, nil
		}
		return "", fmt.Errorf("failed to admit participant: %w", err)
	}

	participant := &model.Participant{
		ID:              event.ParticipantID,
		UserID:          event.UserID,
		TournamentID:    event.TournamentID,
		VenueAccountRef: event.VenueAccountRef,
		StartingBalance: event.StartingBalance,
		RegisteredAt:    event.ReceivedAt,
		State:           types.ParticipantActive,
	}
	if err := s.db.SaveParticipant(ctx, participant); err != nil {
		if db.IsDuplicateKeyError(err) {
			// the participant exists from an earlier pending purchase;
			// promote it instead
			if err := s.db.UpdateParticipantState(
				ctx, event.ParticipantID, types.QualifiedStatesForConfirmed(), types.ParticipantActive,
			); err != nil {
				if db.IsNotFoundError(err) {
					// already active or terminal; undo the admission
					if decErr := s.db.DecrementTournamentParticipants(ctx, event.TournamentID); decErr != nil {
						return "", fmt.Errorf("failed to roll back admission: %w", decErr)
					}
					return ApplyResultSkipped, nil
				}
				return "", fmt.Errorf("failed to activate pending participant: %w", err)
			}
			return ApplyResultApplied, nil
		}
		return "", fmt.Errorf("failed to save participant: %w", err)
	}

	return ApplyResultApplied, nil
}

// applyDeactivation deactivates without deleting, preserving historical
// standings for the participant's past rankings.
func (s *Service) applyDeactivation(
	ctx context.Context,
	event *model.RegistrationEvent,
	qualifiedStates []types.ParticipantState,
	newState types.ParticipantState,
) (ApplyResult, error) {
	err := s.db.UpdateParticipantState(ctx, event.ParticipantID, qualifiedStates, newState)
	if err != nil {
		if db.IsNotFoundError(err) {
			log.Ctx(ctx).Warn().
				Str("participant_id", event.ParticipantID).
				Stringer("event_type", event.Type).
				Msg("Deactivation skipped, participant missing or already terminal")
			return ApplyResultSkipped, nil
		}
		return "", fmt.Errorf("failed to deactivate participant: %w", err)
	}

	if err := s.db.DecrementTournamentParticipants(ctx, event.TournamentID); err != nil {
		return "", fmt.Errorf("failed to release tournament seat: %w", err)
	}
	return ApplyResultApplied, nil
}
