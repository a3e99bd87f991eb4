package service

import (
	"context"
	"errors"
	"time"

	"shahid/internal/audit"
	"shahid/internal/directory/models"
	"shahid/internal/directory/store/event"
	identitymodels "shahid/internal/identity/models"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/sentinel"
	"shahid/pkg/requestcontext"
)

// CreateEvent adds an event. Same approval rule as people: admins publish
// immediately, everyone else queues.
func (s *Service) CreateEvent(ctx context.Context, title, description string, date time.Time) (*models.Event, error) {
	e, err := models.NewEvent(id.NewEventID(), requestcontext.UserID(ctx), title,
		description, date, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if isAdmin(ctx) {
		e.Status = models.StatusApproved
	}

	if err := s.events.Create(ctx, e); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create event")
	}
	if s.metrics != nil {
		s.metrics.EventsCreated.WithLabelValues(string(e.Status)).Inc()
	}
	return e, nil
}

// GetEvent hides pending events from everyone but the creator and admins.
func (s *Service) GetEvent(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	e, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, wrapEventErr(err)
	}
	if !e.IsApproved() && !isAdmin(ctx) && e.CreatedBy != requestcontext.UserID(ctx) {
		return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
	}
	return e, nil
}

// ListEvents returns approved events; admins may filter by status.
func (s *Service) ListEvents(ctx context.Context, status string, limit, offset int) ([]*models.Event, error) {
	filter := event.ListFilter{Limit: limit, Offset: offset}

	approved := models.StatusApproved
	switch {
	case !isAdmin(ctx):
		filter.Status = &approved
	case status != "":
		st := models.DirectoryStatus(status)
		if st != models.StatusPending && st != models.StatusApproved {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown directory status")
		}
		filter.Status = &st
	}

	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, nil
}

// ApproveEvent publishes a pending event.
func (s *Service) ApproveEvent(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	now := requestcontext.Now(ctx)
	e, err := s.events.Execute(ctx, eventID,
		func(e *models.Event) error {
			if err := e.CanApprove(); err != nil {
				return dErrors.New(dErrors.CodeConflict, err.Error())
			}
			return nil
		},
		func(e *models.Event) {
			e.ApplyApproval(now)
		},
	)
	if err != nil {
		return nil, wrapEventErr(err)
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionEventStatusChange,
		ActorID: requestcontext.UserID(ctx),
		Metadata: map[string]string{
			"event_id": eventID.String(),
			"to":       string(models.StatusApproved),
		},
	})
	if s.metrics != nil {
		s.metrics.Approvals.WithLabelValues("event").Inc()
	}
	return e, nil
}

// AssignJournalist links a journalist account to an event. The account must
// hold the journalist role; admins do not qualify as coverage.
func (s *Service) AssignJournalist(ctx context.Context, eventID id.EventID, userID id.UserID) (*models.Event, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "user lookup failed")
	}
	if user.Role != identitymodels.RoleJournalist {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event journalists must hold the journalist role")
	}

	now := requestcontext.Now(ctx)
	e, err := s.events.Execute(ctx, eventID,
		func(e *models.Event) error {
			if e.HasJournalist(userID) {
				return dErrors.New(dErrors.CodeConflict, "journalist is already assigned")
			}
			return nil
		},
		func(e *models.Event) {
			e.ApplyJournalist(userID, now)
		},
	)
	if err != nil {
		return nil, wrapEventErr(err)
	}
	return e, nil
}

// AddParticipant links a directory person to an event.
func (s *Service) AddParticipant(ctx context.Context, eventID id.EventID, personID id.PersonID) (*models.Event, error) {
	if _, err := s.people.FindByID(ctx, personID); err != nil {
		return nil, wrapPersonErr(err)
	}

	now := requestcontext.Now(ctx)
	e, err := s.events.Execute(ctx, eventID,
		func(e *models.Event) error {
			if e.HasParticipant(personID) {
				return dErrors.New(dErrors.CodeConflict, "person is already a participant")
			}
			return nil
		},
		func(e *models.Event) {
			e.ApplyParticipant(personID, now)
		},
	)
	if err != nil {
		return nil, wrapEventErr(err)
	}
	return e, nil
}

// DeleteEvent removes an event.
func (s *Service) DeleteEvent(ctx context.Context, eventID id.EventID) error {
	if err := s.events.Delete(ctx, eventID); err != nil {
		return wrapEventErr(err)
	}
	s.emit(ctx, audit.Event{
		Action:   audit.ActionEventStatusChange,
		ActorID:  requestcontext.UserID(ctx),
		Metadata: map[string]string{"event_id": eventID.String(), "to": "deleted"},
	})
	return nil
}

func wrapEventErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "event not found")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "event store failure")
	}
}
