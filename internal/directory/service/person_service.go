package service

import (
	"context"
	"errors"

	"shahid/internal/audit"
	"shahid/internal/directory/models"
	"shahid/internal/directory/store/person"
	identitymodels "shahid/internal/identity/models"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/sentinel"
	"shahid/pkg/requestcontext"
)

func isAdmin(ctx context.Context) bool {
	return requestcontext.Role(ctx) == string(identitymodels.RoleAdmin)
}

// CreatePerson adds a directory entry. Admin submissions are approved on the
// spot; everything else waits in the moderation queue.
func (s *Service) CreatePerson(ctx context.Context, name, role, image string) (*models.Person, error) {
	personRole, err := models.ParsePersonRole(role)
	if err != nil {
		return nil, err
	}

	p, err := models.NewPerson(id.NewPersonID(), requestcontext.UserID(ctx), name,
		personRole, image, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if isAdmin(ctx) {
		p.Status = models.StatusApproved
	}

	if err := s.people.Create(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create person")
	}
	if s.metrics != nil {
		s.metrics.PeopleCreated.WithLabelValues(string(p.Status)).Inc()
	}
	return p, nil
}

// GetPerson hides pending entries from everyone but the submitter and admins.
func (s *Service) GetPerson(ctx context.Context, personID id.PersonID) (*models.Person, error) {
	p, err := s.people.FindByID(ctx, personID)
	if err != nil {
		return nil, wrapPersonErr(err)
	}
	if !p.IsApproved() && !isAdmin(ctx) && p.AddedBy != requestcontext.UserID(ctx) {
		return nil, dErrors.New(dErrors.CodeNotFound, "person not found")
	}
	return p, nil
}

// ListPeople returns approved entries; admins may filter by status.
func (s *Service) ListPeople(ctx context.Context, status, role string, limit, offset int) ([]*models.Person, error) {
	filter := person.ListFilter{Limit: limit, Offset: offset}

	if role != "" {
		personRole, err := models.ParsePersonRole(role)
		if err != nil {
			return nil, err
		}
		filter.Role = &personRole
	}

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

	people, err := s.people.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list people")
	}
	return people, nil
}

// ApprovePerson publishes a pending entry.
func (s *Service) ApprovePerson(ctx context.Context, personID id.PersonID) (*models.Person, error) {
	now := requestcontext.Now(ctx)
	p, err := s.people.Execute(ctx, personID,
		func(p *models.Person) error {
			if err := p.CanApprove(); err != nil {
				return dErrors.New(dErrors.CodeConflict, err.Error())
			}
			return nil
		},
		func(p *models.Person) {
			p.ApplyApproval(now)
		},
	)
	if err != nil {
		return nil, wrapPersonErr(err)
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionPersonStatusChange,
		ActorID: requestcontext.UserID(ctx),
		Metadata: map[string]string{
			"person_id": personID.String(),
			"to":        string(models.StatusApproved),
		},
	})
	if s.metrics != nil {
		s.metrics.Approvals.WithLabelValues("person").Inc()
	}
	return p, nil
}

// ChangePersonRole reclassifies an entry.
func (s *Service) ChangePersonRole(ctx context.Context, personID id.PersonID, role string) (*models.Person, error) {
	personRole, err := models.ParsePersonRole(role)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var previous models.PersonRole
	p, err := s.people.Execute(ctx, personID,
		func(p *models.Person) error {
			previous = p.Role
			if err := p.CanChangeRole(personRole); err != nil {
				return dErrors.New(dErrors.CodeConflict, err.Error())
			}
			return nil
		},
		func(p *models.Person) {
			p.ApplyRole(personRole, now)
		},
	)
	if err != nil {
		return nil, wrapPersonErr(err)
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionPersonRoleChange,
		ActorID: requestcontext.UserID(ctx),
		Metadata: map[string]string{
			"person_id": personID.String(),
			"from":      string(previous),
			"to":        string(personRole),
		},
	})
	return p, nil
}

// DeletePerson removes an entry from the directory.
func (s *Service) DeletePerson(ctx context.Context, personID id.PersonID) error {
	if err := s.people.Delete(ctx, personID); err != nil {
		return wrapPersonErr(err)
	}
	s.emit(ctx, audit.Event{
		Action:   audit.ActionPersonDeleted,
		ActorID:  requestcontext.UserID(ctx),
		Metadata: map[string]string{"person_id": personID.String()},
	})
	return nil
}

func wrapPersonErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "person not found")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "person store failure")
	}
}
