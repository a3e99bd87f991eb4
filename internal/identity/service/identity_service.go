package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"shahid/internal/audit"
	"shahid/internal/identity/models"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/platform/sentinel"
	"shahid/pkg/requestcontext"
)

const (
	minPasswordLength = 8
	maxDocumentBytes  = 10 << 20
)

// documentTypes are the MIME types accepted for identity documents.
var documentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// AuthResult is returned by Authenticate.
type AuthResult struct {
	Token string
	User  *models.User
}

// Register creates an account with the normal role.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if len(password) < minPasswordLength {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	user, err := models.NewUser(id.NewUserID(), username, strings.TrimSpace(email), string(hash), requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) || dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "username or email is already taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	if s.metrics != nil {
		s.metrics.Registrations.Inc()
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Authenticate verifies credentials and issues an access token. Failed
// attempts count toward the lockout threshold; a successful login resets it.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*AuthResult, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveAuthenticate(start)
		}
	}()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "username and password are required")
	}

	if s.lockout != nil {
		if err := s.lockout.Check(ctx, username); err != nil {
			s.incrementLogin("locked_out")
			return nil, err
		}
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.failAuth(ctx, username, "bad_credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, s.failAuth(ctx, username, "bad_credentials")
	}

	if user.Banned {
		s.incrementLogin("banned")
		s.emit(ctx, audit.Event{
			Action:       audit.ActionAuthFailed,
			TargetUserID: user.ID,
			Reason:       "account is banned",
		})
		return nil, dErrors.New(dErrors.CodeForbidden, "account is banned")
	}

	if s.lockout != nil {
		if err := s.lockout.Reset(ctx, username); err != nil {
			s.logger.WarnContext(ctx, "lockout reset failed", "error", err)
		}
	}

	tokenString, err := s.tokens.Issue(user, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.incrementLogin("success")
	return &AuthResult{Token: tokenString, User: user}, nil
}

func (s *Service) failAuth(ctx context.Context, username, outcome string) error {
	s.incrementLogin(outcome)
	if s.lockout != nil {
		if err := s.lockout.RecordFailure(ctx, username); err != nil {
			s.logger.WarnContext(ctx, "lockout record failed", "error", err)
		}
	}
	s.emit(ctx, audit.Event{
		Action:   audit.ActionAuthFailed,
		Metadata: map[string]string{"username": username},
	})
	// Same message for unknown user and wrong password.
	return dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
}

// Logout revokes the presented token by its JWT ID.
func (s *Service) Logout(ctx context.Context, jti string) error {
	if err := s.tokens.Revoke(ctx, jti); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	s.emit(ctx, audit.Event{
		Action:  audit.ActionTokenRevoked,
		ActorID: requestcontext.UserID(ctx),
	})
	return nil
}

// GetUser loads an account by id.
func (s *Service) GetUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// ChangePassword verifies the current password before setting a new one.
func (s *Service) ChangePassword(ctx context.Context, userID id.UserID, current, next string) error {
	if len(next) < minPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := requestcontext.Now(ctx)
	_, err = s.users.Execute(ctx, userID,
		func(*models.User) error { return nil },
		func(u *models.User) {
			u.PasswordHash = string(hash)
			u.UpdatedAt = now
		},
	)
	if err != nil {
		return wrapUserErr(err)
	}
	return nil
}

// UpdateProfile sets the account's bio.
func (s *Service) UpdateProfile(ctx context.Context, userID id.UserID, bio string) (*models.User, error) {
	now := requestcontext.Now(ctx)
	user, err := s.users.Execute(ctx, userID,
		func(*models.User) error {
			if len(bio) > 2000 {
				return dErrors.New(dErrors.CodeValidation, "bio must be 2000 characters or less")
			}
			return nil
		},
		func(u *models.User) {
			_ = u.ApplyBio(bio, now)
		},
	)
	if err != nil {
		return nil, wrapUserErr(err)
	}
	return user, nil
}

// UploadDocument stores an identity document after sniffing its content type.
// The intended role is kept on the account for the verification request.
func (s *Service) UploadDocument(ctx context.Context, userID id.UserID, filename string, content io.Reader, intendedRole string) (*models.User, error) {
	var intended models.Role
	if intendedRole != "" {
		parsed, err := models.ParseRole(intendedRole)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "intended role must be journalist or politician")
		}
		if !parsed.Requestable() {
			return nil, dErrors.New(dErrors.CodeValidation, "intended role must be journalist or politician")
		}
		intended = parsed
	}

	data, err := io.ReadAll(io.LimitReader(content, maxDocumentBytes+1))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read document")
	}
	if len(data) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "document is empty")
	}
	if len(data) > maxDocumentBytes {
		return nil, dErrors.New(dErrors.CodeValidation, "document exceeds the 10 MiB limit")
	}

	// Trust the bytes, not the filename extension.
	detected := mimetype.Detect(data)
	if !documentTypes[detected.String()] {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unsupported document type %s", detected.String())
	}

	path, err := storeDocument(userID, detected.Extension(), bytes.NewReader(data))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store document")
	}

	now := requestcontext.Now(ctx)
	user, err := s.users.Execute(ctx, userID,
		func(*models.User) error { return nil },
		func(u *models.User) {
			_ = u.ApplyDocument(path, intended, now)
		},
	)
	if err != nil {
		return nil, wrapUserErr(err)
	}

	s.logger.InfoContext(ctx, "identity document uploaded",
		"user_id", userID, "filename", filename,
		"mime", detected.String(), "intended_role", string(intended))
	return user, nil
}

func wrapUserErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "user store failure")
	}
}

func (s *Service) incrementLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementLogin(outcome)
	}
}

// storeDocument writes the document to local disk under uploads/uid_docs.
// Swappable for object storage later; the path recorded on the user is
// relative to the uploads root.
var storeDocument = writeLocalDocument

// The stored name carries the owner's id so a document can be traced back to
// its account without a database lookup.
func writeLocalDocument(userID id.UserID, ext string, r io.Reader) (string, error) {
	name := userID.String() + "_" + uuid.NewString() + ext
	return writeUploadFile("uid_docs", name, r)
}
