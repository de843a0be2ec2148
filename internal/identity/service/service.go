package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "authbroker/pkg/domain-errors"
	"authbroker/pkg/platform/sentinel"
	"authbroker/pkg/requestcontext"
	"authbroker/pkg/secrets"

	"authbroker/internal/identity/metrics"
	"authbroker/internal/identity/models"
	"authbroker/internal/identity/store"
	jwttoken "authbroker/internal/jwt_token"
	"authbroker/internal/provider"
)

// TokenIssuer mints the signed credential returned to authenticated clients.
type TokenIssuer interface {
	Issue(userID, email string) (jwttoken.Credential, error)
}

// Service owns account lifecycle: reconciling OAuth profiles onto local
// accounts, password sign-up/sign-in, and profile updates.
type Service struct {
	users   store.UserStore
	issuer  TokenIssuer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewService(users store.UserStore, issuer TokenIssuer, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		users:   users,
		issuer:  issuer,
		logger:  logger,
		metrics: m,
	}
}

// Resolve maps a verified provider profile onto a local account. Resolution
// order: provider subject match, then verified-email link, then account
// creation. Calling it twice with the same profile yields the same user.
func (s *Service) Resolve(ctx context.Context, profile provider.Profile) (*models.User, error) {
	user, err := s.users.FindByGoogleID(ctx, profile.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity lookup failed")
	}

	// Email linking only trusts addresses the provider has verified.
	if profile.Email != "" && profile.EmailVerified {
		existing, err := s.users.FindByEmail(ctx, profile.Email)
		if err == nil {
			existing.GoogleID = profile.Subject
			if err := s.users.Update(ctx, existing); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to link oauth identity")
			}
			s.metrics.IncUsersLinked()
			s.logger.InfoContext(ctx, "linked oauth identity to existing account",
				"request_id", requestcontext.RequestID(ctx),
				"user_id", existing.ID,
			)
			return existing, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity lookup failed")
		}
	}

	firstName, lastName := models.SplitDisplayName(profile.DisplayName)
	now := time.Now()
	user = &models.User{
		ID:        uuid.New(),
		FirstName: firstName,
		LastName:  lastName,
		Email:     profile.Email,
		GoogleID:  profile.Subject,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent callback for the same profile may have created the
		// account between our lookup and this insert.
		if errors.Is(err, sentinel.ErrConflict) {
			if existing, lookupErr := s.users.FindByGoogleID(ctx, profile.Subject); lookupErr == nil {
				return existing, nil
			}
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user account")
	}

	s.metrics.IncUsersCreated()
	s.logger.InfoContext(ctx, "created user from oauth profile",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", user.ID,
	)
	return user, nil
}

// SignUpRequest carries the password registration fields.
type SignUpRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// AuthResult pairs the account summary with a freshly issued credential.
type AuthResult struct {
	User       models.Summary
	Credential jwttoken.Credential
}

// SignUp registers a password account and signs the user in.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "a valid email is required")
	}
	if len(req.Password) < 8 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "password must be at least 8 characters")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "a user with this email already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity lookup failed")
	}

	hash, err := secrets.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		ID:        uuid.New(),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     email,
		Password:  &models.PasswordCredential{Hash: hash},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if user.FirstName == "" {
		user.FirstName = "User"
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a user with this email already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user account")
	}

	s.metrics.IncUsersCreated()
	return s.authResult(user)
}

// SignIn authenticates a password account. OAuth-only accounts carry no
// password credential and can never pass this path.
func (s *Service) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no user with this email exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity lookup failed")
	}

	if user.Password == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "incorrect password")
	}
	if err := secrets.Verify(password, user.Password.Hash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "incorrect password")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "password verification failed")
	}

	s.metrics.IncSignIns()
	return s.authResult(user)
}

// UpdateProfileRequest carries the mutable profile fields. Empty fields are
// left unchanged.
type UpdateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// UpdateProfile applies the requested changes and reissues a credential so
// the client's token reflects the current email.
func (s *Service) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*AuthResult, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid user id")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity lookup failed")
	}

	if email := strings.TrimSpace(strings.ToLower(req.Email)); email != "" && email != user.Email {
		if _, lookupErr := s.users.FindByEmail(ctx, email); lookupErr == nil {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already taken")
		} else if !errors.Is(lookupErr, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(lookupErr, dErrors.CodeInternal, "identity lookup failed")
		}
		user.Email = email
	}
	if first := strings.TrimSpace(req.FirstName); first != "" {
		user.FirstName = first
	}
	if last := strings.TrimSpace(req.LastName); last != "" {
		user.LastName = last
	}
	user.UpdatedAt = time.Now()

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
	}

	return s.authResult(user)
}

func (s *Service) authResult(user *models.User) (*AuthResult, error) {
	credential, err := s.issuer.Issue(user.ID.String(), user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		User:       user.Summarize(),
		Credential: credential,
	}, nil
}
