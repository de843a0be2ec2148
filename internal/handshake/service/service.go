package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	dErrors "authbroker/pkg/domain-errors"
	"authbroker/pkg/platform/sentinel"
	"authbroker/pkg/requestcontext"

	"authbroker/internal/handshake/handle"
	"authbroker/internal/handshake/metrics"
	"authbroker/internal/handshake/models"
	"authbroker/internal/handshake/store"
	identitymodels "authbroker/internal/identity/models"
	jwttoken "authbroker/internal/jwt_token"
	"authbroker/internal/provider"
)

// IdentityResolver maps a verified provider profile onto a local account,
// creating or linking one as needed.
type IdentityResolver interface {
	Resolve(ctx context.Context, profile provider.Profile) (*identitymodels.User, error)
}

// TokenIssuer mints the signed credential delivered to the polling client.
type TokenIssuer interface {
	Issue(userID, email string) (jwttoken.Credential, error)
}

// Service coordinates the three legs of an OAuth handshake: initiate,
// provider callback, and client poll. It owns no state of its own; every
// lifecycle fact lives in the injected store.
type Service struct {
	store    store.Store
	resolver IdentityResolver
	issuer   TokenIssuer
	baseURL  string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewService(
	handshakeStore store.Store,
	resolver IdentityResolver,
	issuer TokenIssuer,
	baseURL string,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		store:    handshakeStore,
		resolver: resolver,
		issuer:   issuer,
		baseURL:  baseURL,
		logger:   logger,
		metrics:  m,
	}
}

// InitiateResult is what the client needs to start the provider leg and later
// poll for the outcome.
type InitiateResult struct {
	Handle   string
	OAuthURL string
}

// Initiate registers a new Pending handshake and returns its handle together
// with the broker URL that starts the provider redirect.
func (s *Service) Initiate(ctx context.Context) (*InitiateResult, error) {
	record := &models.Record{
		Handle:      handle.New(),
		State:       models.StatePending,
		CreatedAt:   requestcontext.Now(ctx),
		Fingerprint: fingerprintFromContext(ctx),
	}

	if err := s.store.Put(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.logger.Error("generated handshake handle collided with a live record",
				"request_id", requestcontext.RequestID(ctx),
			)
			return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "handshake handle collision")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register handshake")
	}

	s.metrics.IncInitiated()
	s.logger.Info("handshake initiated",
		"request_id", requestcontext.RequestID(ctx),
	)

	return &InitiateResult{
		Handle:   record.Handle,
		OAuthURL: fmt.Sprintf("%s/auth/oauth/google?sessionId=%s", s.baseURL, url.QueryEscape(record.Handle)),
	}, nil
}

// CallbackResult carries the finalized identity and credential back to the
// callback handler for its informational response.
type CallbackResult struct {
	User       identitymodels.Summary
	Credential jwttoken.Credential
}

// CompleteCallback finalizes a handshake after a successful provider
// exchange. Reconciliation or issuance failures do not surface to the user
// agent as raw faults; they flip the record to Failed so the polling client
// observes a deterministic outcome.
func (s *Service) CompleteCallback(ctx context.Context, handleID string, profile provider.Profile) (*CallbackResult, error) {
	start := time.Now()

	user, err := s.resolver.Resolve(ctx, profile)
	if err != nil {
		s.failHandshake(ctx, handleID, "identity reconciliation failed", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity reconciliation failed")
	}

	credential, err := s.issuer.Issue(user.ID.String(), user.Email)
	if err != nil {
		s.failHandshake(ctx, handleID, "token issuance failed", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "token issuance failed")
	}

	summary := user.Summarize()
	err = s.store.Transition(ctx, handleID, models.StateCompleted, models.TerminalPayload{
		User:       &summary,
		Credential: &credential,
	})
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "handshake expired or unknown")
		case errors.Is(err, sentinel.ErrAlreadyTerminal):
			s.logger.Warn("callback arrived for an already finalized handshake",
				"request_id", requestcontext.RequestID(ctx),
			)
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "handshake already finalized")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to finalize handshake")
		}
	}

	s.metrics.IncCompleted()
	s.metrics.ObserveCallbackDuration(time.Since(start).Seconds())
	s.logger.Info("handshake completed",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", user.ID,
	)

	return &CallbackResult{User: summary, Credential: credential}, nil
}

// FailCallback marks a handshake Failed after the provider leg broke down
// (user denial, missing code, failed exchange).
func (s *Service) FailCallback(ctx context.Context, handleID string) {
	s.failHandshake(ctx, handleID, "provider callback failed", nil)
}

func (s *Service) failHandshake(ctx context.Context, handleID, reason string, cause error) {
	err := s.store.Transition(ctx, handleID, models.StateFailed, models.TerminalPayload{})
	switch {
	case err == nil:
		s.metrics.IncFailed()
		s.logger.Info("handshake failed",
			"request_id", requestcontext.RequestID(ctx),
			"reason", reason,
			"error", cause,
		)
	case errors.Is(err, sentinel.ErrNotFound):
		s.logger.Warn("failure arrived for an expired or unknown handshake",
			"request_id", requestcontext.RequestID(ctx),
			"reason", reason,
		)
	case errors.Is(err, sentinel.ErrAlreadyTerminal):
		s.logger.Warn("failure arrived for an already finalized handshake",
			"request_id", requestcontext.RequestID(ctx),
			"reason", reason,
		)
	default:
		s.logger.Error("failed to mark handshake as failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

// PollStatus is the deterministic outcome of one poll call.
type PollStatus string

const (
	PollCompleted PollStatus = "completed"
	PollFailed    PollStatus = "failed"
	PollPending   PollStatus = "pending"
	PollNotFound  PollStatus = "not_found"
)

// PollResult reports the handshake outcome. User and Credential are set only
// for PollCompleted.
type PollResult struct {
	Status     PollStatus
	User       *identitymodels.Summary
	Credential *jwttoken.Credential
}

// Poll reports the handshake outcome for the given handle. Terminal records
// are consumed on first observation, so among concurrent polls for one
// completed handshake exactly one receives the credential. Poll always lands
// in one of the four statuses; infrastructure faults degrade to not_found
// after being logged.
func (s *Service) Poll(ctx context.Context, handleID string) *PollResult {
	pending, err := s.store.PeekPending(ctx, handleID)
	if err != nil {
		s.logger.Error("failed to inspect handshake",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return &PollResult{Status: PollNotFound}
	}
	if pending {
		return &PollResult{Status: PollPending}
	}

	record, err := s.store.Consume(ctx, handleID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.Error("failed to consume handshake",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		return &PollResult{Status: PollNotFound}
	}

	if record.Fingerprint != "" {
		if fp := fingerprintFromContext(ctx); fp != "" && fp != record.Fingerprint {
			s.logger.Warn("handshake polled with a mismatched client fingerprint",
				"request_id", requestcontext.RequestID(ctx),
			)
			return &PollResult{Status: PollNotFound}
		}
	}

	if record.State == models.StateCompleted {
		s.metrics.IncConsumed()
		return &PollResult{
			Status:     PollCompleted,
			User:       record.User,
			Credential: record.Credential,
		}
	}
	return &PollResult{Status: PollFailed}
}

// fingerprintFromContext hashes the client IP and user agent captured by the
// metadata middleware. Empty when the request carried neither.
func fingerprintFromContext(ctx context.Context) string {
	ip := requestcontext.ClientIP(ctx)
	ua := requestcontext.UserAgent(ctx)
	if ip == "" && ua == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(ip + "|" + ua))
	return hex.EncodeToString(sum[:])
}
