package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sentinel-iam/sentinel/internal/audit"
	"github.com/sentinel-iam/sentinel/internal/platform/httpx"
	"github.com/sentinel-iam/sentinel/internal/users"
)

// ErrInvalidCredentials is the single failure for every bad login: unknown
// username, wrong password, and deactivated account are indistinguishable
// so responses cannot be used to enumerate accounts.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Service validates username/password credentials.
type Service struct {
	store    users.RepositoryPort
	verifier *Verifier
	auditor  *audit.Recorder
}

// NewService constructs a Service.
func NewService(store users.RepositoryPort, verifier *Verifier, auditor *audit.Recorder) *Service {
	return &Service{store: store, verifier: verifier, auditor: auditor}
}

// Authenticate checks the credential pair and returns the matching user.
// Login failures collapse into ErrInvalidCredentials; a storage outage does
// not, because "we could not check" must stay distinguishable from "the
// credentials were wrong".
func (s *Service) Authenticate(ctx context.Context, username, password string) (*users.User, error) {
	username = users.NormalizeUsername(username)

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			s.auditor.Record(ctx, audit.Event{Action: audit.ActionLoginFailed, Subject: username})
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: find user: %v", httpx.ErrUnavailable, err)
	}
	if !user.IsActive || !s.verifier.Verify(password, user.PasswordHash) {
		s.auditor.Record(ctx, audit.Event{Action: audit.ActionLoginFailed, Subject: username})
		return nil, ErrInvalidCredentials
	}

	s.auditor.Record(ctx, audit.Event{ActorID: user.ID, Action: audit.ActionLoginSucceeded, Subject: username})
	return user, nil
}
