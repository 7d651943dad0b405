package core

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"leadboard-go/internal/models"
)

// SessionService owns the startup sign-in and forwards identity changes as AuthResolved.
type SessionService struct {
	provider     IdentityProvider
	logger       *zap.Logger
	token        string
	bootstrapUID string
	minter       TokenMinter

	signInOnce sync.Once
}

// SessionOption configures a SessionService.
type SessionOption func(*SessionService)

// WithBootstrapToken signs in with a custom token instead of anonymously.
func WithBootstrapToken(token string) SessionOption {
	return func(s *SessionService) { s.token = token }
}

// WithBootstrapUID mints a custom token for uid when no bootstrap token is given.
func WithBootstrapUID(minter TokenMinter, uid string) SessionOption {
	return func(s *SessionService) {
		s.minter = minter
		s.bootstrapUID = uid
	}
}

// NewSessionService creates a SessionService on provider.
func NewSessionService(provider IdentityProvider, logger *zap.Logger, opts ...SessionOption) *SessionService {
	s := &SessionService{provider: provider, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start signs in if nobody is signed in, then forwards identity changes to sink.
// The sign-in is attempted once per process; a failure is dispatched as an auth
// error and never retried. The returned func stops the forwarding.
func (s *SessionService) Start(ctx context.Context, sink EventSink) func() {
	var signInErr error
	if s.provider.CurrentPrincipal() == nil {
		s.signInOnce.Do(func() {
			signInErr = s.signIn(ctx)
		})
	}
	stop := s.provider.OnIdentityChanged(func(p *models.Principal) {
		sink.Dispatch(AuthResolved{Principal: p})
	})
	if signInErr != nil {
		s.logger.Error("Sign-in failed", zap.Error(signInErr))
		sink.Dispatch(Failed{Err: NewDashboardError(ErrKindAuth, signInErr)})
	}
	return stop
}

func (s *SessionService) signIn(ctx context.Context) error {
	token := s.token
	if token == "" && s.bootstrapUID != "" {
		if s.minter == nil {
			return errors.New("bootstrap UID set without a token minter")
		}
		minted, err := s.minter.CustomToken(ctx, s.bootstrapUID)
		if err != nil {
			return err
		}
		token = minted
	}
	if token != "" {
		_, err := s.provider.SignInWithCustomToken(ctx, token)
		return err
	}
	_, err := s.provider.SignInAnonymously(ctx)
	return err
}

// SignOut ends the provider session. The provider's identity change drives the view to login.
func (s *SessionService) SignOut(ctx context.Context) error {
	return s.provider.SignOut(ctx)
}

func (s *SessionService) CurrentPrincipal() *models.Principal {
	return s.provider.CurrentPrincipal()
}
