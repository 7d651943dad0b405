package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leadboard-go/internal/models"
)

// ErrInvalidToken is returned when a custom token cannot be exchanged for a principal.
var ErrInvalidToken = errors.New("invalid custom token")

// LocalProvider is an in-process identity provider for the memory backend.
// Anonymous principals get a random UUID; a custom token is taken as the UID itself.
type LocalProvider struct {
	logger *zap.Logger
	listeners
}

// NewLocalProvider returns a signed-out LocalProvider.
func NewLocalProvider(logger *zap.Logger) *LocalProvider {
	return &LocalProvider{logger: logger}
}

func (p *LocalProvider) SignInAnonymously(ctx context.Context) (*models.Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	principal := &models.Principal{UID: uuid.NewString(), Anonymous: true}
	p.logger.Info("Signed in anonymously", zap.String("uid", principal.UID))
	p.set(principal)
	return clonePrincipal(principal), nil
}

func (p *LocalProvider) SignInWithCustomToken(ctx context.Context, token string) (*models.Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	uid := strings.TrimSpace(token)
	if uid == "" || strings.Contains(uid, "/") {
		return nil, ErrInvalidToken
	}
	principal := &models.Principal{UID: uid}
	p.logger.Info("Signed in with custom token", zap.String("uid", uid))
	p.set(principal)
	return clonePrincipal(principal), nil
}

// CustomToken mints a token that SignInWithCustomToken maps back to uid.
func (p *LocalProvider) CustomToken(_ context.Context, uid string) (string, error) {
	if uid == "" {
		return "", ErrInvalidToken
	}
	return uid, nil
}

func (p *LocalProvider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.set(nil)
	return nil
}

func (p *LocalProvider) CurrentPrincipal() *models.Principal {
	return p.get()
}

// OnIdentityChanged calls fn with the current principal right away and again after every change.
func (p *LocalProvider) OnIdentityChanged(fn func(*models.Principal)) func() {
	return p.subscribe(fn)
}
