package identity

import (
	"context"
	"errors"
	"fmt"
	"os"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"leadboard-go/internal/models"
)

const (
	anonymousSignInProvider = "anonymous"
	authEmulatorHostEnvVar  = "FIREBASE_AUTH_EMULATOR_HOST"
)

// FirebaseProvider signs the operator in through the Identity Toolkit REST API
// and verifies the resulting ID tokens with the Admin SDK.
type FirebaseProvider struct {
	toolkit *identitytoolkit.Service
	admin   *auth.Client
	logger  *zap.Logger

	listeners
}

// NewFirebaseProvider creates a provider that calls Identity Toolkit with apiKey.
func NewFirebaseProvider(ctx context.Context, apiKey string, admin *auth.Client, logger *zap.Logger) (*FirebaseProvider, error) {
	if admin == nil {
		return nil, errors.New("firebase auth client is required")
	}
	if apiKey == "" {
		return nil, errors.New("firebase web API key is required")
	}
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	// The Admin SDK follows the same variable, so both halves talk to the emulator.
	if host := os.Getenv(authEmulatorHostEnvVar); host != "" {
		opts = append(opts, option.WithEndpoint("http://"+host+"/www.googleapis.com/identitytoolkit/v3/relyingparty/"))
		logger.Info("Using the Firebase Auth emulator", zap.String("host", host))
	}
	svc, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity toolkit service: %w", err)
	}
	return &FirebaseProvider{toolkit: svc, admin: admin, logger: logger}, nil
}

func (p *FirebaseProvider) SignInAnonymously(ctx context.Context) (*models.Principal, error) {
	resp, err := p.toolkit.Relyingparty.
		SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("anonymous sign-up failed: %w", err)
	}
	return p.establish(ctx, resp.IdToken)
}

func (p *FirebaseProvider) SignInWithCustomToken(ctx context.Context, token string) (*models.Principal, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	resp, err := p.toolkit.Relyingparty.
		VerifyCustomToken(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyCustomTokenRequest{
			Token:             token,
			ReturnSecureToken: true,
		}).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("custom token exchange failed: %w", err)
	}
	return p.establish(ctx, resp.IdToken)
}

// CustomToken mints a custom token for uid with the Admin SDK.
func (p *FirebaseProvider) CustomToken(ctx context.Context, uid string) (string, error) {
	token, err := p.admin.CustomToken(ctx, uid)
	if err != nil {
		return "", fmt.Errorf("failed to mint custom token for '%s': %w", uid, err)
	}
	return token, nil
}

// SignOut forgets the principal. Firebase ID tokens are stateless, so nothing is revoked server-side.
func (p *FirebaseProvider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.set(nil)
	p.logger.Info("Signed out")
	return nil
}

func (p *FirebaseProvider) CurrentPrincipal() *models.Principal {
	return p.get()
}

func (p *FirebaseProvider) OnIdentityChanged(fn func(*models.Principal)) func() {
	return p.subscribe(fn)
}

func (p *FirebaseProvider) establish(ctx context.Context, idToken string) (*models.Principal, error) {
	if idToken == "" {
		return nil, errors.New("identity toolkit returned no ID token")
	}
	token, err := p.admin.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}
	principal := principalFromToken(token)

	p.logger.Info("Signed in",
		zap.String("uid", principal.UID),
		zap.Bool("anonymous", principal.Anonymous),
	)
	p.set(principal)
	return clonePrincipal(principal), nil
}

func principalFromToken(token *auth.Token) *models.Principal {
	return &models.Principal{
		UID:       token.UID,
		Anonymous: token.Firebase.SignInProvider == anonymousSignInProvider,
	}
}
