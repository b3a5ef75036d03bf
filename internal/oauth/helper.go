// Package oauth obtains and persists Google OAuth2 user credentials for the
// Vertex AI backend of the extraction demo.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Kjdragan/codescribe/internal/logger"
)

const (
	CredentialsFile = "credentials.json"
	TokenFile       = "token.json"
)

// Scopes requested during the consent flow.
var Scopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/generative-language",
}

var (
	ErrNoCredentials          = errors.New("oauth: no valid credentials could be obtained")
	ErrCredentialsFileMissing = errors.New("oauth: client credentials file not found")
)

// Authorizer runs the interactive consent flow for cfg and returns the token
// it exchanged.
type Authorizer interface {
	Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)
}

// Helper manages credentials.json (client secret, read only) and token.json
// (the persisted user credential) under one project directory. It takes no
// locks; one process at a time is assumed.
type Helper struct {
	credentialsPath string
	tokenPath       string
	authorizer      Authorizer
	log             zerolog.Logger
}

type Option func(*Helper)

func WithAuthorizer(a Authorizer) Option {
	return func(h *Helper) { h.authorizer = a }
}

func NewHelper(projectRoot string, opts ...Option) *Helper {
	if projectRoot == "" {
		projectRoot = "."
	}
	h := &Helper{
		credentialsPath: filepath.Join(projectRoot, CredentialsFile),
		tokenPath:       filepath.Join(projectRoot, TokenFile),
		log:             logger.Component("oauth"),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.authorizer == nil {
		h.authorizer = &LoopbackAuthorizer{}
	}
	return h
}

func (h *Helper) TokenPath() string { return h.tokenPath }
func (h *Helper) CredentialsPath() string { return h.credentialsPath }

// storedToken is the on-disk form. It follows Google's authorized_user
// layout so the file also works as GOOGLE_APPLICATION_CREDENTIALS.
type storedToken struct {
	Type         string    `json:"type"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	TokenURI     string    `json:"token_uri"`
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scopes       []string  `json:"scopes"`
}

func (s *storedToken) token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		Expiry:       s.Expiry,
	}
}

func (s *storedToken) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: s.TokenURI},
		Scopes:       s.Scopes,
	}
}

func newStoredToken(cfg *oauth2.Config, tok *oauth2.Token) *storedToken {
	return &storedToken{
		Type:         "authorized_user",
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURI:     cfg.Endpoint.TokenURL,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		Scopes:       cfg.Scopes,
	}
}

// GetCredentials returns a valid token, trying in order: the saved token,
// a refresh of the saved token, and the interactive flow. Whatever succeeds
// is written back to token.json.
func (h *Helper) GetCredentials(ctx context.Context) (*oauth2.Token, error) {
	stored, err := h.obtain(ctx)
	if err != nil {
		return nil, err
	}
	return stored.token(), nil
}

// TokenSource returns an auto-refreshing source seeded with the obtained
// credential.
func (h *Helper) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	stored, err := h.obtain(ctx)
	if err != nil {
		return nil, err
	}
	tok := stored.token()
	return oauth2.ReuseTokenSource(tok, stored.config().TokenSource(ctx, tok)), nil
}

// SetupEnvironment obtains credentials and returns the token file path for
// consumers that read Google credentials from a file.
func (h *Helper) SetupEnvironment(ctx context.Context) (string, error) {
	if _, err := h.obtain(ctx); err != nil {
		return "", err
	}
	return h.tokenPath, nil
}

// Clear removes token.json and reports whether there was one.
func (h *Helper) Clear() (bool, error) {
	err := os.Remove(h.tokenPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("oauth: remove %s: %w", h.tokenPath, err)
	}
	return true, nil
}

// Config parses credentials.json into an oauth2 config with Scopes.
func (h *Helper) Config() (*oauth2.Config, error) {
	data, err := os.ReadFile(h.credentialsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrCredentialsFileMissing, h.credentialsPath)
	}
	if err != nil {
		return nil, fmt.Errorf("oauth: read %s: %w", h.credentialsPath, err)
	}
	cfg, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("oauth: parse %s: %w", h.credentialsPath, err)
	}
	return cfg, nil
}

func (h *Helper) obtain(ctx context.Context) (*storedToken, error) {
	stored, err := h.load()
	switch {
	case err == nil:
		h.log.Debug().Str("path", h.tokenPath).Msg("loaded existing OAuth credentials")
	case errors.Is(err, fs.ErrNotExist):
		stored = nil
	default:
		h.log.Warn().Err(err).Msg("error loading existing credentials")
		stored = nil
	}

	if stored != nil && !stored.token().Valid() {
		stored = h.refresh(ctx, stored)
	}

	if stored == nil {
		stored, err = h.authorize(ctx)
		if err != nil {
			h.log.Error().Err(err).Msg("OAuth2 flow failed")
			return nil, fmt.Errorf("%w: %v", ErrNoCredentials, err)
		}
	}

	if err := h.save(stored); err != nil {
		h.log.Warn().Err(err).Msg("error saving credentials")
	}
	return stored, nil
}

// refresh returns nil when the token cannot be refreshed.
func (h *Helper) refresh(ctx context.Context, stored *storedToken) *storedToken {
	if stored.RefreshToken == "" || stored.TokenURI == "" {
		return nil
	}

	tok, err := stored.config().TokenSource(ctx, stored.token()).Token()
	if err != nil {
		h.log.Warn().Err(err).Msg("error refreshing credentials")
		return nil
	}

	refreshed := *stored
	refreshed.AccessToken = tok.AccessToken
	refreshed.TokenType = tok.TokenType
	refreshed.Expiry = tok.Expiry
	if tok.RefreshToken != "" {
		refreshed.RefreshToken = tok.RefreshToken
	}
	h.log.Info().Msg("refreshed OAuth credentials")
	return &refreshed
}

func (h *Helper) authorize(ctx context.Context) (*storedToken, error) {
	cfg, err := h.Config()
	if err != nil {
		return nil, err
	}

	h.log.Info().Msg("starting OAuth2 flow")
	tok, err := h.authorizer.Authorize(ctx, cfg)
	if err != nil {
		return nil, err
	}
	h.log.Info().Msg("OAuth2 authentication completed")
	return newStoredToken(cfg, tok), nil
}

func (h *Helper) load() (*storedToken, error) {
	data, err := os.ReadFile(h.tokenPath)
	if err != nil {
		return nil, err
	}
	var stored storedToken
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode %s: %w", h.tokenPath, err)
	}
	if stored.AccessToken == "" && stored.RefreshToken == "" {
		return nil, fmt.Errorf("decode %s: no token present", h.tokenPath)
	}
	return &stored, nil
}

func (h *Helper) save(stored *storedToken) error {
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(h.tokenPath, data, 0o600); err != nil {
		return err
	}
	h.log.Debug().Str("path", h.tokenPath).Msg("credentials saved")
	return nil
}
