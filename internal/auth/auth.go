package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	config "github.com/Kjdragan/codescribe/configs"
	"github.com/Kjdragan/codescribe/internal/logger"
)

const (
	SessionName = "gosess"

	stateKey    = "oauth_state"
	operatorKey = "operator_email"

	// ContextKey holds the operator's email on the gin context.
	ContextKey = "operator"
)

var ErrNotConfigured = errors.New("auth: OIDC is not configured; set OIDC_ISSUER and OIDC_CLIENT_ID or AUTH_DISABLED=true")

// Authenticator signs operators in through an OIDC provider and keeps them
// in a cookie session.
type Authenticator struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
	disabled     bool
	log          zerolog.Logger
}

func New(ctx context.Context, cfg config.ServerConfig) (*Authenticator, error) {
	if !cfg.OIDCConfigured() {
		if cfg.AuthDisabled {
			return Disabled(), nil
		}
		return nil, ErrNotConfigured
	}

	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
	if err != nil {
		return nil, fmt.Errorf("OIDC provider init error: %w", err)
	}

	a := &Authenticator{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID}),
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.OIDCRedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		disabled: cfg.AuthDisabled,
		log:      logger.Component("auth"),
	}
	return a, nil
}

// Disabled lets every request through. Development only.
func Disabled() *Authenticator {
	return &Authenticator{disabled: true, log: logger.Component("auth")}
}

// ─────────────────────────────────────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────────────────────────────────────

// GET /auth/login
func (a *Authenticator) Login(c *gin.Context) {
	if a.oauth2Config == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "login is not enabled"})
		return
	}

	state := uuid.NewString()
	sess := sessions.Default(c)
	sess.Set(stateKey, state)
	if err := sess.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}
	c.Redirect(http.StatusFound, a.oauth2Config.AuthCodeURL(state))
}

// GET /auth/callback
func (a *Authenticator) Callback(c *gin.Context) {
	if a.oauth2Config == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "login is not enabled"})
		return
	}

	sess := sessions.Default(c)
	expected, _ := sess.Get(stateKey).(string)
	sess.Delete(stateKey)
	_ = sess.Save()
	if expected == "" || c.Query("state") != expected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code missing"})
		return
	}

	ctx := c.Request.Context()
	oauth2Token, err := a.oauth2Config.Exchange(ctx, code)
	if err != nil {
		a.log.Warn().Err(err).Msg("token exchange failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "token exchange failed"})
		return
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no id_token in token response"})
		return
	}

	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token verification failed"})
		return
	}

	var claims struct {
		Sub   string `json:"sub"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "claims parse error"})
		return
	}
	if claims.Email == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "email claim required"})
		return
	}

	sess.Set(operatorKey, claims.Email)
	if err := sess.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}

	a.log.Info().Str("email", claims.Email).Msg("operator logged in")
	c.JSON(http.StatusOK, gin.H{"message": "logged in", "email": claims.Email, "name": claims.Name})
}

// RequireAuth rejects requests without a logged-in operator and puts the
// operator email on the context under ContextKey.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.disabled {
			c.Set(ContextKey, "anonymous")
			c.Next()
			return
		}

		sess := sessions.Default(c)
		email, ok := sess.Get(operatorKey).(string)
		if !ok || email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(ContextKey, email)
		c.Next()
	}
}
