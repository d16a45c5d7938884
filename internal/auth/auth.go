// Package auth authenticates requests against an OpenID Connect provider and
// resolves the caller to a known user with a role.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"docflow/backend/internal/config"
	"docflow/backend/internal/repository"
	"docflow/backend/pkg/models"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Auth contains configuration and helpers for performing OpenID Connect
// authentication with an Okta tenant.
type Auth struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
	apiVerifier  *oidc.IDTokenVerifier
	users        repository.UserStore
	logger       Logger
	authBypass   bool
	devActor     models.Actor
}

// New creates a new Auth object using values from the application
// configuration. It establishes a connection to the provider and prepares an
// ID token verifier. In a development environment with dev_mode_bypass set,
// no provider is contacted and every request runs as the configured dev actor.
func New(ctx context.Context, cfg *config.Config, users repository.UserStore, logger Logger) (*Auth, error) {
	env := strings.ToUpper(cfg.Environment)
	isDev := env == "DEV" || env == "DEVELOPMENT"
	shouldBypass := isDev && cfg.DevModeBypass

	a := &Auth{
		users:      users,
		logger:     logger,
		authBypass: shouldBypass,
		devActor: models.Actor{
			ID:    cfg.DevActor.ID,
			Email: cfg.DevActor.Email,
			Role:  models.Role(cfg.DevActor.Role),
		},
	}
	if shouldBypass {
		return a, nil
	}

	if cfg.Auth.OktaDomain == "" || cfg.Auth.ClientID == "" ||
		cfg.Auth.ClientSecret == "" || cfg.Auth.RedirectURL == "" {
		return nil, errors.New("auth configuration is incomplete")
	}

	provider, err := oidc.NewProvider(ctx, cfg.Auth.OktaDomain)
	if err != nil {
		return nil, err
	}

	a.oauth2Config = &oauth2.Config{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  cfg.Auth.RedirectURL,
		Scopes:       LoginScopes,
	}
	a.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.Auth.ClientID})
	// Access tokens carry the API audience rather than the client id.
	a.apiVerifier = provider.Verifier(&oidc.Config{SkipClientIDCheck: true})
	return a, nil
}

// Bypass reports whether authentication is disabled for development.
func (a *Auth) Bypass() bool { return a.authBypass }

// LoginHandler initiates the OAuth2 authorization code flow by redirecting the
// user to the Okta authorization endpoint. A random state value is stored in a
// cookie to mitigate CSRF attacks.
func (a *Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if a.authBypass {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	state, err := generateState()
	if err != nil {
		http.Error(w, "failed to generate state", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "oauthstate",
		Value:    state,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})

	http.Redirect(w, r, a.oauth2Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// CallbackHandler handles the redirect back from Okta. It verifies the state
// parameter, exchanges the code for tokens, validates the ID token, and sets a
// session cookie containing the raw ID token.
func (a *Auth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if a.authBypass {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	cookie, err := r.Cookie("oauthstate")
	if err != nil || r.URL.Query().Get("state") != cookie.Value {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	token, err := a.oauth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		http.Error(w, "token exchange failed", http.StatusInternalServerError)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "no id_token in token response", http.StatusInternalServerError)
		return
	}

	if _, err := a.verifier.Verify(r.Context(), rawIDToken); err != nil {
		http.Error(w, "failed to verify id token", http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "id_token",
		Value:    rawIDToken,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LogoutHandler clears the session cookie and redirects to the home page.
func (a *Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   "id_token",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RequireAuth is middleware that resolves the caller to an Actor and stores it
// in the request context. API clients authenticate with a Bearer access
// token, browsers with the id_token session cookie. A browser without a
// session is redirected to the login page; anything else gets a 401.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.authBypass {
			actor := a.devActor
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), &actor)))
			return
		}

		var (
			token *oidc.IDToken
			err   error
		)
		if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			token, err = a.apiVerifier.Verify(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
		} else {
			cookie, cookieErr := r.Cookie("id_token")
			if cookieErr != nil {
				if strings.Contains(r.Header.Get("Accept"), "text/html") {
					http.Redirect(w, r, "/login", http.StatusSeeOther)
					return
				}
				writeProblem(w, http.StatusUnauthorized, "authentication required")
				return
			}
			token, err = a.verifier.Verify(r.Context(), cookie.Value)
		}
		if err != nil {
			writeProblem(w, http.StatusUnauthorized, "invalid token: "+err.Error())
			return
		}

		var claims struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := token.Claims(&claims); err != nil || claims.Email == "" {
			writeProblem(w, http.StatusUnauthorized, "token carries no email claim")
			return
		}

		user, err := a.resolveUser(r.Context(), claims.Email, claims.Name)
		if err != nil {
			if a.logger != nil {
				a.logger.Error("failed to resolve user", "email", claims.Email, "error", err)
			}
			writeProblem(w, http.StatusInternalServerError, "failed to resolve user")
			return
		}

		actor := &models.Actor{ID: user.ID, Email: user.Email, Role: user.Role}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// resolveUser looks the user up by e-mail, provisioning unknown callers with
// the least-privileged role.
func (a *Auth) resolveUser(ctx context.Context, email, name string) (*models.User, error) {
	user, err := a.users.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	user = &models.User{ID: uuid.New().String(), Email: email, Name: name, Role: models.RoleUser}
	if err := a.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Provisioned concurrently by another request.
			return a.users.GetUserByEmail(ctx, email)
		}
		return nil, err
	}
	if a.logger != nil {
		a.logger.Info("provisioned user", "email", email, "id", user.ID)
	}
	return user, nil
}

func writeProblem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "about:blank",
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
