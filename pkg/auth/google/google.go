// Package google runs the interactive Google consent flow. It stands in for
// the browser popup of the web client: a loopback HTTP listener receives the
// OAuth2 redirect while the user approves access in their browser.
package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/clearpath-immigration/authkit/pkg/logging"
)

var (
	// ErrCancelled is returned when the user abandons the consent flow or
	// denies access.
	ErrCancelled = errors.New("google: consent flow cancelled")

	// ErrBlocked is returned when the loopback listener cannot be opened,
	// so the consent flow never starts.
	ErrBlocked = errors.New("google: consent flow blocked")
)

// Config configures the consent flow.
type Config struct {
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"client_secret"`

	// ListenAddr is the loopback address for the OAuth2 redirect.
	// Default "127.0.0.1:45321"; must match the client's registered
	// redirect URI.
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// Launcher drives the Google OAuth2 authorization-code flow and returns the
// resulting ID token.
type Launcher struct {
	cfg           Config
	log           logging.Logger
	openInBrowser func(url string) error
}

// New creates a Launcher. openInBrowser may be nil, in which case the auth
// URL is only logged and the user opens it manually.
func New(cfg Config, log logging.Logger, openInBrowser func(url string) error) *Launcher {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:45321"
	}
	return &Launcher{
		cfg:           cfg,
		log:           log.WithModule("google"),
		openInBrowser: openInBrowser,
	}
}

type callbackResult struct {
	code string
	err  error
}

// Authorize runs the consent flow and returns Google's ID token.
func (l *Launcher) Authorize(ctx context.Context) (string, error) {
	listener, err := net.Listen("tcp", l.cfg.ListenAddr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBlocked, err)
	}
	defer listener.Close()

	oauthCfg := &oauth2.Config{
		ClientID:     l.cfg.ClientID,
		ClientSecret: l.cfg.ClientSecret,
		RedirectURL:  fmt.Sprintf("http://%s/callback", listener.Addr().String()),
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     googleoauth.Endpoint,
	}

	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("google: %w", err)
	}

	results := make(chan callbackResult, 1)
	server := &http.Server{Handler: l.callbackHandler(state, results)}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case results <- callbackResult{err: fmt.Errorf("google: callback server failed: %w", err)}:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	authURL := oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	l.log.Info("Waiting for Google consent", "url", authURL)
	if l.openInBrowser != nil {
		if err := l.openInBrowser(authURL); err != nil {
			l.log.Warn("Failed to open browser, open the URL manually", "error", err)
		}
	}

	var code string
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case result := <-results:
		if result.err != nil {
			return "", result.err
		}
		code = result.code
	}

	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("google: failed to exchange code: %w", err)
	}

	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return "", errors.New("google: token response carried no id_token")
	}
	return idToken, nil
}

func (l *Launcher) callbackHandler(state string, results chan<- callbackResult) http.Handler {
	// Only the first callback counts. Browsers may hit /callback again
	// (refresh, prefetch) after the flow resolved; those must not block.
	deliver := func(result callbackResult) {
		select {
		case results <- result:
		default:
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/callback" {
			http.NotFound(w, r)
			return
		}

		query := r.URL.Query()
		switch {
		case query.Get("error") == "access_denied":
			fmt.Fprintln(w, "Sign-in cancelled. You can close this window.")
			deliver(callbackResult{err: ErrCancelled})
		case query.Get("state") != state:
			http.Error(w, "State mismatch", http.StatusBadRequest)
			deliver(callbackResult{err: errors.New("google: state mismatch in callback")})
		case query.Get("code") == "":
			http.Error(w, "Missing code", http.StatusBadRequest)
			deliver(callbackResult{err: errors.New("google: callback carried no code")})
		default:
			fmt.Fprintln(w, "Signed in. You can close this window.")
			deliver(callbackResult{code: query.Get("code")})
		}
	})
}

// generateState generates a random state string for CSRF protection.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
