package cmd

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/clearpath-immigration/authkit/pkg/api"
	"github.com/clearpath-immigration/authkit/pkg/auth"
	"github.com/clearpath-immigration/authkit/pkg/auth/google"
	"github.com/clearpath-immigration/authkit/pkg/config"
	"github.com/clearpath-immigration/authkit/pkg/identity"
	"github.com/clearpath-immigration/authkit/pkg/kvs"
	"github.com/clearpath-immigration/authkit/pkg/logging"
	"github.com/clearpath-immigration/authkit/pkg/session"
)

// app holds everything a command needs, wired from the config file.
type app struct {
	cfg      *config.Config
	log      logging.Logger
	store    kvs.Store
	sessions *session.Manager
	service  *auth.Service
}

func buildApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	level := logging.ParseLevel(cfg.Logging.Level)
	var fileConfig *logging.FileRotationConfig
	if cfg.Logging.File != nil && cfg.Logging.File.Path != "" {
		fileConfig = &logging.FileRotationConfig{
			Path:       cfg.Logging.File.Path,
			MaxSizeMB:  cfg.Logging.File.MaxSizeMB,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAge:     cfg.Logging.File.MaxAge,
			Compress:   cfg.Logging.File.Compress,
		}
	}
	logger, err := logging.NewLoggerWithFile("main", level, cfg.Logging.Color, fileConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := kvs.New(cfg.Store)
	if err != nil {
		return nil, err
	}

	apiCfg, err := cfg.API.ClientConfig()
	if err != nil {
		return nil, err
	}
	identityCfg, err := cfg.Identity.ProviderConfig()
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(store, logger)
	backend := api.NewClient(apiCfg, logger)
	provider := identity.NewHTTPProvider(identityCfg, logger)

	var consent auth.ConsentFlow
	if cfg.Google.ClientID != "" {
		consent = google.New(cfg.Google, logger, openInBrowser)
	}

	return &app{
		cfg:      cfg,
		log:      logger,
		store:    store,
		sessions: sessions,
		service:  auth.NewService(provider, backend, sessions, consent, logger),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("Failed to close session store", "error", err)
	}
}

// openInBrowser launches the default browser for the consent flow.
func openInBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
