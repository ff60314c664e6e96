package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fragmede/authdesk/internal/api"
	"github.com/fragmede/authdesk/internal/auth"
	"github.com/fragmede/authdesk/internal/cache"
	"github.com/fragmede/authdesk/internal/config"
	"github.com/fragmede/authdesk/internal/logging"
)

// env is everything a command needs, built from config and flags.
type env struct {
	cfg     config.Config
	log     *zap.SugaredLogger
	db      *cache.DB
	session *auth.Session
	client  *api.Client

	closers []func()
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// loadConfig reads the config file and environment, then applies flags
// the user set explicitly.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = strings.TrimRight(opts.baseURL, "/")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// setup wires config, logging, the sqlite cache, the restored session and
// the API client. The caller must Close the env.
func setup(cmd *cobra.Command, opts *options) (*env, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	e := &env{cfg: cfg}

	log, closeLog, err := logging.New(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	e.log = log
	e.closers = append(e.closers, closeLog)

	db, err := cache.Open(cfg.DBPath)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	e.db = db
	e.closers = append(e.closers, func() { db.Close() })

	session, err := auth.NewSession(cfg.BaseURL, db)
	if err != nil {
		e.Close()
		return nil, err
	}
	if _, err := session.Load(); err != nil {
		log.Warnw("restoring session", "error", err)
	}
	e.session = session

	e.client = api.NewClient(session,
		api.WithLogger(log),
		api.WithTimeout(cfg.RequestTimeout),
		api.WithProfileStore(db),
	)

	log.Debugw("environment ready", "base_url", cfg.BaseURL, "db", cfg.DBPath, "command", cmd.Name())
	return e, nil
}

// connect is setup plus the startup CSRF token fetch, for commands that
// talk to the API.
func connect(cmd *cobra.Command, opts *options) (*env, error) {
	e, err := setup(cmd, opts)
	if err != nil {
		return nil, err
	}
	e.client.FetchToken(cmd.Context())
	return e, nil
}
