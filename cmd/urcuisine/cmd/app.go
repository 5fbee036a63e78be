package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.etcd.io/bbolt"

	"github.com/urcuisine/urcuisine/comment"
	"github.com/urcuisine/urcuisine/config"
	"github.com/urcuisine/urcuisine/interaction"
	"github.com/urcuisine/urcuisine/internal/metrics"
	"github.com/urcuisine/urcuisine/remote"
	"github.com/urcuisine/urcuisine/session"
	bboltstorage "github.com/urcuisine/urcuisine/storage/bbolt"
)

const dbFile = "client.db"

// app is the wired client for a single command invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	repo     *bboltstorage.Store
	registry *prometheus.Registry
	client   *remote.Client
	sessions *session.Manager
	reacts   *interaction.Reconciler
	comments *comment.Appender
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadConfig layers defaults, the user config, --config and finally flags.
func loadConfig(g *globalOptions, stderr io.Writer) (*config.Config, error) {
	bootstrap := newLogger(stderr, g.logLevel, g.logFormat)
	cfg, err := config.NewLoader(bootstrap).Load(g.configPath)
	if err != nil {
		return nil, err
	}
	cfg.Merge(&config.Config{
		API:     config.APIConfig{URL: g.apiURL},
		DataDir: g.dataDir,
		Log:     config.LogConfig{Level: g.logLevel, Format: g.logFormat},
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openApp(cmd *cobra.Command, g *globalOptions) (*app, error) {
	cfg, err := loadConfig(g, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	repo, err := bboltstorage.NewRepositoryFromFile(filepath.Join(cfg.DataDir, dbFile), &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}

	client, err := remote.New(cfg.API.URL,
		remote.WithTimeout(cfg.API.Timeout),
		remote.WithLogger(logger),
		remote.WithCookieStore(repo),
	)
	if err != nil {
		repo.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	return &app{
		cfg:      cfg,
		logger:   logger,
		repo:     repo,
		registry: registry,
		client:   client,
		sessions: session.NewManager(session.NewStore(repo), client,
			session.WithLogger(logger),
			session.WithMetrics(m),
		),
		reacts: interaction.NewReconciler(client,
			interaction.WithLogger(logger),
			interaction.WithMetrics(m),
			interaction.WithRequestTimeout(cfg.API.Timeout),
		),
		comments: comment.NewAppender(client,
			comment.WithLogger(logger),
			comment.WithMetrics(m),
		),
	}, nil
}

func (a *app) close() {
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("failed to close session storage", "error", err)
	}
}

func (a *app) writeMetrics(w io.Writer) error {
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// runWithApp adapts fn into a cobra RunE that opens the client first and
// closes it afterwards.
func runWithApp(g *globalOptions, fn func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, g)
		if err != nil {
			return err
		}
		defer a.close()

		err = fn(cmd.Context(), cmd, args, a)
		if g.showMetrics {
			if merr := a.writeMetrics(cmd.ErrOrStderr()); merr != nil {
				a.logger.Warn("failed to write metrics", "error", merr)
			}
		}
		return describe(err)
	}
}

// describe turns library errors into messages for the terminal.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var verr *remote.ValidationError
	switch {
	case errors.Is(err, session.ErrUnauthenticated):
		return errors.New("you are not logged in; run 'urcuisine login' first")
	case errors.As(err, &verr) && len(verr.Fields) > 0:
		var b strings.Builder
		b.WriteString("the server rejected the request:")
		for _, field := range slices.Sorted(maps.Keys(verr.Fields)) {
			fmt.Fprintf(&b, "\n  %s: %s", field, verr.Fields[field])
		}
		return errors.New(b.String())
	case errors.Is(err, remote.ErrNetwork):
		return fmt.Errorf("could not reach the recipe API: %w", err)
	default:
		return err
	}
}
