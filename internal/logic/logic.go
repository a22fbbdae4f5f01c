// Package logic implements the commands of the cloak binary on top of the envelope,
// access and store packages.
package logic

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-yaml"
	"github.com/sirupsen/logrus"

	"github.com/idelchi/cloak/internal/access"
	"github.com/idelchi/cloak/internal/audit"
	"github.com/idelchi/cloak/internal/config"
	"github.com/idelchi/cloak/internal/envelope"
	"github.com/idelchi/cloak/internal/store"
)

// userAgent identifies CLI-originated attempts in the audit trail.
const userAgent = "cloak-cli"

// Streams are the writers results and per-file errors are printed to.
type Streams struct {
	Out io.Writer
	Err io.Writer
}

// StdStreams prints to the process's stdout and stderr.
func StdStreams() Streams {
	return Streams{Out: os.Stdout, Err: os.Stderr}
}

// App bundles the collaborators a command works with.
type App struct {
	Store    store.Store
	Envelope *envelope.Manager
	Logger   *logrus.Logger
	BlobDir  string

	access *access.Service
}

// NewApp opens the store and wires the envelope manager and, when a token pepper is
// configured, the access service. Close releases the store.
func NewApp(cfg *config.Config) (*App, error) {
	logger, err := NewLogger(cfg.LogLevel, os.Stderr)
	if err != nil {
		return nil, err
	}

	st, err := store.OpenSQLite(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	app, err := NewAppFromStore(cfg, st, logger)
	if err != nil {
		st.Close()

		return nil, err
	}

	return app, nil
}

// NewAppFromStore wires an App around an already opened store.
func NewAppFromStore(cfg *config.Config, st store.Store, logger *logrus.Logger) (*App, error) {
	if logger == nil {
		logger = logrus.New()
	}

	manager, err := envelope.New(
		envelope.WithParams(cfg.KDF),
		envelope.WithRecorder(st),
		envelope.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating envelope manager: %w", err)
	}

	app := &App{
		Store:    st,
		Envelope: manager,
		Logger:   logger,
		BlobDir:  cfg.BlobDir,
	}

	if cfg.Pepper != "" {
		pepper, err := cfg.PepperBytes()
		if err != nil {
			return nil, err
		}

		app.access, err = access.New(st, pepper, access.WithRecorder(st), access.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("creating access service: %w", err)
		}
	}

	return app, nil
}

// Access returns the token service, or an error when no pepper is configured.
func (a *App) Access() (*access.Service, error) {
	if a.access == nil {
		return nil, fmt.Errorf("%w: --token-pepper (or CLOAK_TOKEN_PEPPER) is required for protected folders", config.ErrUsage)
	}

	return a.access, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}

// NewLogger creates a text logger at the given level.
func NewLogger(level string, w io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return logger, nil
}

// ShowConfig prints the effective configuration as YAML with secrets redacted.
func ShowConfig(cfg *config.Config, w io.Writer) error {
	shown := *cfg

	for _, secret := range []*string{&shown.Password, &shown.Pepper, &shown.Token} {
		if *secret != "" {
			*secret = "<redacted>"
		}
	}

	out, err := yaml.Marshal(shown)
	if err != nil {
		return fmt.Errorf("marshalling configuration: %w", err)
	}

	_, err = w.Write(out)

	return err
}

func cliSource(cfg *config.Config, resource string) audit.Source {
	return audit.Source{Actor: cfg.User, UserAgent: userAgent, Resource: resource}
}

// friendly adds a hint to errors a terminal user can act on.
func friendly(err error) error {
	if errors.Is(err, access.ErrTokenExpiredOrMissing) {
		return fmt.Errorf("%w: unlock the folder with 'cloak folder unlock' and pass --token", err)
	}

	return err
}

type stats struct {
	scanned   int
	processed int
	errored   int
	totalSize int64
	duration  time.Duration
}

func printStats(w io.Writer, s stats) {
	fmt.Fprintf(w, "\nStats\n")
	fmt.Fprintf(w, "  Scanned:   %d\n", s.scanned)
	fmt.Fprintf(w, "  Processed: %d\n", s.processed)
	fmt.Fprintf(w, "  Errors:    %d\n", s.errored)
	//nolint:gosec // totalSize is always non-negative (sum of file sizes)
	fmt.Fprintf(w, "  Size:      %s\n", humanize.IBytes(uint64(max(0, s.totalSize))))
	fmt.Fprintf(w, "  Duration:  %s\n", s.duration.Round(time.Millisecond))
}
