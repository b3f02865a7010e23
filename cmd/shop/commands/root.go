// Package commands implements the shop command line storefront.
package commands

import (
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xenking/storefront/internal/storefront"
)

// shop holds the state shared by every command of one invocation.
type shop struct {
	catalogURL   string
	storeBackend string
	statePath    string
	redisAddr    string
	namespace    string
	logLevel     string

	lg      *zap.Logger
	session *storefront.Session
}

// NewRoot returns the shop root command.
func NewRoot() *cobra.Command {
	s := &shop{}

	root := &cobra.Command{
		Use:           "shop",
		Short:         "Browse the figurine catalog, manage your cart and wishlist, check out",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.open(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return s.close()
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&s.catalogURL, "catalog-url", "", "Catalog Store base URL")
	f.StringVar(&s.storeBackend, "store", "", "persistence backend: file, memory or redis")
	f.StringVar(&s.statePath, "state", "", "state file (default ~/.storefront/state.json)")
	f.StringVar(&s.redisAddr, "redis-addr", "", "Redis address for the redis store")
	f.StringVar(&s.namespace, "namespace", "", "Redis key namespace")
	f.StringVar(&s.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		catalogCmd(s),
		cartCmd(s),
		wishlistCmd(s),
		addressCmd(s),
		checkoutCmd(s),
	)
	return root
}

// open loads the config, applies flags over it and opens the session.
func (s *shop) open(cmd *cobra.Command) error {
	cfg, err := storefront.LoadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	override := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	override("catalog-url", &cfg.CatalogURL, s.catalogURL)
	override("store", &cfg.Store.Backend, s.storeBackend)
	override("state", &cfg.Store.Path, s.statePath)
	override("redis-addr", &cfg.Store.RedisAddr, s.redisAddr)
	override("namespace", &cfg.Store.Namespace, s.namespace)
	override("log-level", &cfg.LogLevel, s.logLevel)

	lg, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	s.lg = lg

	session, err := storefront.Open(cmd.Context(), lg, cfg)
	if err != nil {
		return errors.Wrap(err, "open session")
	}
	s.session = session
	return nil
}

func (s *shop) close() error {
	var err error
	if s.session != nil {
		err = s.session.Close()
	}
	if s.lg != nil {
		_ = s.lg.Sync()
	}
	return err
}

// newLogger builds a console logger on stderr at the given level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "parse log level")
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	return cfg.Build()
}
