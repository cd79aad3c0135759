package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vertextoedge/txtfetch/internal/adapter/filesystem"
	"github.com/vertextoedge/txtfetch/internal/adapter/httpclient"
	"github.com/vertextoedge/txtfetch/internal/adapter/metadata"
	"github.com/vertextoedge/txtfetch/internal/adapter/resolver"
	"github.com/vertextoedge/txtfetch/internal/adapter/sqlite"
	"github.com/vertextoedge/txtfetch/internal/config"
	"github.com/vertextoedge/txtfetch/internal/logger"
)

// flagOverrides holds persistent flags that take precedence over the config file
type flagOverrides struct {
	metadataDir string
	outputDir   string
	logLevel    string
}

// app carries what every command needs after config is loaded
type app struct {
	configPath string
	flags      flagOverrides

	cfg    *config.Config
	logger *zap.Logger
	store  *sqlite.Store
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	if a.flags.metadataDir != "" {
		cfg.Metadata.Dir = a.flags.metadataDir
	}
	if a.flags.outputDir != "" {
		cfg.Output.Dir = a.flags.outputDir
	}
	if a.flags.logLevel != "" {
		cfg.Logging.Level = a.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	l, err := logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = l
	l.Debug("Configuration loaded",
		zap.String("command", cmd.Name()),
		zap.String("config", a.configPath),
		zap.String("metadata_dir", cfg.Metadata.Dir),
		zap.String("output_dir", cfg.Output.Dir))
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil && a.logger != nil {
			a.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	_ = logger.Sync()
}

// openStore opens the run ledger, or returns nil when it is disabled
func (a *app) openStore() (*sqlite.Store, error) {
	if !a.cfg.Database.Enabled {
		return nil, nil
	}
	if a.store != nil {
		return a.store, nil
	}

	path := a.cfg.Database.GetPath(a.cfg.Output.Dir)
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	a.store = store
	return store, nil
}

func (a *app) newLoader() *metadata.Loader {
	return metadata.New(afero.NewOsFs(), metadata.Config{
		Dir:       a.cfg.Metadata.Dir,
		Marker:    a.cfg.Metadata.Marker,
		OutputDir: a.cfg.Output.Dir,
		Extension: a.cfg.Output.Extension,
	}, a.logger.Named("metadata"))
}

func (a *app) newFileSystem() (*filesystem.Manager, error) {
	fsManager, err := filesystem.NewManager(a.cfg.Output.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem manager: %w", err)
	}
	return fsManager, nil
}

func (a *app) newClient(maxConcurrent int, dns *resolver.Cache) *httpclient.Client {
	fc := a.cfg.Fetch
	return httpclient.New(httpclient.Options{
		MaxTotalSockets: fc.GetMaxTotalSockets(maxConcurrent),
		DialTimeout:     fc.GetDialTimeout(),
		RequestTimeout:  fc.GetRequestTimeout(),
		UserAgent:       fc.UserAgent,
		Resolver:        dns,
	})
}
