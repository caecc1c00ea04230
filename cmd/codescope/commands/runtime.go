package commands

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/codescope-io/codescope/internal/catalog"
	"github.com/codescope-io/codescope/internal/deps"
	"github.com/codescope-io/codescope/internal/orchestration"
	"github.com/codescope-io/codescope/internal/quality"
	"github.com/codescope-io/codescope/internal/registry"
	"github.com/codescope-io/codescope/internal/storage"
	"github.com/codescope-io/codescope/internal/vuln"
	"github.com/codescope-io/codescope/pkg/models"
	"github.com/codescope-io/codescope/pkg/utils"
)

// platform wires the full component stack from configuration. Every command
// that touches scans builds one.
type platform struct {
	cfg      *models.Config
	logger   *logrus.Logger
	metrics  *utils.Metrics
	store    storage.Store
	catalog  *catalog.Catalog
	registry *registry.Registry
	engine   *orchestration.Engine
}

func loadPlatformConfig() (*models.Config, error) {
	cfg := models.DefaultConfig()
	if cfgFile := viper.ConfigFileUsed(); cfgFile != "" {
		loaded, err := models.LoadConfig(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v := viper.GetString("registry.workspace_dir"); v != "" {
		cfg.Registry.WorkspaceDir = v
	}
	if v := viper.GetString("global.data_dir"); v != "" {
		cfg.Global.DataDir = v
	}
	if v := viper.GetString("log_level"); v != "" {
		cfg.Logging.Level = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildPlatform(version string) (*platform, error) {
	cfg, err := loadPlatformConfig()
	if err != nil {
		return nil, err
	}

	logger, err := utils.NewLogger(cfg.Logging, "codescope", version)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics := utils.NewMetrics(cfg.API.EnableMetrics)

	var store storage.Store
	switch cfg.Storage.Driver {
	case "postgres":
		store, err = storage.NewPostgresStore(cfg.Storage.DSN, logger)
		if err != nil {
			return nil, err
		}
	default:
		store = storage.NewMemoryStore()
	}

	cat, err := catalog.Load(filepath.Join(cfg.Global.DataDir, "checks.yaml"), logger)
	if err != nil {
		return nil, fmt.Errorf("load check catalog: %w", err)
	}

	reg := registry.New(cfg.Checker.MaxFileSize, logger)
	if err := reg.LoadWorkspace(cfg.Registry.WorkspaceDir); err != nil {
		logger.WithError(err).Warn("Workspace load failed, starting with an empty registry")
	}

	engine := orchestration.NewEngine(
		cfg.Engine,
		store,
		cat,
		reg,
		deps.NewResolver(cfg.Licenses, logger),
		vuln.NewOSVMatcher(cfg.Matcher, metrics, logger),
		quality.NewRuleChecker(logger),
		metrics,
		logger,
	)

	return &platform{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		store:    store,
		catalog:  cat,
		registry: reg,
		engine:   engine,
	}, nil
}

func (p *platform) close() {
	if err := p.store.Close(); err != nil {
		p.logger.WithError(err).Warn("Store close failed")
	}
}
