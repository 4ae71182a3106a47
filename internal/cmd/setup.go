package cmd

import (
	"fmt"

	"github.com/roundtable-dev/roundtable/internal/agent"
	"github.com/roundtable-dev/roundtable/internal/config"
	"github.com/roundtable-dev/roundtable/internal/controller"
	"github.com/roundtable-dev/roundtable/internal/convlock"
	"github.com/roundtable-dev/roundtable/internal/event"
	"github.com/roundtable-dev/roundtable/internal/gateway"
	"github.com/roundtable-dev/roundtable/internal/logging"
	"github.com/roundtable-dev/roundtable/internal/store"
)

// runtime bundles everything a command needs to drive conversations.
type runtime struct {
	cfg        *config.Config
	team       agent.Team
	store      store.Store
	bus        *event.Bus
	logger     *logging.Logger
	locks      *convlock.Registry
	controller *controller.Controller
}

// newRuntime assembles the controller and its collaborators from the loaded
// configuration.
func newRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	team := agent.DefaultTeam()
	if cfg.Team.RosterPath != "" {
		team, err = agent.LoadTeam(cfg.Team.RosterPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load roster: %w", err)
		}
	}
	if err := team.Validate(); err != nil {
		return nil, fmt.Errorf("invalid roster: %w", err)
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		rotation := logging.RotationConfig{
			MaxSizeBytes: int64(cfg.Logging.MaxSizeMB) * 1024 * 1024,
			MaxBackups:   cfg.Logging.MaxBackups,
		}
		logger, err = logging.NewLogger(cfg.Paths.ResolveDataDir(), cfg.Logging.Level, rotation)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	gw, err := gateway.NewFromConfig(&cfg.Backends)
	if err != nil {
		return nil, err
	}

	dataDir := cfg.Paths.ResolveDataDir()
	st := store.NewFileStore(dataDir)
	bus := event.NewBus()

	return &runtime{
		cfg:        cfg,
		team:       team,
		store:      st,
		bus:        bus,
		logger:     logger,
		locks:      convlock.NewRegistry(dataDir),
		controller: controller.New(cfg, team, st, gw, bus, logger),
	}, nil
}

// claim takes the cross-process lock on a conversation before driving it.
func (r *runtime) claim(conversationID string) error {
	if err := r.locks.Claim(conversationID); err != nil {
		return fmt.Errorf("another process is driving this conversation: %w", err)
	}
	return nil
}

// Close flushes and releases runtime resources.
func (r *runtime) Close() {
	_ = r.locks.ReleaseAll()
	if r.logger != nil {
		_ = r.logger.Close()
	}
}
