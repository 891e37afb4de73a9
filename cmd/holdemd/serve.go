package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/internal/history"
	"github.com/lox/holdemtables/internal/server"
	"github.com/lox/holdemtables/internal/store"
)

type ServeCmd struct {
	Config   string `short:"c" default:"holdem.hcl" env:"HOLDEM_CONFIG" help:"Path to HCL configuration file"`
	Addr     string `short:"a" env:"HOLDEM_ADDR" help:"Address to bind as host:port (overrides config)"`
	LogLevel string `short:"l" env:"HOLDEM_LOG_LEVEL" help:"Log level (overrides config)"`
	Database string `env:"HOLDEM_DATABASE" help:"SQLite database path (overrides config)"`
	Memory   bool   `help:"Keep state in memory only, ignoring any configured database"`
	History  string `env:"HOLDEM_HAND_HISTORY_DIR" help:"Directory for PHH hand histories (overrides config)"`
	Seed     *int64 `help:"Shuffle seed for reproducible deals"`
}

func (cmd *ServeCmd) Run() error {
	cfg, err := server.LoadServerConfig(cmd.Config)
	if err != nil {
		return err
	}
	if err := cmd.override(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(os.Stderr, cfg.Server.LogLevel, cfg.Server.LogFormat)
	if err != nil {
		return err
	}

	repo, err := openRepository(cfg.Server.Database)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, repo, logger)
}

func (cmd *ServeCmd) override(cfg *server.ServerConfig) error {
	if cmd.Addr != "" {
		host, port, err := net.SplitHostPort(cmd.Addr)
		if err != nil {
			return fmt.Errorf("invalid address %q: %w", cmd.Addr, err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port in %q: %w", cmd.Addr, err)
		}
		cfg.Server.Address = host
		cfg.Server.Port = p
	}
	if cmd.LogLevel != "" {
		cfg.Server.LogLevel = cmd.LogLevel
	}
	if cmd.Database != "" {
		cfg.Server.Database = cmd.Database
	}
	if cmd.Memory {
		cfg.Server.Database = ""
	}
	if cmd.History != "" {
		cfg.Server.HandHistoryDir = cmd.History
	}
	if cmd.Seed != nil {
		cfg.Server.Seed = *cmd.Seed
	}
	return nil
}

func openRepository(path string) (store.Repository, error) {
	if path == "" {
		return store.NewMemoryRepository(), nil
	}
	return store.NewSQLiteRepository(path)
}

// serve runs the gateway and every stored or configured table until ctx is
// canceled.
func serve(ctx context.Context, cfg *server.ServerConfig, repo store.Repository, logger *log.Logger) error {
	logger.Info("Starting Holdem Server",
		"addr", cfg.GetServerAddress(),
		"tables", len(cfg.Tables),
		"database", cfg.Server.Database)

	runner := cfg.RunnerConfig()
	if dir := cfg.Server.HandHistoryDir; dir != "" {
		w, err := history.NewWriter(dir)
		if err != nil {
			return err
		}
		runner.History = w
		logger.Info("Recording hand histories", "dir", dir)
	}

	wsServer := server.NewServer(cfg.GetServerAddress(), logger)
	games := server.NewGameManager(server.ManagerConfig{
		Repository: repo,
		Registry:   game.NewRegistry(),
		Emitter:    wsServer,
		Clock:      quartz.NewReal(),
		Runner:     runner,
		Seed:       cfg.Server.Seed,
	}, logger)
	wsServer.SetGameManager(games)
	defer games.StopAll()

	if err := games.LoadAll(ctx); err != nil {
		return err
	}
	if err := ensureTables(ctx, games, cfg.Tables, logger); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return wsServer.ListenAndServe(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ensureTables creates the configured tables that are not already stored,
// matching by name.
func ensureTables(ctx context.Context, games *server.GameManager, tables []server.TableConfig, logger *log.Logger) error {
	existing := make(map[string]bool)
	for _, g := range games.ListGames() {
		existing[g.Name] = true
	}

	for _, tc := range tables {
		if existing[tc.Name] {
			logger.Debug("Table already stored", "name", tc.Name)
			continue
		}
		runner, err := games.CreateGame(ctx, tc.GameConfig())
		if err != nil {
			return fmt.Errorf("error creating table %s: %w", tc.Name, err)
		}
		logger.Info("Created table",
			"id", runner.ID(),
			"name", tc.Name,
			"stakes", fmt.Sprintf("%d/%d", tc.SmallBlind, tc.BigBlind),
			"maxPlayers", tc.MaxPlayers)
	}
	return nil
}
