package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/akrabse/Joker-Poker/internal/bankroll"
	"github.com/akrabse/Joker-Poker/internal/randutil"
	"github.com/akrabse/Joker-Poker/internal/room"
	"github.com/akrabse/Joker-Poker/internal/server"
)

var CLI struct {
	Config      string `short:"c" default:"pokerroomd.hcl" help:"Path to HCL configuration file"`
	Addr        string `short:"a" help:"Listen address (overrides config)"`
	LogLevel    string `short:"l" help:"Log level (overrides config)"`
	DatabaseURL string `help:"Postgres DSN for the bankroll store (overrides config and DATABASE_URL)"`
	Seed        int64  `help:"Deterministic RNG seed, 0 seeds from the clock"`
}

func main() {
	kctx := kong.Parse(&CLI)

	// .env is optional; it usually just carries DATABASE_URL
	_ = godotenv.Load()

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	addr := cfg.ListenAddr()
	if CLI.Addr != "" {
		addr = CLI.Addr
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	clock := quartz.NewReal()
	bank, err := openBankroll(cfg, clock, logger)
	if err != nil {
		logger.Error("Failed to open bankroll store", "error", err)
		kctx.Exit(1)
	}
	defer bank.Close()

	seed := CLI.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	rooms := room.NewManager(room.Config{
		SmallBlind:    cfg.Room.SmallBlind,
		BigBlind:      cfg.Room.BigBlind,
		MinPlayers:    cfg.Room.MinPlayers,
		MaxPlayers:    cfg.Room.MaxPlayers,
		ActionTimeout: cfg.ActionTimeout(),
	}, bank, randutil.New(seed), clock, logger)

	srv := server.New(addr, rooms, bank, logger)

	logger.Info("Starting poker room",
		"addr", addr,
		"blinds", fmt.Sprintf("%d/%d", cfg.Room.SmallBlind, cfg.Room.BigBlind),
		"seats", fmt.Sprintf("%d-%d", cfg.Room.MinPlayers, cfg.Room.MaxPlayers))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		return srv.Stop()
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server failed", "error", err)
		kctx.Exit(1)
	}
}

// openBankroll picks the durable store when a DSN is configured and falls
// back to the in-memory one otherwise.
func openBankroll(cfg *server.Config, clock quartz.Clock, logger *log.Logger) (bankroll.Service, error) {
	dsn := CLI.DatabaseURL
	if dsn == "" {
		dsn = cfg.DatabaseDSN()
	}
	if dsn == "" {
		logger.Info("No database configured, bankrolls are in-memory only")
		return bankroll.NewMemory(clock), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := bankroll.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	logger.Info("Bankroll store connected", "backend", "postgres")
	return store, nil
}
