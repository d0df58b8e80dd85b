package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/AbyssalKaz/Console101Farm/internal/app"
	"github.com/AbyssalKaz/Console101Farm/internal/config"
	"github.com/AbyssalKaz/Console101Farm/internal/engine"
)

func main() {
	configPath := flag.String("config", "Settings.ini", "Path to the settings file")
	mode := flag.String("mode", "", "Override the casting mode (simple or advanced)")
	testCombo := flag.Bool("test-combo", false, "Run the refill combo once and exit")
	status := flag.Bool("status", false, "Enable the status API regardless of the settings file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, created, err := config.LoadOrCreate(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if created {
		log.Printf("Wrote default settings to %s", *configPath)
	}

	if *mode != "" {
		if _, err := engine.ParseMode(*mode); err != nil {
			log.Fatalf("Invalid -mode: %v", err)
		}
		cfg.Bot.Mode = *mode
	}
	if *status {
		cfg.Status.Enabled = true
	}
	if *debug {
		cfg.Bot.Debug = true
	}

	a, err := app.New(cfg, app.Options{})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *testCombo {
		if err := a.RunTestCombo(ctx); err != nil {
			a.Logger().Error("Combo test failed", err)
			a.Close()
			os.Exit(1)
		}
		return
	}

	logger := a.Logger()
	logger.Info(fmt.Sprintf("Console101Farm starting in %s mode (card select: %s)", cfg.Bot.Mode, cfg.Bot.CardSelect))
	if cfg.Hotkeys.Stop != "" {
		logger.Info(fmt.Sprintf("Hotkeys: stop=%s pause=%s movement=%s controller=%s",
			cfg.Hotkeys.Stop, cfg.Hotkeys.Pause, cfg.Hotkeys.ToggleMovement, cfg.Hotkeys.ToggleController))
	}
	if s := a.Status(); s != nil {
		logger.Info(fmt.Sprintf("Status API on http://%s", cfg.Status.Addr))
	}

	if err := a.Run(ctx); err != nil {
		logger.Error("Run failed", err)
		a.Close()
		os.Exit(1)
	}
	logger.Info("Shutting down")
}
