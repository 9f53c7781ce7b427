package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/dnldd/breakout/service"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	breakoutCfg := service.BreakoutConfig{
		Markets:          cfg.Markets,
		RedisAddr:        cfg.RedisAddr,
		RedisPassword:    cfg.RedisPassword,
		RedisDB:          cfg.RedisDB,
		BinanceAPIKey:    cfg.BinanceAPIKey,
		BinanceSecretKey: cfg.BinanceSecretKey,
		FMPAPIKey:        cfg.FMPAPIKey,
		WebhookURL:       cfg.WebhookURL,
		MetricsAddr:      cfg.MetricsAddr,
		Simulate:         cfg.Simulate,
		SimDataFilepath:  cfg.SimDataFilepath,
		Cancel:           cancel,
	}
	breakout, err := service.NewBreakout(&breakoutCfg)
	if err != nil {
		log.Printf("creating breakout service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	breakout.Run(ctx)
}
