package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/room4-2/lelamp-dashboard/clock"
	"github.com/room4-2/lelamp-dashboard/config"
	"github.com/room4-2/lelamp-dashboard/dashboard"
	"github.com/room4-2/lelamp-dashboard/sink"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pick the presentation sink
	var out sink.Sink
	var consoleOut io.Writer = os.Stdout
	switch cfg.SinkType {
	case config.SinkTerminal:
		term := sink.NewTerminal(os.Stdout, true)
		consoleOut = term.Console()
		out = term
	case config.SinkLog:
		out = sink.Log{}
	default:
		log.Fatalf("Unknown SINK_TYPE: %s", cfg.SinkType)
	}

	// Optional Redis fan-out, the dashboard runs fine without it
	var redisSink *sink.Redis
	if cfg.RedisURL != "" {
		redisSink, err = sink.NewRedis(ctx, cfg.RedisURL, cfg.RedisPassword, cfg.RedisChannel)
		if err != nil {
			log.Printf("⚠️ Redis unavailable, continuing without it: %v", err)
		} else {
			log.Printf("✅ Publishing dashboard state to Redis channel %s", cfg.RedisChannel)
			out = sink.Multi{out, redisSink}
		}
	}

	d, err := dashboard.New(cfg, out, clock.Real())
	if err != nil {
		log.Fatalf("Failed to create dashboard: %v", err)
	}

	log.Printf("🚀 LeLamp dashboard connecting to %s", d.Manager.URL())
	d.Start(ctx)

	// Operator console on stdin
	go func() {
		err := d.RunConsole(ctx, os.Stdin, consoleOut)
		if err != nil && !errors.Is(err, dashboard.ErrQuit) {
			log.Printf("❌ Console error: %v", err)
		}
		if errors.Is(err, dashboard.ErrQuit) {
			cancel()
		}
	}()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("\nReceived shutdown signal...")
	case <-ctx.Done():
	}

	cancel()
	d.Shutdown()
	if redisSink != nil {
		if err := redisSink.Close(); err != nil {
			log.Printf("Redis close error: %v", err)
		}
	}

	log.Println("Dashboard stopped")
}
