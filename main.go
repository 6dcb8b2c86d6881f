// Package main is the entry point for the EDMO control-plane server.
//
// The server bridges modular oscillator robots (EDMOs), reachable over
// serial or UDP broadcast, to remote players over WebRTC data channels. It
// owns the 40Hz tick scheduler that drives every active session, a
// line-oriented admin console for diagnostics and scripted runs, and an
// HTTP surface that onboards new players and reports session status.
//
// Configuration is loaded once from the environment (optionally via a
// .env file) and threaded explicitly into every component; there are no
// package-level mutable globals for ports, baud rate, log directory, or
// tick rate.
//
// Graceful shutdown is triggered by SIGINT/SIGTERM or by the admin
// console's "kill" command, and waits for every component to close its
// connections and flush its logs before exiting.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"edmoserver/http_server"
	"edmoserver/internal/backend"
	"edmoserver/internal/config"
	"edmoserver/internal/obs"
	"edmoserver/terminal"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(".env"); err != nil {
		obs.Debugf("no .env file loaded: %v", err)
	}

	cfg := config.Load()
	obs.Enabled = cfg.Debug

	b, err := backend.New(&cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize backend: %v", err))
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := b.Run(ctx); err != nil {
			obs.Errorf("backend stopped: %v", err)
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := terminal.Start(ctx, cfg.TerminalPort, b, cancel, b.Events()); err != nil {
			obs.Errorf("terminal server stopped: %v", err)
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := http_server.Start(ctx, cfg.HTTPPort, b); err != nil {
			obs.Errorf("HTTP server stopped: %v", err)
			cancel()
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		obs.Debugf("context cancelled, shutting down servers...")
	case <-sigs:
		obs.Debugf("received termination signal, shutting down...")
	}

	cancel()
	b.Shutdown()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		obs.Debugf("all servers have shut down gracefully")
	case <-time.After(60 * time.Second):
		obs.Debugf("timeout waiting for servers to shut down, forcing exit")
	}
}
