// Package main serves a small HTTP app whose pages depend on Flipt flags.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flagcache "github.com/teracrafts/flagcache-go"
	"github.com/teracrafts/flagcache-go/config"
)

// shutdownTimeout is the grace period for in-flight requests.
const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := config.DefaultOptions()
	if err := config.LoadEnv(opts); err != nil {
		return err
	}

	client, err := flagcache.NewClient(flagcache.WithOptions(opts))
	if err != nil {
		return fmt.Errorf("create flag client: %w", err)
	}
	defer client.Close()

	server := &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           client.Middleware().Handler(newMux()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", opts.ListenAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/dashboard", dashboardHandler)
	mux.HandleFunc("/api/config", configHandler)
	return mux
}

func dashboardHandler(w http.ResponseWriter, r *http.Request) {
	if flagcache.FeaturesFromContext(r.Context())["new_dashboard"] {
		fmt.Fprint(w, "Showing new dashboard v2")
		return
	}
	fmt.Fprint(w, "Showing old dashboard v1")
}

type configResponse struct {
	Features map[string]bool `json:"features"`
	Version  string          `json:"version"`
}

func configHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(configResponse{
		Features: flagcache.FeaturesFromContext(r.Context()),
		Version:  config.Version,
	})
}
