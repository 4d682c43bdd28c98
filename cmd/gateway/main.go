// Command gateway runs the payments gateway: an HTTP ingress, an
// in-process dispatch pipeline to the default/fallback processors, and
// an internal gRPC diagnostics service.
package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/go-rinha/payments-gateway/internal/config"
	"github.com/go-rinha/payments-gateway/internal/diagnostics"
	"github.com/go-rinha/payments-gateway/internal/dispatcher"
	"github.com/go-rinha/payments-gateway/internal/health"
	"github.com/go-rinha/payments-gateway/internal/ingress"
	"github.com/go-rinha/payments-gateway/internal/queue"
	"github.com/go-rinha/payments-gateway/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log.Printf("gateway: default=%s fallback=%s", cfg.Default.Addr, cfg.Fallback.Addr)

	st := store.New()
	q := queue.New(queue.DefaultCapacity)
	view := health.NewView()

	client := dispatcher.NewHTTPClient()

	probe := health.NewProbe(view, client, cfg.Default, cfg.Fallback)
	probe.Start()
	defer probe.Stop()

	dsp := dispatcher.New(q, st, view, cfg.Default, cfg.Fallback, client)
	dsp.Start()
	defer dsp.Stop()

	httpSrv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      ingress.New(q, st).Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	grpcSrv := grpc.NewServer()
	diagnostics.Register(grpcSrv, diagnostics.New(view, st))

	diagLis, err := net.Listen("tcp", cfg.DiagAddr)
	if err != nil {
		log.Fatalf("gateway: failed to bind diagnostics listener on %s: %v", cfg.DiagAddr, err)
	}

	go func() {
		log.Printf("gateway: diagnostics gRPC listening on %s", cfg.DiagAddr)
		if err := grpcSrv.Serve(diagLis); err != nil {
			log.Printf("gateway: diagnostics server stopped: %v", err)
		}
	}()

	go func() {
		log.Printf("gateway: ingress listening on %s", cfg.Addr())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("gateway: ingress server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("gateway: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("gateway: ingress shutdown error: %v", err)
	}
	grpcSrv.GracefulStop()
}
