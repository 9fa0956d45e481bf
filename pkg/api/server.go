package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cuemby/tracething/pkg/events"
	"github.com/cuemby/tracething/pkg/log"
	"github.com/cuemby/tracething/pkg/metrics"
	"github.com/cuemby/tracething/pkg/slot"
)

// SlotStatter reports slot table occupancy
type SlotStatter interface {
	Stats() slot.Stats
}

// EventSource hands out activity subscriptions
type EventSource interface {
	Subscribe() events.Subscriber
	Unsubscribe(sub events.Subscriber)
}

// AdminServer serves health, readiness, metrics and slot occupancy over HTTP
type AdminServer struct {
	slots   SlotStatter
	sources []string
	events  EventSource
	mux     *http.ServeMux

	mu        sync.Mutex
	server    *http.Server
	addr      net.Addr
	closing   chan struct{}
	closeOnce sync.Once
}

// NewAdminServer creates the admin listener. slots may be nil, in which
// case /slots reports the table as unavailable.
func NewAdminServer(slots SlotStatter, sources []string) *AdminServer {
	mux := http.NewServeMux()
	as := &AdminServer{
		slots:   slots,
		sources: sources,
		mux:     mux,
		closing: make(chan struct{}),
	}

	// Register endpoints
	mux.HandleFunc("/health", as.healthHandler)
	mux.HandleFunc("/ready", as.readyHandler)
	mux.Handle("/livez", metrics.LivenessHandler())
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/slots", as.slotsHandler)
	mux.HandleFunc("/events", as.eventsHandler)

	return as
}

// SetEvents enables the /events stream. Call before Start.
func (as *AdminServer) SetEvents(src EventSource) {
	as.events = src
}

// Start listens on addr and serves until Shutdown. It returns
// http.ErrServerClosed after a clean shutdown, including one that happened
// before Start was called.
func (as *AdminServer) Start(addr string) error {
	if as.isClosing() {
		return http.ErrServerClosed
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:      ReadOnly(as.mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	as.mu.Lock()
	if as.isClosing() {
		as.mu.Unlock()
		_ = lis.Close()
		return http.ErrServerClosed
	}
	as.server = server
	as.addr = lis.Addr()
	as.mu.Unlock()

	log.Logger.Info().
		Str("component", "admin").
		Str("address", lis.Addr().String()).
		Msg("admin listener started")

	return server.Serve(lis)
}

// Shutdown ends open event streams and gracefully stops the listener
func (as *AdminServer) Shutdown(ctx context.Context) error {
	as.closeOnce.Do(func() { close(as.closing) })

	as.mu.Lock()
	server := as.server
	as.mu.Unlock()

	if server == nil {
		return nil
	}
	if err := server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to stop admin listener: %w", err)
	}

	log.Logger.Info().
		Str("component", "admin").
		Msg("admin listener stopped")
	return nil
}

func (as *AdminServer) isClosing() bool {
	select {
	case <-as.closing:
		return true
	default:
		return false
	}
}

// Addr returns the bound address once Start is listening, nil before
func (as *AdminServer) Addr() net.Addr {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.addr
}

// GetHandler returns the HTTP handler for embedding in other servers
func (as *AdminServer) GetHandler() http.Handler {
	return ReadOnly(as.mux)
}
