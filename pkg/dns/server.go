package dns

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/tracething/pkg/log"
	"github.com/cuemby/tracething/pkg/metrics"
	"github.com/google/uuid"
	"github.com/miekg/dns"
)

const (
	// DefaultListenAddr answers on every interface, v4 and v6
	DefaultListenAddr = "[::]:53"

	// startTimeout bounds how long Start waits for listeners to bind
	startTimeout = 5 * time.Second
)

// Server is the tracething DNS listener
type Server struct {
	router     *Router
	listenAddr string
	networks   []string
	servers    []*dns.Server
	mu         sync.RWMutex
	running    bool
}

// Config holds DNS server configuration
type Config struct {
	ListenAddr string   // Address to listen on (default: [::]:53)
	Networks   []string // Transports to serve (default: udp and tcp)
}

// NewServer creates a new DNS server around router
func NewServer(router *Router, config *Config) *Server {
	if config == nil {
		config = &Config{}
	}
	if config.ListenAddr == "" {
		config.ListenAddr = DefaultListenAddr
	}
	if len(config.Networks) == 0 {
		config.Networks = []string{"udp", "tcp"}
	}

	return &Server{
		router:     router,
		listenAddr: config.ListenAddr,
		networks:   config.Networks,
	}
}

// Start binds every configured network and returns once they are serving
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("DNS server already running")
	}
	s.running = true
	s.mu.Unlock()

	log.Logger.Info().
		Str("component", "dns").
		Str("address", s.listenAddr).
		Strs("networks", s.networks).
		Msg("starting DNS server")

	// Create DNS handler
	mux := dns.NewServeMux()
	mux.HandleFunc(".", s.handleDNSQuery)

	errCh := make(chan error, len(s.networks))
	started := make(chan struct{}, len(s.networks))

	servers := make([]*dns.Server, 0, len(s.networks))
	for _, network := range s.networks {
		srv := &dns.Server{
			Addr:              s.listenAddr,
			Net:               network,
			Handler:           mux,
			NotifyStartedFunc: func() { started <- struct{}{} },
		}
		servers = append(servers, srv)

		go func(network string) {
			if err := srv.ListenAndServe(); err != nil {
				log.Logger.Error().
					Err(err).
					Str("component", "dns").
					Str("network", network).
					Msg("DNS server error")
				errCh <- fmt.Errorf("%s listener: %w", network, err)
			}
		}(network)
	}

	s.mu.Lock()
	s.servers = servers
	s.mu.Unlock()

	// Wait for every listener to start or any to fail
	timeout := time.NewTimer(startTimeout)
	defer timeout.Stop()
	for pending := len(servers); pending > 0; {
		select {
		case <-started:
			pending--
		case err := <-errCh:
			_ = s.Stop()
			return err
		case <-ctx.Done():
			_ = s.Stop()
			return ctx.Err()
		case <-timeout.C:
			_ = s.Stop()
			return fmt.Errorf("DNS server did not start within %s", startTimeout)
		}
	}

	metrics.RegisterComponent("dns", true, "serving "+s.listenAddr)
	log.Logger.Info().
		Str("component", "dns").
		Str("address", s.listenAddr).
		Msg("DNS server started successfully")
	return nil
}

// Stop stops the DNS server
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	log.Logger.Info().
		Str("component", "dns").
		Msg("stopping DNS server")

	var firstErr error
	for _, srv := range s.servers {
		if err := srv.Shutdown(); err != nil && firstErr == nil {
			log.Logger.Error().
				Err(err).
				Str("component", "dns").
				Str("network", srv.Net).
				Msg("error stopping DNS server")
			firstErr = err
		}
	}

	s.servers = nil
	s.running = false
	metrics.UpdateComponent("dns", false, "stopped")

	log.Logger.Info().
		Str("component", "dns").
		Msg("DNS server stopped")

	return firstErr
}

// handleDNSQuery answers one message. Each message runs on its own
// goroutine inside miekg/dns.
func (s *Server) handleDNSQuery(w dns.ResponseWriter, r *dns.Msg) {
	queryID := uuid.New().String()
	logger := log.WithQueryID("dns", queryID)
	timer := metrics.NewTimer()

	msg := &dns.Msg{}
	msg.SetReply(r)
	msg.Authoritative = true

	// A panicking source must not take the listener down
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().
				Interface("panic", rec).
				Msg("recovered from panic while answering query")
			msg.Answer = nil
			s.write(w, msg)
		}
	}()

	if len(r.Question) != 1 {
		logger.Debug().
			Int("questions", len(r.Question)).
			Msg("rejecting message without exactly one question")
		msg.SetRcode(r, dns.RcodeFormatError)
		s.write(w, msg)
		return
	}

	q := r.Question[0]
	logger.Debug().
		Str("query", q.Name).
		Uint16("type", q.Qtype).
		Msg("DNS query received")

	ctx := logger.WithContext(context.Background())
	msg.Answer = s.router.Resolve(ctx, q)
	timer.ObserveDurationVec(metrics.QueryDuration, dns.TypeToString[q.Qtype])

	s.write(w, msg)
}

func (s *Server) write(w dns.ResponseWriter, msg *dns.Msg) {
	if err := w.WriteMsg(msg); err != nil {
		log.Logger.Error().
			Err(err).
			Str("component", "dns").
			Msg("failed to write DNS response")
	}
}

// IsRunning returns true if the DNS server is running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
