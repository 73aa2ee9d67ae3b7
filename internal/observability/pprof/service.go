// Package pprof serves the runtime profiling endpoints on an optional,
// token-guarded HTTP listener.
package pprof

import (
	"context"
	"errors"
	"net"
	"net/http"
	hpprof "net/http/pprof"
	"runtime"
	"strings"
	"sync"
	"time"

	logx "notibroker/pkg/logx"
)

// Config controls the optional pprof HTTP server.
//
// Security:
//   - Prefer binding to localhost (default).
//   - If binding to a non-loopback address, set Token or enable AllowInsecure.
type Config struct {
	Enabled       bool
	Addr          string
	Prefix        string
	Token         string
	AllowInsecure bool

	ReadTimeout time.Duration
	IdleTimeout time.Duration

	MutexProfileFraction int
	BlockProfileRate     int
	MemProfileRate       int
}

type Service struct {
	cfg Config
	log logx.Logger

	mu  sync.Mutex
	srv *http.Server
}

func New(cfg Config, log logx.Logger) *Service {
	return &Service{cfg: cfg, log: log.With(logx.String("comp", "pprof"))}
}

func (s *Service) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	addr := s.cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:6060"
	}
	if !isLoopback(addr) && s.cfg.Token == "" && !s.cfg.AllowInsecure {
		return errors.New("pprof: refusing non-loopback bind without token (set allow_insecure to override)")
	}
	prefix := s.cfg.Prefix
	if prefix == "" {
		prefix = "/debug/pprof/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	if s.cfg.MutexProfileFraction > 0 {
		runtime.SetMutexProfileFraction(s.cfg.MutexProfileFraction)
	}
	if s.cfg.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(s.cfg.BlockProfileRate)
	}
	if s.cfg.MemProfileRate > 0 {
		runtime.MemProfileRate = s.cfg.MemProfileRate
	}

	mux := http.NewServeMux()
	mux.HandleFunc(prefix, hpprof.Index)
	mux.HandleFunc(prefix+"cmdline", hpprof.Cmdline)
	mux.HandleFunc(prefix+"profile", hpprof.Profile)
	mux.HandleFunc(prefix+"symbol", hpprof.Symbol)
	mux.HandleFunc(prefix+"trace", hpprof.Trace)

	handler := http.Handler(mux)
	if s.cfg.Token != "" {
		handler = s.authWrap(mux)
	}

	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: s.cfg.ReadTimeout,
		IdleTimeout: s.cfg.IdleTimeout,
		// WriteTimeout stays 0 so /profile (30s+) works.
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("pprof server exited", logx.Err(err))
		}
	}()
	s.log.Info("pprof listening", logx.String("addr", addr), logx.String("prefix", prefix))
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return
	}
	_ = srv.Shutdown(ctx)
}

func (s *Service) authWrap(next http.Handler) http.Handler {
	token := s.cfg.Token
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
