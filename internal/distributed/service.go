package distributed

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"notibroker/internal/notify"
	logx "notibroker/pkg/logx"
)

// Service is the outbound mirror. It satisfies the broker's Mirror
// collaborator: enqueue calls never block the broker worker; a dedicated
// goroutine paces sends through a token bucket and retries transient
// transport failures.
type Service struct {
	cfg       Config
	transport Transport
	handler   Handler
	log       logx.Logger

	limiter *rate.Limiter
	queue   chan Envelope

	stopCh   chan struct{}
	stopOnce sync.Once
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func New(cfg Config, transport Transport, handler Handler, log logx.Logger) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		cfg:       cfg,
		transport: transport,
		handler:   handler,
		log:       log.With(logx.String("comp", "distributed")),
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		queue:     make(chan Envelope, cfg.QueueSize),
		stopCh:    make(chan struct{}),
	}
}

func (s *Service) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in mirror sender", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			}
		}()
		s.sender(runCtx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in mirror listener", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			}
		}()
		if err := s.transport.Listen(runCtx, s.handleInbound); err != nil && runCtx.Err() == nil {
			s.log.Error("mirror listener exited", logx.Err(err))
		}
	}()

	s.log.Info("mirror started", logx.String("device", s.cfg.DeviceID), logx.String("channel", s.cfg.Channel), logx.Int("rps", s.cfg.RatePerSec))
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.cancel != nil {
			s.cancel()
		}
	})
	s.wg.Wait()
	s.log.Info("mirror stopped")
}

// Publish implements broker.Mirror.
func (s *Service) Publish(r *notify.Record) { s.enqueue(OpPublish, r) }

// Update implements broker.Mirror.
func (s *Service) Update(r *notify.Record) { s.enqueue(OpUpdate, r) }

// Delete implements broker.Mirror.
func (s *Service) Delete(r *notify.Record) { s.enqueue(OpDelete, r) }

func (s *Service) enqueue(op Op, r *notify.Record) {
	env := Envelope{
		Op:       op,
		DeviceID: s.cfg.DeviceID,
		Bundle:   r.Owner.Name,
		OwnerUID: r.Owner.UID,
		Label:    r.Content.Label,
		ID:       r.Content.ID,
		SentAt:   time.Now().UnixMilli(),
	}
	if op != OpDelete {
		env.Content = r.Content
	}
	select {
	case s.queue <- env:
	default:
		// A full queue means the sync channel is down or badly behind;
		// mirroring is best-effort, local delivery already happened.
		s.log.Warn("mirror queue full, dropping", logx.String("op", string(op)), logx.String("bundle", env.Bundle))
	}
}

func (s *Service) sender(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case env := <-s.queue:
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
			s.sendOne(ctx, env)
		}
	}
}

func (s *Service) sendOne(ctx context.Context, env Envelope) {
	var err error
	for attempt := 0; attempt <= s.cfg.RetryMax; attempt++ {
		if attempt > 0 {
			delay := s.cfg.RetryBase * time.Duration(1<<(attempt-1))
			tmr := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				tmr.Stop()
				return
			case <-tmr.C:
			}
		}
		if err = s.transport.Send(ctx, env); err == nil {
			return
		}
		s.log.Debug("mirror send failed", logx.String("op", string(env.Op)), logx.Int("attempt", attempt+1), logx.Err(err))
	}
	s.log.Warn("mirror send gave up", logx.String("op", string(env.Op)), logx.String("bundle", env.Bundle), logx.Err(err))
}

// handleInbound re-enters remote operations through the broker. Envelopes
// originating from this device are echoes and get dropped.
func (s *Service) handleInbound(env Envelope) {
	if env.DeviceID == "" || env.DeviceID == s.cfg.DeviceID {
		return
	}
	owner := notify.BundleID{Name: env.Bundle, UID: env.OwnerUID}
	var err error
	switch env.Op {
	case OpPublish, OpUpdate:
		err = s.handler.PublishFromDevice(env.DeviceID, owner, env.Content)
	case OpDelete:
		err = s.handler.DeleteFromDevice(env.DeviceID, owner, env.Label, env.ID)
	default:
		s.log.Warn("unknown mirror op", logx.String("op", string(env.Op)))
		return
	}
	if err != nil {
		s.log.Warn("inbound mirror op rejected", logx.String("op", string(env.Op)), logx.String("device", env.DeviceID), logx.Err(err))
	}
}
