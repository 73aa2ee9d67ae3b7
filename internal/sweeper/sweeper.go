// Package sweeper runs periodic broker maintenance: elapsed do-not-disturb
// windows are collapsed even when nobody reads them, so persisted state
// never advertises a window that is already over.
package sweeper

import (
	"github.com/robfig/cron/v3"

	logx "notibroker/pkg/logx"
)

// Target is the broker surface the sweeper drives.
type Target interface {
	ExpireDoNotDisturb()
}

type Config struct {
	Schedule string `json:"schedule" yaml:"schedule"`
}

const defaultSchedule = "@every 1m"

type Service struct {
	cron *cron.Cron
	log  logx.Logger
}

func New(cfg Config, target Target, log logx.Logger) (*Service, error) {
	s := &Service{
		cron: cron.New(),
		log:  log.With(logx.String("comp", "sweeper")),
	}
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = defaultSchedule
	}
	if _, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug("maintenance tick")
		target.ExpireDoNotDisturb()
	}); err != nil {
		return nil, err
	}
	s.log.Info("sweeper configured", logx.String("schedule", schedule))
	return s, nil
}

func (s *Service) Start() { s.cron.Start() }

// Stop halts scheduling and waits for an in-flight tick to finish.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("sweeper stopped")
}
