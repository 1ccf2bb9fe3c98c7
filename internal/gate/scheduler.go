package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ScheduleConfig describes the daily scoring window.
type ScheduleConfig struct {
	Start    Clock
	End      Clock
	Location *time.Location
	// RestoreOnStart derives the initial state from the wall clock instead of
	// waiting closed until the next transition fires.
	RestoreOnStart bool
	// Now is used by RestoreOnStart; defaults to time.Now.
	Now func() time.Time
}

// Scheduler opens and closes a Window every day.
type Scheduler struct {
	window *Window
	cfg    ScheduleConfig
	cron   *cron.Cron
}

// NewScheduler registers the two daily transitions. It does not start them.
func NewScheduler(w *Window, cfg ScheduleConfig) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := cron.New(cron.WithLocation(cfg.Location))
	s := &Scheduler{window: w, cfg: cfg, cron: c}

	if _, err := c.AddFunc(spec(cfg.Start), s.open); err != nil {
		return nil, fmt.Errorf("failed to schedule window open at %s: %w", cfg.Start, err)
	}
	if _, err := c.AddFunc(spec(cfg.End), s.close); err != nil {
		return nil, fmt.Errorf("failed to schedule window close at %s: %w", cfg.End, err)
	}
	return s, nil
}

func spec(c Clock) string {
	return fmt.Sprintf("%d %d * * *", c.Minute, c.Hour)
}

func (s *Scheduler) open() {
	s.window.Open()
	log.Info().Str("at", s.cfg.Start.String()).Msg("Daily scoring window opened")
}

func (s *Scheduler) close() {
	s.window.Close()
	log.Info().Str("at", s.cfg.End.String()).Msg("Daily scoring window closed")
}

// Start begins firing transitions in the background.
func (s *Scheduler) Start() {
	if s.cfg.RestoreOnStart {
		now := s.cfg.Now().In(s.cfg.Location)
		active := InWindow(now, s.cfg.Start, s.cfg.End)
		s.window.Set(active)
		log.Info().Bool("active", active).Msg("Scoring window restored from wall clock")
	}

	s.cron.Start()
	log.Info().
		Str("start", s.cfg.Start.String()).
		Str("end", s.cfg.End.String()).
		Str("timezone", s.cfg.Location.String()).
		Msg("Scoring window scheduler started")
}

// Stop halts the scheduler. The returned context is done once a running
// transition has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	<-s.Stop().Done()
	return nil
}
