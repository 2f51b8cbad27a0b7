package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/yeremiapane/qr-table-order/utils"
)

// SessionSweeper periodically closes tables whose session has been left
// open with nothing in progress.
type SessionSweeper struct {
	cron     *cron.Cron
	sessions *SessionService
	schedule string
	maxAge   time.Duration
	now      func() time.Time
}

func NewSessionSweeper(sessions *SessionService, schedule string, maxAge time.Duration) *SessionSweeper {
	return &SessionSweeper{
		cron:     cron.New(),
		sessions: sessions,
		schedule: schedule,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Start schedules the sweep. A zero maxAge disables it.
func (s *SessionSweeper) Start() error {
	if s.maxAge <= 0 {
		utils.InfoLogger.Info("session sweeper disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return err
	}
	s.cron.Start()
	utils.InfoLogger.WithField("schedule", s.schedule).Info("session sweeper started")
	return nil
}

// Stop waits for a running sweep to finish, up to ctx.
func (s *SessionSweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Sweep closes every stale table once and reports how many it closed.
func (s *SessionSweeper) Sweep(ctx context.Context) (int, error) {
	return s.sessions.CloseStale(ctx, s.now().Add(-s.maxAge))
}

func (s *SessionSweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	closed, err := s.Sweep(ctx)
	if err != nil {
		utils.ErrorLogger.Errorf("session sweep failed: %v", err)
		return
	}
	if closed > 0 {
		utils.InfoLogger.WithField("closed", closed).Info("stale table sessions closed")
	}
}
