package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper periodically deletes audit entries past the retention window.
type Sweeper struct {
	svc           *Service
	retentionDays int
	interval      time.Duration
	stop          chan struct{}
	done          chan struct{}
}

// NewSweeper creates a Sweeper that keeps retentionDays of history and runs
// every interval.
func NewSweeper(svc *Service, retentionDays int, interval time.Duration) *Sweeper {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Sweeper{
		svc:           svc,
		retentionDays: retentionDays,
		interval:      interval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the background sweep loop.
func (w *Sweeper) Start() {
	go w.run()
}

// Stop terminates the loop and waits for it to exit.
func (w *Sweeper) Stop() {
	close(w.stop)
	<-w.done
}

func (w *Sweeper) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Info().
		Int("retention_days", w.retentionDays).
		Dur("interval", w.interval).
		Msg("Audit retention sweeper started")

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.svc.Cleanup(context.Background(), w.retentionDays)
		}
	}
}
