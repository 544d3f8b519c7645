package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/GoSim-25-26J-441/psweep/pkg/config"
	"github.com/GoSim-25-26J-441/psweep/pkg/logger"
	"github.com/GoSim-25-26J-441/psweep/pkg/utils"
)

// Poll defaults: a one second wait, at most 10000 times.
const (
	DefaultPollInterval = time.Second
	DefaultPollLimit    = 10000
)

// ErrPollTimeout is returned when the marker did not appear within the step limit.
var ErrPollTimeout = errors.New("completion marker not found before poll limit")

// Poller waits for a completion marker file
type Poller struct {
	Limit   int
	Backoff utils.BackoffStrategy
}

// NewPoller creates a fixed-interval poller
func NewPoller(interval time.Duration, limit int) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if limit <= 0 {
		limit = DefaultPollLimit
	}
	return &Poller{Limit: limit, Backoff: utils.NewConstantBackoff(interval)}
}

// PollerFromConfig builds a poller from the poll section of a sweep file
func PollerFromConfig(c config.Poll) (*Poller, error) {
	interval, err := c.GetInterval()
	if err != nil {
		return nil, fmt.Errorf("invalid poll interval: %w", err)
	}
	backoff, err := utils.BackoffFromConfig(c.Backoff, interval, 0)
	if err != nil {
		return nil, err
	}
	limit := c.Limit
	if limit <= 0 {
		limit = DefaultPollLimit
	}
	return &Poller{Limit: limit, Backoff: backoff}, nil
}

// Wait returns nil once path exists. It checks before every sleep and gives
// up with ErrPollTimeout after Limit sleeps, or with ctx.Err() on cancellation.
func (p *Poller) Wait(ctx context.Context, path string) error {
	backoff := p.Backoff
	if backoff == nil {
		backoff = utils.NewConstantBackoff(DefaultPollInterval)
	}

	for attempt := 0; ; attempt++ {
		if _, err := os.Stat(path); err == nil {
			logger.Debug("marker found", "path", path, "attempts", attempt)
			return nil
		}
		if attempt >= p.Limit {
			return fmt.Errorf("%w: %s after %d attempts", ErrPollTimeout, path, attempt)
		}

		timer := time.NewTimer(backoff.NextDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
