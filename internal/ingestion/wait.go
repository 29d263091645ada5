package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trendingnow/trends-ingestion-service/internal/storage"
)

// ErrLoadTimeout is returned when a load job does not finish before the deadline
var ErrLoadTimeout = errors.New("load job timed out")

// waitForLoad polls job every interval until it finishes, fails, or timeout elapses
func (s *Service) waitForLoad(ctx context.Context, job storage.LoadJob) error {
	deadline := time.NewTimer(s.config.LoadTimeout)
	defer deadline.Stop()

	ticker := time.NewTicker(s.config.LoadPollInterval)
	defer ticker.Stop()

	for {
		done, err := job.Poll(ctx)
		if err != nil {
			return fmt.Errorf("load job %s failed: %w", job.ID(), err)
		}
		if done {
			return nil
		}

		s.log.WithField("job_id", job.ID()).Debug("load job still running")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: job %s after %s", ErrLoadTimeout, job.ID(), s.config.LoadTimeout)
		case <-ticker.C:
		}
	}
}
