package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Job names.
const (
	JobCleanup      = "cleanup"
	JobOverdueGoals = "overdue-goals"
)

// ipIdleTimeout is how long an IP bucket may stay untouched before it is evicted.
const ipIdleTimeout = 30 * time.Minute

type RateLimitCleaner interface {
	Cleanup(ctx context.Context) (int, error)
}

type CSRFCleaner interface {
	Cleanup()
	Count() int
}

type IPEvicter interface {
	Evict(idle time.Duration) int
}

type OTPCleaner interface {
	Cleanup(ctx context.Context) (expired, deleted int64, err error)
}

type TokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

type ViewFlusher interface {
	FlushViews(ctx context.Context) (int, error)
}

type GoalNotifier interface {
	NotifyOverdueGoals(ctx context.Context) (int, error)
}

// Maintenance holds the stores swept by the cleanup job. Nil members are skipped,
// which lets the CLI run the database sweeps without the in-memory state of a server.
type Maintenance struct {
	RateLimits RateLimitCleaner
	CSRF       CSRFCleaner
	IPs        IPEvicter
	OTPs       OTPCleaner
	Tokens     TokenCleaner
	Views      ViewFlusher
	Goals      GoalNotifier
	Logger     zerolog.Logger
}

// CleanupReport counts what one cleanup pass removed.
type CleanupReport struct {
	RateLimitEntries int   `json:"rateLimitEntries"`
	CSRFTokens       int   `json:"csrfTokens"`
	IPBuckets        int   `json:"ipBuckets"`
	OTPsExpired      int64 `json:"otpsExpired"`
	OTPsDeleted      int64 `json:"otpsDeleted"`
	RefreshTokens    int64 `json:"refreshTokens"`
	PostViews        int   `json:"postViews"`
}

// Cleanup sweeps every configured store and flushes pending post views. A failing
// store does not stop the others; the errors are joined.
func (m *Maintenance) Cleanup(ctx context.Context) (CleanupReport, error) {
	var report CleanupReport
	var errs []error

	if m.RateLimits != nil {
		n, err := m.RateLimits.Cleanup(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("rate limit cleanup: %w", err))
		}
		report.RateLimitEntries = n
	}

	if m.CSRF != nil {
		before := m.CSRF.Count()
		m.CSRF.Cleanup()
		if removed := before - m.CSRF.Count(); removed > 0 {
			report.CSRFTokens = removed
		}
	}

	if m.IPs != nil {
		report.IPBuckets = m.IPs.Evict(ipIdleTimeout)
	}

	if m.OTPs != nil {
		expired, deleted, err := m.OTPs.Cleanup(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("otp cleanup: %w", err))
		}
		report.OTPsExpired, report.OTPsDeleted = expired, deleted
	}

	if m.Tokens != nil {
		n, err := m.Tokens.CleanupExpiredTokens(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("refresh token cleanup: %w", err))
		}
		report.RefreshTokens = n
	}

	if m.Views != nil {
		n, err := m.Views.FlushViews(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("post view flush: %w", err))
		}
		report.PostViews = n
	}

	m.Logger.Info().
		Int("rateLimitEntries", report.RateLimitEntries).
		Int("csrfTokens", report.CSRFTokens).
		Int("ipBuckets", report.IPBuckets).
		Int64("otpsExpired", report.OTPsExpired).
		Int64("otpsDeleted", report.OTPsDeleted).
		Int64("refreshTokens", report.RefreshTokens).
		Int("postViews", report.PostViews).
		Msg("Cleanup finished")

	return report, errors.Join(errs...)
}

// NotifyOverdueGoals reminds members about last week's unfinished goals.
func (m *Maintenance) NotifyOverdueGoals(ctx context.Context) error {
	if m.Goals == nil {
		return nil
	}
	n, err := m.Goals.NotifyOverdueGoals(ctx)
	if err != nil {
		return fmt.Errorf("overdue goal notification: %w", err)
	}
	if n > 0 {
		m.Logger.Info().Int("users", n).Msg("Overdue goal reminders sent")
	}
	return nil
}

// Register schedules the maintenance jobs on s.
func Register(s *Scheduler, m *Maintenance, cleanupEvery, overdueEvery time.Duration) error {
	err := s.Every(JobCleanup, cleanupEvery, func(ctx context.Context) error {
		_, err := m.Cleanup(ctx)
		return err
	})
	if err != nil {
		return err
	}
	return s.Every(JobOverdueGoals, overdueEvery, m.NotifyOverdueGoals)
}
