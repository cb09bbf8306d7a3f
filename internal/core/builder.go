package core

import (
	"time"

	"golang.org/x/sys/unix"

	"pmq/config"
	pmqerrors "pmq/internal/errors"
	"pmq/internal/metrics"
	"pmq/internal/mqueue"
	"pmq/internal/retry"
	"pmq/util"
)

// Build constructs the Mode selected by a validated configuration.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.Unlink {
		return buildUnlink(cfg, logger), nil
	}
	return buildServe(cfg, logger), nil
}

// ── mode builders ────────────────────────────────────────────────────

func buildServe(cfg *config.Config, logger *util.Logger) *ServeMode {
	m := &ServeMode{
		Name:    cfg.QueueName,
		Options: cfg.OpenOptions(),
		Open:    openKernelQueue,
		Logger:  logger,
		Metrics: metrics.New(),
	}
	if cfg.Wait > 0 {
		m.Wait = buildWaitBackoff(cfg.Wait)
	}
	return m
}

func buildUnlink(cfg *config.Config, logger *util.Logger) *UnlinkMode {
	return &UnlinkMode{
		Name:   cfg.QueueName,
		Unlink: mqueue.Unlink,
		Logger: logger,
	}
}

// ── shared helpers ───────────────────────────────────────────────────

// buildWaitBackoff retries only "no such queue" for up to wait.
func buildWaitBackoff(wait time.Duration) *retry.Backoff {
	return &retry.Backoff{
		InitialDelay: config.DefaultWaitInitialDelay,
		MaxDelay:     config.DefaultWaitMaxDelay,
		Multiplier:   2.0,
		MaxElapsed:   wait,
		Jitter:       true,
		Retryable:    func(err error) bool { return pmqerrors.Errno(err) == int(unix.ENOENT) },
	}
}
