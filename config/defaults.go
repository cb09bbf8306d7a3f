package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultPermissions is the mode given to a newly created queue.
	DefaultPermissions = 0o600

	// DefaultPollInterval bounds one kernel wait inside a blocking
	// receive.  A consumer observes "close" within this interval.
	DefaultPollInterval = 100 * time.Millisecond

	// MinPollInterval keeps the consumer from spinning on the kernel.
	MinPollInterval = time.Millisecond

	// DefaultWaitInitialDelay is the first backoff step while waiting
	// for a queue to be created by someone else (--wait).
	DefaultWaitInitialDelay = 50 * time.Millisecond

	// DefaultWaitMaxDelay caps the backoff while waiting for a queue.
	DefaultWaitMaxDelay = 2 * time.Second
)

// Exit codes for invalid command lines.
const (
	CodeUsage          = 1
	CodeUnlinkAlone    = 2
	CodeNeedReadWrite  = 3
	CodeNeedOpenCreate = 4
	CodeLimitsPair     = 5
	CodeBadArgument    = 6
)
