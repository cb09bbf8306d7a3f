// Package config defines the runtime configuration for pmq and the
// rules a command line must satisfy before a queue is opened.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	pmqerrors "pmq/internal/errors"
	"pmq/internal/mqueue"
)

// Config holds every tuneable for a single pmq session.
type Config struct {
	// ── Queue ────────────────────────────────────────────────────────
	QueueName      string
	Read           bool
	Write          bool
	Open           bool // open an existing queue
	Create         bool // create the queue (exclusively unless Open)
	Permissions    uint32
	PermissionsSet bool // --permissions or PMQ_PERMISSIONS given
	MaxMsg         int64
	MsgSize        int64
	MaxMsgSet      bool // --maxmsg given
	MsgSizeSet     bool // --msgsize given
	Unlink         bool

	// ── Timing ───────────────────────────────────────────────────────
	Wait            time.Duration // keep retrying a missing queue this long
	PollInterval    time.Duration
	PollIntervalSet bool // --poll-interval or PMQ_POLL_INTERVAL given

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	Debug   bool
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Permissions:  DefaultPermissions,
		PollInterval: DefaultPollInterval,
	}
}

// Verbosity is the effective logger level: --debug forces the highest.
func (c *Config) Verbosity() int {
	if c.Debug && c.Verbose < 3 {
		return 3
	}
	return c.Verbose
}

// OpenFlags translates the read/write and open/create choices into
// mq_open flags.
func (c *Config) OpenFlags() int {
	var flags int
	switch {
	case c.Read && c.Write:
		flags = mqueue.ReadWrite
	case c.Read:
		flags = mqueue.ReadOnly
	default:
		flags = mqueue.WriteOnly
	}

	switch {
	case c.Open && c.Create:
		flags |= mqueue.Create
	case c.Create:
		flags |= mqueue.Create | mqueue.Exclusive
	}
	return flags
}

// OpenOptions builds the options passed to mqueue.Open.
func (c *Config) OpenOptions() mqueue.OpenOptions {
	opts := mqueue.OpenOptions{
		Flags:        c.OpenFlags(),
		Perm:         c.Permissions,
		PollInterval: c.PollInterval,
	}
	if c.MaxMsgSet && c.MsgSizeSet {
		opts.Attr = &mqueue.Attr{MaxMsg: c.MaxMsg, MsgSize: c.MsgSize}
	}
	return opts
}

// ── Parsers ──────────────────────────────────────────────────────────

// ParsePermissions accepts an octal file mode such as "600" or "0644".
func ParsePermissions(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0o"), "0O")
	mode, err := strconv.ParseUint(s, 8, 32)
	if err != nil || mode > 0o777 {
		return 0, fmt.Errorf("invalid octal permissions %q", s)
	}
	return uint32(mode), nil
}

// ParseSize accepts a byte count, plain ("8192") or humanized ("8KiB",
// "1 MB").
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > 1<<62 {
		return 0, fmt.Errorf("size %q is too large", s)
	}
	return int64(n), nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// The returned *errors.ConfigError carries the exit code for the
// violated rule.
func (c *Config) Validate() error {
	if c.QueueName == "" || strings.HasPrefix(c.QueueName, "-") {
		return &pmqerrors.ConfigError{
			Message: "final argument must be a non-option (the queue name)",
			Hint:    `queue names usually begin with a slash, e.g. "/jobs"`,
			Code:    CodeBadArgument,
		}
	}

	if c.Unlink {
		if c.Read || c.Write || c.Open || c.Create || c.MaxMsgSet || c.MsgSizeSet ||
			c.PermissionsSet || c.PollIntervalSet || c.Wait > 0 {
			return &pmqerrors.ConfigError{
				Field:   "unlink",
				Message: "must be alone or with --debug",
				Code:    CodeUnlinkAlone,
			}
		}
		return nil
	}

	if !c.Read && !c.Write {
		return &pmqerrors.ConfigError{
			Message: "one or both of --read and --write must be specified",
			Code:    CodeNeedReadWrite,
		}
	}

	if !c.Open && !c.Create {
		return &pmqerrors.ConfigError{
			Message: "one or both of --open and --create must be specified",
			Code:    CodeNeedOpenCreate,
		}
	}

	if c.MaxMsgSet != c.MsgSizeSet {
		missing := "msgsize"
		if !c.MaxMsgSet {
			missing = "maxmsg"
		}
		return &pmqerrors.ConfigError{
			Field:   missing,
			Message: "specify neither or both of --msgsize and --maxmsg",
			Code:    CodeLimitsPair,
		}
	}
	if c.MaxMsgSet && c.MaxMsg <= 0 {
		return &pmqerrors.ConfigError{Field: "maxmsg", Value: c.MaxMsg, Message: "must be positive", Code: CodeLimitsPair}
	}
	if c.MsgSizeSet && c.MsgSize <= 0 {
		return &pmqerrors.ConfigError{Field: "msgsize", Value: c.MsgSize, Message: "must be positive", Code: CodeLimitsPair}
	}

	if c.Wait > 0 && !c.Open {
		return &pmqerrors.ConfigError{
			Field:   "wait",
			Value:   c.Wait,
			Message: "only meaningful with --open",
			Hint:    "--create without --open fails if the queue exists; there is nothing to wait for",
			Code:    CodeBadArgument,
		}
	}

	if c.PollInterval < MinPollInterval {
		return &pmqerrors.ConfigError{
			Field:   "poll-interval",
			Value:   c.PollInterval,
			Message: fmt.Sprintf("must be at least %v", MinPollInterval),
			Code:    CodeBadArgument,
		}
	}

	return nil
}
