// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"pmq/config"
	"pmq/internal/core"
	pmqerrors "pmq/internal/errors"
	"pmq/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X pmq/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

//go:embed readme.txt
var readme string

// Execute parses args and runs the selected pmq mode on the process's
// standard streams.
func Execute(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return pmqerrors.Command("usage", config.CodeUsage, pmqerrors.New("no arguments"))
	}

	cfg, show, err := parse(args, stderr)
	if err != nil {
		return err
	}
	switch show {
	case "help":
		printHelp(stdout)
		return nil
	case "readme":
		fmt.Fprint(stdout, readme)
		return nil
	case "version":
		fmt.Fprintf(stdout, "pmq %s\n", version)
		return nil
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbosity())
	logger.SetOutput(stderr)
	logger.SetTimestamps(cfg.Debug)

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	if m, ok := mode.(*core.ServeMode); ok {
		m.Stdin, m.Stdout = stdin, stdout
	}
	return mode.Run(ctx)
}

// parse builds a Config from the environment and args.  show is set
// when an informational flag asks to print something and exit.
func parse(args []string, stderr io.Writer) (cfg *config.Config, show string, err error) {
	cfg = config.New()
	config.LoadFromEnv(cfg)
	envVerbose := cfg.Verbose

	fs := flag.NewFlagSet("pmq", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {}

	// ── queue ────────────────────────────────────────────────────
	fs.BoolVar(&cfg.Read, "read", false, "Open the queue for receiving messages")
	fs.BoolVar(&cfg.Write, "write", false, "Open the queue for sending messages")
	fs.BoolVar(&cfg.Open, "open", false, "Open the queue (only if existing, if without --create)")
	fs.BoolVar(&cfg.Create, "create", false, "Create the queue (exclusively, if without --open)")
	fs.BoolVar(&cfg.Unlink, "unlink", false, "Remove the queue and exit")

	perms := fs.String("permissions", fmt.Sprintf("%o", cfg.Permissions), "Octal permissions used when creating the queue")
	fs.Int64Var(&cfg.MaxMsg, "maxmsg", cfg.MaxMsg, "Maximum number of messages in a created queue")
	msgsize := fs.String("msgsize", "", "Maximum message size of a created queue (e.g. 8192, 8KiB)")

	// ── timing ───────────────────────────────────────────────────
	fs.DurationVar(&cfg.Wait, "wait", cfg.Wait, "Keep retrying --open of a missing queue for this long")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Longest single kernel wait while receiving")

	// ── output ───────────────────────────────────────────────────
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Print a debugging trace to stderr")
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showHelp, showReadme, showVersion bool
	fs.BoolVarP(&showHelp, "help", "h", false, "Print this help to stdout")
	fs.BoolVar(&showReadme, "readme", false, "Print the protocol reference to stdout")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return nil, "", &pmqerrors.ConfigError{Message: err.Error(), Hint: "see pmq --help", Code: config.CodeBadArgument}
	}

	switch {
	case showHelp:
		return cfg, "help", nil
	case showReadme:
		return cfg, "readme", nil
	case showVersion:
		return cfg, "version", nil
	}

	if !fs.Changed("verbose") {
		cfg.Verbose = envVerbose
	}

	if fs.Changed("permissions") {
		mode, err := config.ParsePermissions(*perms)
		if err != nil {
			return nil, "", &pmqerrors.ConfigError{Field: "permissions", Value: *perms, Message: err.Error(), Code: config.CodeBadArgument}
		}
		cfg.Permissions = mode
		cfg.PermissionsSet = true
	}
	if fs.Changed("poll-interval") {
		cfg.PollIntervalSet = true
	}
	if fs.Changed("maxmsg") {
		cfg.MaxMsgSet = true
	}
	if fs.Changed("msgsize") {
		n, err := config.ParseSize(*msgsize)
		if err != nil {
			return nil, "", &pmqerrors.ConfigError{Field: "msgsize", Value: *msgsize, Message: err.Error(), Code: config.CodeBadArgument}
		}
		cfg.MsgSize = n
		cfg.MsgSizeSet = true
	}

	// ── positional arguments ─────────────────────────────────────
	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		cfg.QueueName = rest[0]
	default:
		return nil, "", &pmqerrors.ConfigError{
			Value:   rest,
			Message: fmt.Sprintf("expected one queue name, got %d arguments", len(rest)),
			Code:    config.CodeBadArgument,
		}
	}
	return cfg, "", nil
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `usage: pmq  <options ...>  <message queue>
       pmq --help
`)
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, `pmq %s - a stdin/stdout bridge to a POSIX message queue

Usage:
  pmq  <options ...>  <message queue>

Options:
  --read                  open the queue for receiving messages
  --write                 open the queue for sending messages
  --open                  open the queue (only if existing, if without --create)
  --create                create the queue (exclusively, if without --open)
  --permissions <octal>   permissions used if creating the queue (default 600)
  --maxmsg <n>            maximum number of messages in the queue, if possible
  --msgsize <size>        maximum size of any message in the queue, if possible
  --unlink                remove the queue and exit
  --wait <duration>       keep retrying --open while the queue does not exist
  --poll-interval <dur>   longest single kernel wait while receiving (default 100ms)
  --debug                 print a debugging trace to stderr
  -v, --verbose           increase verbosity (repeatable)
  --readme                print the command protocol reference
  --version               print version and exit
  -h, --help              print this help

At least one of --create and/or --open must be specified, and at least one
of --read and/or --write must be specified.  If either of --maxmsg or
--msgsize is specified, then the other must be specified as well.

Message Queue:
The name of the POSIX message queue to open (and possibly create).  On
Linux the name must begin with a forward slash.

Environment:
  PMQ_PERMISSIONS, PMQ_MAXMSG, PMQ_MSGSIZE, PMQ_WAIT, PMQ_POLL_INTERVAL,
  PMQ_DEBUG, PMQ_VERBOSE supply defaults; flags take precedence.
`, version)
}
