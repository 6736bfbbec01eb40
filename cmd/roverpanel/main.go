// Command roverpanel drives a rover through its remote API.
//
// Usage:
//
//	roverpanel control   [-addr :8080] [-readonly]   serve the control panel
//	roverpanel monitor   [-addr :8081] [-auto=true]  serve the live data panel
//	roverpanel send      -op 1 [-speed 180]          send one movement
//	roverpanel obstacle  -key 2                      register an obstacle and evade it
//	roverpanel record    -ops 1,1,8 -name ronda      record and save a sequence
//	roverpanel sequences                             list saved sequences
//	roverpanel play      -id 4                       replay a sequence
//	roverpanel watch     [-redis]                    print push events
//
// Every command accepts -api, -push, -device and -state. Defaults come from
// the ROVER_* environment variables; ROVER_LOG_FORMAT=json switches to JSON
// logs and ROVER_LOG_LEVEL=debug enables debug output.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/youssefsiam38/roverpanel"
)

// Environment variables read by the command only.
const (
	envLogFormat    = "ROVER_LOG_FORMAT"
	envLogLevel     = "ROVER_LOG_LEVEL"
	envState        = "ROVER_STATE"
	envRedisAddr    = "REDIS_ADDR"
	envRedisChannel = "REDIS_CHANNEL"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, env *env, args []string) error
}

var commands = []command{
	{"control", "serve the control panel", runControl},
	{"monitor", "serve the live data panel", runMonitor},
	{"send", "send one movement", runSend},
	{"obstacle", "register an obstacle and evade it", runObstacle},
	{"record", "record and save a sequence", runRecord},
	{"sequences", "list saved sequences", runSequences},
	{"play", "replay a sequence", runPlay},
	{"watch", "print push events", runWatch},
}

// env is what every command shares.
type env struct {
	logger *slog.Logger
	stdout io.Writer
	getenv func(string) string
}

func main() {
	logger := newLogger(os.Stderr, os.Getenv(envLogFormat), os.Getenv(envLogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &env{logger: logger, stdout: os.Stdout, getenv: os.Getenv}, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger.Error("roverpanel failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		printUsage(e.stdout)
		return flag.ErrHelp
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(ctx, e, args[1:])
		}
	}
	printUsage(e.stdout)
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: roverpanel <command> [flags]")
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.usage)
	}
}

func newLogger(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if strings.EqualFold(level, "debug") {
		opts.Level = slog.LevelDebug
	}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// commonFlags binds the flags every command accepts onto a config read
// from the environment.
type commonFlags struct {
	api    string
	push   string
	device int
	state  string
}

func newFlagSet(name string, e *env) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stdout)

	cf := &commonFlags{}
	fs.StringVar(&cf.api, "api", "", "remote API base URL (default $ROVER_API_BASE)")
	fs.StringVar(&cf.push, "push", "", "push channel URL (default $ROVER_PUSH_URL)")
	fs.IntVar(&cf.device, "device", 0, "switch to this device id and store it")
	fs.StringVar(&cf.state, "state", e.getenv(envState), "preference store: file path, sqlite:<path>, postgres://..., pq:postgres://... or memory")
	return fs, cf
}

// flagPassed reports whether name was set on the command line, so an
// explicit zero can be told apart from an omitted flag.
func flagPassed(fs *flag.FlagSet, name string) bool {
	passed := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			passed = true
		}
	})
	return passed
}

// config reads the environment and applies the flags on top.
func (cf *commonFlags) config(e *env) (*roverpanel.Config, error) {
	cfg, err := roverpanel.ConfigFromEnv(e.getenv)
	if err != nil {
		return nil, err
	}
	if cf.api != "" {
		cfg.APIBase = cf.api
	}
	if cf.push != "" {
		cfg.PushURL = cf.push
	}
	cfg.Logger = e.logger

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// selectDevice switches to the -device id, if given. The stored selection
// otherwise stands.
func (cf *commonFlags) selectDevice(ctx context.Context, set func(context.Context, string) error) error {
	if cf.device == 0 {
		return nil
	}
	return set(ctx, strconv.Itoa(cf.device))
}
