package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pokepad/internal/command"
	"github.com/roach88/pokepad/internal/compiler"
	"github.com/roach88/pokepad/internal/engine"
	"github.com/roach88/pokepad/internal/store"
	"github.com/roach88/pokepad/internal/transport"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Out       string
	Database  string
	Record    string
	Label     string
	Sequences []string
	Tick      time.Duration
	ExitOnEOF bool

	// SessionGenerator allows overriding the session ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	SessionGenerator engine.SessionIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine in real time, reading commands from stdin",
		Long: `Run the engine on a fixed tick and stream report changes to a serial
target. Commands are read from stdin, one per line:

  mash_a | aaabb | auto_league | inf_watt | pickupberry | <custom>
  Date Y/M/D | Year N | changethedate Y/M/D | changetheyear N
  end | stop | idle
  0x0013 8 80 80 80 80        (raw report)

On shutdown pending commands are applied and a neutral report is sent.

Example:
  pokepad run --out /dev/ttyUSB0 --db ./pokepad.db
  echo mash_a | pokepad run --out - --sequences ./sequences`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "-", "serial target for report lines (- for stdout)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite session log (optional)")
	cmd.Flags().StringVar(&opts.Record, "record", "", "write report changes to a zstd JSONL capture")
	cmd.Flags().StringVar(&opts.Label, "label", "", "label stored with the session")
	cmd.Flags().StringSliceVar(&opts.Sequences, "sequences", nil, "CUE sequence directories to register (repeatable)")
	cmd.Flags().DurationVar(&opts.Tick, "tick", engine.DefaultTick, "engine tick quantum")
	cmd.Flags().BoolVar(&opts.ExitOnEOF, "exit-on-eof", false, "stop when stdin is exhausted")

	return cmd
}

func runEngine(opts *RunOptions, cmd *cobra.Command) error {
	if opts.Tick <= 0 {
		return NewExitError(ExitCommandError, "tick must be positive")
	}

	seqOpts, err := loadSequenceOptions(opts.Sequences)
	if err != nil {
		return err
	}

	var sinks []engine.Transport
	out, closeOut, err := openOutput(opts.Out, cmd.OutOrStdout())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open output", err)
	}
	defer closeOut()
	sinks = append(sinks, transport.NewSerial(out))

	if opts.Record != "" {
		capture, err := transport.CreateZstdJSONL(opts.Record)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create capture", err)
		}
		defer func() {
			if err := capture.Close(); err != nil {
				slog.Error("error closing capture", "path", opts.Record, "error", err)
			}
		}()
		sinks = append(sinks, capture)
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	engOpts := []engine.Option{engine.WithTick(opts.Tick)}
	var rec *store.Recorder
	if opts.Database != "" {
		slog.Info("opening database", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		gen := opts.SessionGenerator
		if gen == nil {
			gen = engine.UUIDv7Generator{}
		}
		rec, err = store.NewRecorder(ctx, st, gen, opts.Label, transport.Tee(sinks...))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start session", err)
		}
		engOpts = append(engOpts, engine.WithTransport(rec), engine.WithObserver(rec))
	} else {
		engOpts = append(engOpts, engine.WithTransport(transport.Tee(sinks...)))
	}
	eng := engine.New(append(engOpts, seqOpts...)...)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	go readCommands(cmd.InOrStdin(), cmd.ErrOrStderr(), command.NewParser(eng.Tasks()), eng, opts.ExitOnEOF)

	runErr := eng.Run(ctx)

	// Run has returned, so this goroutine owns the engine again. Apply
	// anything still queued and release every input.
	eng.Tick()
	if err := eng.Activate(engine.Activation{Task: engine.TaskIdle}); err != nil {
		slog.Error("final release failed", "error", err)
	}

	ec := eng.Context()
	slog.Info("engine stopped", "sent", ec.Sent, "dropped", ec.Dropped)
	if rec != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Session %s recorded\n", rec.SessionID())
		if n := rec.Failures(); n > 0 {
			slog.Warn("session events not recorded", "count", n)
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "engine error", runErr)
	}
	return nil
}

// readCommands parses stdin lines and enqueues them. Blank lines and lines
// starting with '#' are skipped; parse errors are reported and skipped.
func readCommands(r io.Reader, errOut io.Writer, parser *command.Parser, eng *engine.Engine, stopOnEOF bool) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := command.Normalize(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		a, err := parser.Parse(line)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			continue
		}
		if !eng.Enqueue(a) {
			return
		}
		slog.Debug("command queued", "activation", a.String())
	}
	if err := scanner.Err(); err != nil {
		slog.Error("reading commands", "error", err)
	}
	if stopOnEOF {
		eng.Stop()
	}
}

// loadSequenceOptions compiles each CUE directory and returns options
// registering its sequences.
func loadSequenceOptions(dirs []string) ([]engine.Option, error) {
	var opts []engine.Option
	for _, dir := range dirs {
		result, errs := compiler.Load(dir, compiler.LoadModeFailFast)
		if len(errs) > 0 {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load sequences from %s", dir), errs[0])
		}
		slog.Info("sequences loaded", "dir", dir, "count", len(result.Sequences))
		for _, seq := range result.Sequences {
			opts = append(opts, engine.WithSequence(seq))
		}
	}
	return opts, nil
}

// openOutput opens the serial target. "-" selects stdout.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() {
		if err := f.Close(); err != nil {
			slog.Error("error closing output", "path", path, "error", err)
		}
	}, nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
