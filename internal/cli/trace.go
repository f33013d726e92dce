package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pokepad/internal/report"
	"github.com/roach88/pokepad/internal/store"
	"github.com/roach88/pokepad/internal/transport"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	SessionID string
	Kind      string // optional - filter to one event kind
	Capture   string // zstd JSONL capture instead of a database
}

// TraceEvent is one entry of a printed session timeline.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	AtMS   int64  `json:"at_ms"`
	Kind   string `json:"kind"`
	Task   string `json:"task,omitempty"`
	Args   string `json:"args,omitempty"`
	Report string `json:"report,omitempty"`
}

// TraceStats holds summary statistics for a session.
type TraceStats struct {
	Activations int    `json:"activations"`
	Completions int    `json:"completions"`
	Reports     int    `json:"reports"`
	LastTask    string `json:"last_task,omitempty"`
	Finished    bool   `json:"finished"`
	DurationMS  int64  `json:"duration_ms"`
}

// TraceResult holds the complete trace of one session.
type TraceResult struct {
	SessionID string       `json:"session_id"`
	Label     string       `json:"label,omitempty"`
	StartedAt time.Time    `json:"started_at"`
	Timeline  []TraceEvent `json:"timeline"`
	Stats     TraceStats   `json:"stats"`
}

// SessionListing is one row of the session list.
type SessionListing struct {
	ID        string    `json:"id"`
	Label     string    `json:"label,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Events    int64     `json:"events"`
	LastTask  string    `json:"last_task,omitempty"`
	Finished  bool      `json:"finished"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print a recorded session",
		Long: `Print the sessions recorded by "pokepad run --db".

Without --session every session is listed with a summary. With --session
the session's timeline is printed: task activations, completions and
report changes in order.

--capture reads a zstd JSONL capture written by --record instead.

Examples:
  pokepad trace --db ./pokepad.db
  pokepad trace --db ./pokepad.db --session 01927c3e-... --kind activate
  pokepad trace --capture ./run.jsonl.zst --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite session log")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "session to print")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show events of this kind (activate|complete|report)")
	cmd.Flags().StringVar(&opts.Capture, "capture", "", "path to a zstd JSONL capture")
	cmd.MarkFlagsMutuallyExclusive("db", "capture")
	cmd.MarkFlagsOneRequired("db", "capture")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	switch store.EventKind(opts.Kind) {
	case "", store.EventActivate, store.EventComplete, store.EventReport:
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q", opts.Kind))
	}

	if opts.Capture != "" {
		return traceCapture(opts, cmd)
	}

	ctx := commandContext(cmd)
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.SessionID == "" {
		return listSessions(ctx, st, opts, cmd)
	}

	sum, err := st.Summarize(ctx, opts.SessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		return WrapExitError(ExitFailure, "unknown session", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	events, err := st.ReadEvents(ctx, opts.SessionID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	result := TraceResult{
		SessionID: sum.Session.ID,
		Label:     sum.Session.Label,
		StartedAt: sum.Session.StartedAt,
		Timeline:  buildTimeline(events, store.EventKind(opts.Kind)),
		Stats: TraceStats{
			Activations: sum.Activations,
			Completions: sum.Completions,
			Reports:     sum.Reports,
			LastTask:    sum.LastTask,
			Finished:    sum.Finished,
			DurationMS:  sum.LastAtMS,
		},
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result, SessionID: result.SessionID})
	}
	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

func listSessions(ctx context.Context, st *store.Store, opts *TraceOptions, cmd *cobra.Command) error {
	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	listing := make([]SessionListing, 0, len(sessions))
	for _, sess := range sessions {
		sum, err := st.Summarize(ctx, sess.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to summarize session", err)
		}
		listing = append(listing, SessionListing{
			ID:        sess.ID,
			Label:     sess.Label,
			StartedAt: sess.StartedAt,
			Events:    sum.LastSeq,
			LastTask:  sum.LastTask,
			Finished:  sum.Finished,
		})
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: listing})
	}

	w := cmd.OutOrStdout()
	if len(listing) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTARTED\tLABEL\tEVENTS\tLAST TASK")
	for _, l := range listing {
		last := l.LastTask
		if !l.Finished {
			last += " (unfinished)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", l.ID, l.StartedAt.Format(time.DateTime), l.Label, l.Events, last)
	}
	return tw.Flush()
}

// buildTimeline converts stored events, keeping only kind when it is set.
func buildTimeline(events []store.Event, kind store.EventKind) []TraceEvent {
	timeline := make([]TraceEvent, 0, len(events))
	for _, ev := range events {
		if kind != "" && ev.Kind != kind {
			continue
		}
		te := TraceEvent{
			Seq:    ev.Seq,
			AtMS:   ev.AtMS,
			Kind:   string(ev.Kind),
			Task:   ev.Task,
			Report: ev.Report,
		}
		switch {
		case ev.Args.Manual != "":
			te.Args = "manual=" + ev.Args.Manual
		case !ev.Args.Delta.IsZero():
			te.Args = "delta=" + ev.Args.Delta.String()
		}
		timeline = append(timeline, te)
	}
	return timeline
}

func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Session: %s\n", result.SessionID)
	if result.Label != "" {
		fmt.Fprintf(w, "Label:   %s\n", result.Label)
	}
	fmt.Fprintf(w, "Started: %s\n", result.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Status:  %s\n", finishedStatus(result.Stats))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, ev := range result.Timeline {
		formatTimelineEvent(w, ev, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Activations: %d\n", result.Stats.Activations)
	fmt.Fprintf(w, "  Completions: %d\n", result.Stats.Completions)
	fmt.Fprintf(w, "  Reports:     %d\n", result.Stats.Reports)
	fmt.Fprintf(w, "  Duration:    %v\n", time.Duration(result.Stats.DurationMS)*time.Millisecond)
	return nil
}

func formatTimelineEvent(w io.Writer, ev TraceEvent, verbose bool) {
	switch store.EventKind(ev.Kind) {
	case store.EventActivate:
		fmt.Fprintf(w, "  [%d] %8dms ACTIVATE %s", ev.Seq, ev.AtMS, ev.Task)
		if ev.Args != "" {
			fmt.Fprintf(w, " %s", ev.Args)
		}
		fmt.Fprintln(w)
	case store.EventComplete:
		fmt.Fprintf(w, "  [%d] %8dms COMPLETE %s\n", ev.Seq, ev.AtMS, ev.Task)
	case store.EventReport:
		fmt.Fprintf(w, "  [%d] %8dms %s", ev.Seq, ev.AtMS, ev.Report)
		if verbose {
			if r, err := report.ParseSerial(ev.Report); err == nil {
				fmt.Fprintf(w, "  %s", describeReport(r))
			}
		}
		fmt.Fprintln(w)
	}
}

func finishedStatus(s TraceStats) string {
	if s.LastTask == "" {
		return "empty"
	}
	if s.Finished {
		return "finished"
	}
	return fmt.Sprintf("interrupted during %s", s.LastTask)
}

// traceCapture prints the records of a zstd JSONL capture.
func traceCapture(opts *TraceOptions, cmd *cobra.Command) error {
	f, err := os.Open(opts.Capture)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open capture", err)
	}
	defer f.Close()

	records, err := transport.ReadZstdJSONL(f)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read capture", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: records})
	}

	w := cmd.OutOrStdout()
	for i, rec := range records {
		fmt.Fprintf(w, "  [%d] %8dms %s", i+1, rec.AtMS, rec.Report)
		if r, err := rec.Parse(); err == nil && opts.Verbose {
			fmt.Fprintf(w, "  %s", describeReport(r))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\n%d report change(s)\n", len(records))
	return nil
}
