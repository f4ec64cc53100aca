package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nainya/didlcore/internal/metrics"
	"github.com/nainya/didlcore/internal/server"
	"github.com/nainya/didlcore/pkg/moderation"
)

type moderateFlags struct {
	minInterval time.Duration
	tick        time.Duration
	listen      string
	variable    string
}

func newModerateCmd(global *globalFlags) *cobra.Command {
	flags := &moderateFlags{}
	cmd := &cobra.Command{
		Use:   "moderate [file]",
		Short: "Coalesce a stream of update-id fragments into rate-limited snapshots",
		Long: `Reads one update-id fragment per line from a file (or stdin when the
file is omitted or "-") and prints the coalesced snapshot at most once
per --min-interval. Whatever is still pending when the input ends is
printed before exiting. Blank lines are ignored; rejected fragments are
logged and skipped.

Examples:
  # Emit at most twice a second, expose /metrics on :9102
  tail -f updates.log | didlctl moderate --min-interval 500ms --listen :9102`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModerate(cmd, args, global, flags)
		},
	}

	f := cmd.Flags()
	f.DurationVar(&flags.minInterval, "min-interval", 0, "Minimum time between emissions; 0 disables throttling (default from config)")
	f.DurationVar(&flags.tick, "tick", 50*time.Millisecond, "How often to check for an emission")
	f.StringVar(&flags.listen, "listen", "", "Serve /metrics, /health and /ready on this address")
	f.StringVar(&flags.variable, "variable", "ContainerUpdateIDs", "State variable name used in logs")
	return cmd
}

func runModerate(cmd *cobra.Command, args []string, global *globalFlags, flags *moderateFlags) (err error) {
	e, err := setup(cmd, global)
	if err != nil {
		return err
	}
	if flags.listen != "" && e.metrics == nil {
		e.registry = prometheus.NewRegistry()
		e.metrics = metrics.NewMetrics(e.registry)
	}
	start := time.Now()
	emitted := 0
	defer func() {
		err = e.finish("moderate", start, emitted, err, global)
	}()

	interval, err := e.cfg.MinInterval()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("min-interval") {
		interval = flags.minInterval
	}
	if flags.tick <= 0 {
		return fmt.Errorf("%w: --tick must be positive", errUsage)
	}

	in, closeIn, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	defer closeIn()

	mc := e.cfg.Moderation
	opts := []moderation.VariableOption{
		moderation.WithAccumulator(moderation.NewAccumulator(
			moderation.WithDelimiter(mc.Delimiter),
			moderation.WithPairDelimiter(mc.PairDelimiter),
			moderation.WithCollapseOnEmpty(mc.CollapseOnEmpty),
		)),
		moderation.WithLogger(e.log.Component("moderation")),
		moderation.WithMinInterval(interval),
	}
	if e.metrics != nil {
		opts = append(opts, moderation.WithRecorder(e.metrics))
	}
	v := moderation.NewVariable(flags.variable, opts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	g, gctx := errgroup.WithContext(runCtx)

	var srv *server.ObservabilityServer
	if flags.listen != "" {
		lis, err := net.Listen("tcp", flags.listen)
		if err != nil {
			return fmt.Errorf("listen %s: %w", flags.listen, err)
		}
		srv = server.NewObservabilityServer(flags.listen, e.registry, e.log)
		g.Go(func() error { return srv.Serve(lis) })
	}

	out := cmd.OutOrStdout()
	var outMu sync.Mutex
	emit := func(snapshot string) {
		outMu.Lock()
		defer outMu.Unlock()
		emitted++
		fmt.Fprintln(out, snapshot)
	}
	g.Go(func() error {
		if err := v.Run(gctx, flags.tick, emit); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	readDone := make(chan error, 1)
	go func() { readDone <- pushLines(in, v, e) }()
	if srv != nil {
		srv.SetReady(true)
	}

	var readErr error
	select {
	case readErr = <-readDone:
	case <-gctx.Done():
	}

	cancelRun()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			e.log.Warn("observability shutdown failed").Err(err).Send()
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if readErr != nil {
		return fmt.Errorf("read fragments: %w", readErr)
	}

	if final := v.Flush(); final != "" {
		emit(final)
	}
	return nil
}

// pushLines feeds each non-blank input line to v. A blank line would
// collapse the pending snapshot, so it is skipped. Rejected fragments are
// skipped too; the variable already logs and counts them.
func pushLines(in io.Reader, v *moderation.Variable, e *env) error {
	scanner := bufio.NewScanner(in)
	rejected := 0
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := v.Push(line); err != nil {
			rejected++
		}
	}
	if rejected > 0 {
		e.log.Warn("skipped invalid fragments").Int("rejected", rejected).Send()
	}
	return scanner.Err()
}
