// Demo: a traffic light driven from a cooperative loop, with transition
// logging and a Prometheus scrape endpoint.
package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ticksm/ticksm"
	"github.com/ticksm/ticksm/metrics"
)

const (
	stateRed = iota
	stateGreen
	stateYellow
)

var stateNames = []string{"red", "green", "yellow"}

// Phase durations in ticks (one tick per loop iteration).
const (
	redTicks    = 40
	greenTicks  = 30
	yellowTicks = 10
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		tickRate   time.Duration
		duration   time.Duration
		listenAddr string
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a traffic-light machine on a cooperative tick loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(tickRate, duration, listenAddr)
		},
	}
	cmd.Flags().DurationVar(&tickRate, "tick-rate", 50*time.Millisecond, "Loop tick interval")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 = run until interrupted)")
	cmd.Flags().StringVar(&listenAddr, "metrics-addr", ":9120", "Prometheus listen address (empty to disable)")
	return cmd
}

func run(tickRate, duration time.Duration, listenAddr string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	var clock ticksm.Counter
	machine, err := ticksm.New(&clock, trafficStates(), stateRed, nil)
	if err != nil {
		return err
	}
	machine.OnTransition(func(m *ticksm.Machine) {
		logger.Info("transition",
			zap.String("from", stateNames[m.PreviousIndex()]),
			zap.String("to", stateNames[m.StateIndex()]),
			zap.Uint32("count", m.TransitionCount()))
	})

	if listenAddr != "" {
		reg := prometheus.NewRegistry()
		if err := reg.Register(metrics.NewCollector(machine, "traffic-light")); err != nil {
			return err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			logger.Info("serving metrics", zap.String("addr", listenAddr))
			if err := http.ListenAndServe(listenAddr, mux); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	var timeout <-chan time.Time
	if duration > 0 {
		timeout = time.After(duration)
	}

	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	logger.Info("loop started", zap.Duration("tick_rate", tickRate))
	for {
		select {
		case <-sig:
			logger.Info("interrupted")
			return nil
		case <-timeout:
			logger.Info("done",
				zap.Uint32("executions", machine.TotalExecCount()),
				zap.Uint32("transitions", machine.TransitionCount()))
			return nil
		case <-ticker.C:
			clock.Advance(1)
			machine.Execute()
		}
	}
}

// trafficStates builds the three-phase light. Each exec callback holds its
// phase until the duration elapses, then switches.
func trafficStates() []ticksm.State {
	hold := func(phase ticksm.Tick, next int) ticksm.Callback {
		return func(m *ticksm.Machine) {
			if m.TimeInState() >= phase {
				m.Transition(ticksm.TransFast, next)
			}
		}
	}

	states := make([]ticksm.State, 3)
	states[stateRed] = ticksm.State{OnExec: hold(redTicks, stateGreen)}
	states[stateGreen] = ticksm.State{OnExec: hold(greenTicks, stateYellow)}
	states[stateYellow] = ticksm.State{OnExec: hold(yellowTicks, stateRed)}
	return states
}
