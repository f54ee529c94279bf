// Command fibred runs a standalone fibre ThreadPool with a Prometheus
// /metrics endpoint, for operators who want the runtime as a long-lived
// sidecar process rather than embedded in a Go binary.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofibre/runtime/core"
	obs "github.com/gofibre/runtime/observability/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

// listenWithRetry binds addr, retrying under policy if the port is not yet
// free, e.g. a prior instance still releasing it during a rolling restart.
func listenWithRetry(addr string, policy core.RetryPolicy) (net.Listener, error) {
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
		lastErr = err
		if attempt < policy.MaxRetries {
			time.Sleep(policy.DelayFor(attempt))
		}
	}
	return nil, lastErr
}

func main() {
	app := &cli.App{
		Name:  "fibred",
		Usage: "run a fibre ThreadPool with a Prometheus metrics endpoint",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "workers",
				Value: 4,
				Usage: "worker goroutine count",
			},
			&cli.Int64SliceFlag{
				Name:  "priority",
				Usage: "declared priority level (repeatable; default: 0)",
			},
			&cli.DurationFlag{
				Name:  "idle-sleep",
				Value: time.Millisecond,
				Usage: "idle backoff between empty queue polls",
			},
			&cli.StringFlag{
				Name:  "listen",
				Value: ":2112",
				Usage: "address for the /metrics HTTP endpoint",
			},
			&cli.DurationFlag{
				Name:  "poll-interval",
				Value: 50 * time.Millisecond,
				Usage: "snapshot poller interval",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	levels := c.Int64Slice("priority")
	priorities := make([]int32, 0, len(levels))
	for _, l := range levels {
		priorities = append(priorities, int32(l))
	}
	if len(priorities) == 0 {
		priorities = []int32{0}
	}

	reg := prom.NewRegistry()
	exporter, err := obs.NewMetricsExporter("fibre", reg, obs.ExporterOptions{})
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create metrics exporter: %v", err), 1)
	}
	poller, err := obs.NewSnapshotPoller(reg, c.Duration("poll-interval"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create snapshot poller: %v", err), 1)
	}

	cfg := &core.DriverConfig{
		PanicHandler:        core.DefaultPanicHandler{},
		Metrics:             exporter,
		MoveRejectedHandler: core.DefaultMoveRejectedHandler{},
		Log:                 core.NewLog(),
	}

	pool := core.NewThreadPool("fibred", core.ThreadPoolParams{
		SchedulerParams: core.SchedulerParams{
			PriorityLevels: priorities,
		},
		WorkerCount:       c.Int("workers"),
		IdleSleepDuration: c.Duration("idle-sleep"),
	}, core.ModeLog, cfg)
	defer pool.Stop()

	poller.AddThreadPool("fibred", pool)
	pollCtx, cancelPoll := context.WithCancel(context.Background())
	defer cancelPoll()
	poller.Start(pollCtx)
	defer poller.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: c.String("listen"), Handler: mux}

	listener, err := listenWithRetry(c.String("listen"), core.DefaultRetryPolicy())
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to start metrics listener: %v", err), 1)
	}

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "fibred: metrics server: %v\n", err)
		}
	}()

	fmt.Printf("fibred: %d workers, priorities %v, metrics at http://%s/metrics\n",
		c.Int("workers"), priorities, c.String("listen"))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
