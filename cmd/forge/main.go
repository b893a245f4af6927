// Spins up an in-process forge engine: dispatcher and a single announced server entry polling the
// configured queues. It exposes no wire protocol of its own — forge is embedded as a library, and this binary only
// demonstrates wiring it up and shutting it down cleanly.

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/jobforge/forge/pkg/clock"
	"github.com/jobforge/forge/pkg/dispatcher"
	"github.com/jobforge/forge/pkg/keys"
	"github.com/jobforge/forge/pkg/monitoring"
	"github.com/jobforge/forge/pkg/options"
	"github.com/jobforge/forge/pkg/state"
	"github.com/jobforge/forge/pkg/utils"
)

var (
	printVersion = flag.Bool("print_version", false, "Print the version and exit.")
	serverID     = flag.String("server_id", "forge-demo", "ID this process announces itself under.")
	queuesFlag   = flag.String("queues", "default", "Comma-separated queue names this server polls.")
	workerCount  = flag.Int("worker_count", 1, "Worker count announced alongside this server.")
)

func main() {
	flag.Parse()
	utils.InitLogging()

	if *printVersion {
		slog.Info("forge build info.", "version", utils.Version, "commit", utils.Commit, "build", utils.BuildTime)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-signals
		slog.Info("Received termination signal, shutting down.", "signal", sig)
		cancel()
	}()

	c := clock.New()
	st := state.New[uint64](options.New(), keys.NewCounterProvider())
	d := dispatcher.New[uint64](st, c)
	mon := monitoring.New[uint64](d, c)
	mon.OnRefresh(d)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		d.Run(groupCtx)
		return nil
	})

	queues := strings.Split(*queuesFlag, ",")
	if _, err := dispatcher.Submit(ctx, d, func(s *state.MemoryState[uint64]) struct{} {
		s.ServerAnnounce(*serverID, queues, *workerCount, c.Now())
		return struct{}{}
	}); err != nil {
		slog.Error("Failed to announce server.", "err", err)
	}

	slog.Info("forge engine running.", "server_id", *serverID, "queues", queues)
	<-groupCtx.Done()
	d.Stop()
	if err := group.Wait(); err != nil {
		slog.Error("forge engine stopped with error.", "err", err)
		os.Exit(1)
	}
}
