package main

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/fixsim/internal/bus"
	"github.com/peter-kozarec/fixsim/internal/client"
	"github.com/peter-kozarec/fixsim/internal/dbg"
	"github.com/peter-kozarec/fixsim/internal/middleware"
)

func main() {
	logger := dbg.NewDevLogger()
	defer logger.Sync()

	beginString := "FIX." + fixVersion
	logger.Info("market sim client started",
		zap.String("begin_string", beginString),
		zap.String("addr", simAddr))
	defer logger.Info("market sim client stopped")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	router := bus.NewRouter(logger, RouterEventCapacity)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	c := client.New(logger, router, simAddr, beginString, rng)

	monitor := middleware.NewMonitor(logger)
	telemetry := middleware.NewTelemetry(logger)

	router.SessionOpenHandler = middleware.Chain(monitor.WithSessionOpen, telemetry.WithSessionOpen)(c.OnSessionOpen)
	router.ReportHandler = middleware.Chain(monitor.WithReport, telemetry.WithReport)(c.OnReport)

	go router.Exec(ctx, c.Loop)

	defer router.PrintStatistics()
	defer telemetry.PrintStatistics()

	if err := <-router.Done(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("something unexpected happened", zap.Error(err))
	}
}
