package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/peter-kozarec/fixsim/internal/dbg"
	"github.com/peter-kozarec/fixsim/internal/dict"
	"github.com/peter-kozarec/fixsim/internal/persona"
	"github.com/peter-kozarec/fixsim/internal/server"
)

func main() {
	logger := dbg.NewDevLogger()
	defer logger.Sync()

	logger.Info("simulator started", zap.String("persona", personaName), zap.String("addr", listenAddr))
	defer logger.Info("simulator stopped")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	config, err := persona.LoadConfig(configFile)
	if err != nil {
		logger.Fatal("unable to load persona config", zap.Error(err))
	}
	profile, err := config.Profile(personaName)
	if err != nil {
		logger.Fatal("unable to resolve persona", zap.Error(err))
	}

	registry := dict.NewRegistry(dictDir)

	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		logger.Fatal("unable to listen", zap.Error(err))
	}

	srv := server.New(logger, registry, profile)
	if err := srv.Serve(ctx, lis); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("something unexpected happened", zap.Error(err))
	}
}
