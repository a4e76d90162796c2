package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"truthordare/backend/internal/config"
	"truthordare/backend/internal/roomhub"
	"truthordare/backend/internal/storage"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadTool()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	log := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connect := func(ctx context.Context) (*admin, error) {
		store, err := storage.Open(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return &admin{store: store, rooms: roomhub.NewRoomService(store, log)}, nil
	}

	if err := newRootCmd(connect).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
