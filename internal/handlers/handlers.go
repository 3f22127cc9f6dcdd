package handlers

import (
	"context"
	"time"

	"clipshare/internal/filesystem"
	"clipshare/internal/poster"
	"clipshare/internal/share"
	"clipshare/internal/streaming"
	"clipshare/internal/videos"
)

// Pinger reports whether the metadata store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	db        Pinger
	videos    *videos.Service
	shares    *share.Manager
	posters   *poster.Generator
	storage   *filesystem.Storage
	stream    streaming.Config
	startTime time.Time
}

func New(db Pinger, svc *videos.Service, shares *share.Manager, posters *poster.Generator, storage *filesystem.Storage) *Handlers {
	return &Handlers{
		db:        db,
		videos:    svc,
		shares:    shares,
		posters:   posters,
		storage:   storage,
		stream:    streaming.DefaultConfig(),
		startTime: time.Now(),
	}
}
