package db

import (
	"context"

	"github.com/ukydev/bus-tracker/internal/models"
)

// BusCollection defines the interface for bus document operations.
type BusCollection interface {
	InsertBus(ctx context.Context, bus models.Bus) error
	FindBusesByRoute(ctx context.Context, start, end string) (BusCursor, error)
	UpdateBusStatus(ctx context.Context, busName string, update models.StatusUpdate) (models.UpdateResult, error)
	Ping(ctx context.Context) error
}

// BusCursor walks query results one document at a time, so a document that
// fails to decode can be skipped without losing the rest.
type BusCursor interface {
	Next(ctx context.Context) bool
	Decode(out interface{}) error
	Err() error
	Close(ctx context.Context) error
}
