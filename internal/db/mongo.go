package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/ukydev/bus-tracker/internal/config"
	"github.com/ukydev/bus-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrNilCollection is returned when a MongoBusCollection has no backing collection.
var ErrNilCollection = errors.New("mongo collection is nil")

// summaryProjection keeps only the fields passengers see.
var summaryProjection = bson.M{"busName": 1, "time": 1, "status": 1, "location": 1, "_id": 0}

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetTimeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// NewMongoBusCollection returns the bus collection named in cfg.
func NewMongoBusCollection(client *mongo.Client, cfg config.MongoConfig) *MongoBusCollection {
	return &MongoBusCollection{
		Collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}
}

// MongoBusCollection wraps a MongoDB collection for bus operations.
type MongoBusCollection struct {
	Collection *mongo.Collection
}

// mongoBusCursor wraps a MongoDB cursor for bus queries.
type mongoBusCursor struct {
	cursor *mongo.Cursor
}

// NewBusCursor wraps an open MongoDB cursor.
func NewBusCursor(cursor *mongo.Cursor) BusCursor {
	return &mongoBusCursor{cursor: cursor}
}

// Next advances to the next document.
func (m *mongoBusCursor) Next(ctx context.Context) bool {
	return m.cursor.Next(ctx)
}

// Decode decodes the current document. A failure leaves the cursor usable.
func (m *mongoBusCursor) Decode(out interface{}) error {
	return m.cursor.Decode(out)
}

// Err reports the error that stopped Next, if any.
func (m *mongoBusCursor) Err() error {
	return m.cursor.Err()
}

// Close closes the cursor.
func (m *mongoBusCursor) Close(ctx context.Context) error {
	return m.cursor.Close(ctx)
}

// InsertBus inserts a bus document. Names are not checked for duplicates.
func (c *MongoBusCollection) InsertBus(ctx context.Context, bus models.Bus) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	_, err := c.Collection.InsertOne(ctx, bus)
	return err
}

// FindBusesByRoute finds buses whose start and end match exactly, projected to summaries.
func (c *MongoBusCollection) FindBusesByRoute(ctx context.Context, start, end string) (BusCursor, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	opts := options.Find().SetProjection(summaryProjection)
	cursor, err := c.Collection.Find(ctx, bson.M{"start": start, "end": end}, opts)
	if err != nil {
		return nil, err
	}
	return NewBusCursor(cursor), nil
}

// UpdateBusStatus sets status, and location when present, on the bus with the given name.
// It never inserts.
func (c *MongoBusCollection) UpdateBusStatus(ctx context.Context, busName string, update models.StatusUpdate) (models.UpdateResult, error) {
	if c.Collection == nil {
		return models.UpdateResult{}, ErrNilCollection
	}
	result, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"busName": busName},
		bson.M{"$set": statusFields(update)},
		options.Update().SetUpsert(false),
	)
	if err != nil {
		return models.UpdateResult{}, err
	}
	return models.UpdateResult{Matched: result.MatchedCount, Modified: result.ModifiedCount}, nil
}

// Ping checks that the primary is reachable.
func (c *MongoBusCollection) Ping(ctx context.Context) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	return c.Collection.Database().Client().Ping(ctx, readpref.Primary())
}

func statusFields(update models.StatusUpdate) bson.M {
	fields := bson.M{"status": update.Status}
	if update.Location != nil {
		fields["location"] = update.Location
	}
	return fields
}
