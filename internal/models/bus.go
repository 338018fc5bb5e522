package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultStatus is assigned to buses added without an explicit status.
const DefaultStatus = "Not Started"

// Bus is one bus document: a physical bus running a route at a departure time.
type Bus struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	BusName  string             `bson:"busName" json:"busName"`
	Start    string             `bson:"start" json:"start"`
	End      string             `bson:"end" json:"end"`
	Time     string             `bson:"time" json:"time"` // "08:00 AM"
	Status   string             `bson:"status" json:"status"`
	Location *Location          `bson:"location,omitempty" json:"location,omitempty"`
}

// BusSummary is the projection returned to passengers by search.
type BusSummary struct {
	BusName  string    `bson:"busName" json:"busName"`
	Time     string    `bson:"time" json:"time"`
	Status   string    `bson:"status" json:"status"`
	Location *Location `bson:"location,omitempty" json:"location,omitempty"`
}

// StatusUpdate is a conductor's partial update. Location is only written when set.
type StatusUpdate struct {
	Status   string
	Location *Location
}

// UpdateResult reports what a status update did to the collection.
type UpdateResult struct {
	Matched  int64
	Modified int64
}

// StatusEvent is published after a conductor update changes a bus.
type StatusEvent struct {
	BusName   string    `json:"busName"`
	Status    string    `json:"status"`
	Location  *Location `json:"location,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}
