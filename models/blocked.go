package models

import "time"

// BlockedSlot is an administrative block. An empty Timeslot blocks the whole day.
type BlockedSlot struct {
	ID        string    `bson:"id" json:"id"`
	Date      string    `bson:"date" json:"date"`
	Timeslot  string    `bson:"timeslot,omitempty" json:"timeslot,omitempty"`
	Reason    string    `bson:"reason" json:"reason"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Covers reports whether the block applies to timeslot on its date.
func (b BlockedSlot) Covers(timeslot string) bool {
	return b.Timeslot == "" || b.Timeslot == timeslot
}
