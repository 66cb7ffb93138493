package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project statuses as exposed in the status report.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusComplete   = "Complete"
	StatusBlock      = "Block"
)

// ProjectStatuses lists every reportable status in display order.
var ProjectStatuses = []string{StatusComplete, StatusPending, StatusInProgress, StatusBlock}

// ValidStatus reports whether s is one of the known project statuses.
func ValidStatus(s string) bool {
	for _, known := range ProjectStatuses {
		if known == s {
			return true
		}
	}
	return false
}

// Change records a single field edit on a project.
type Change struct {
	Field     string    `bson:"field" json:"field"`
	From      string    `bson:"from" json:"from"`
	To        string    `bson:"to" json:"to"`
	ChangedAt time.Time `bson:"changed_at" json:"changed_at"`
}

// Project is a unit of tracked work owned by a single user.
type Project struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description" json:"description"`
	Status        string             `bson:"status" json:"status"`
	CreatedBy     primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
	RecentChanges []Change           `bson:"recent_changes,omitempty" json:"recent_changes,omitempty"`
}
