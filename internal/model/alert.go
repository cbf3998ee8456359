package model

import (
	"time"
)

// AlertSubjectAutoCreated is the alerts_feed subject used for every
// importer-created notification.
const AlertSubjectAutoCreated = "Auto-notifications created"

// Alert mirrors a row of the alerts_feed table, surfaced to a case
// manager on their dashboard.
type Alert struct {
	AlertID   int       `db:"alert_id" json:"alert_id"`
	User      int       `db:"user" json:"user"`
	CreatedBy *int      `db:"created_by" json:"created_by,omitempty"`
	Subject   string    `db:"subject" json:"subject"`
	Message   string    `db:"message" json:"message"`
	Open      bool      `db:"open" json:"open"`
	Created   time.Time `db:"created" json:"created"`
}
