package model

import (
	"time"
)

const (
	// NotificationSubjectAutoReminder marks reminders created by the
	// importer, as opposed to ones staff create by hand.
	NotificationSubjectAutoReminder = "Auto-created court date reminder"

	// AutoReminderMessagePrefix is the fixed opening of every composed
	// reminder. The dedup query matches on it to find prior
	// auto-created reminders.
	AutoReminderMessagePrefix = "Your next court date is at "
)

// Notification mirrors a row of the notifications table. The importer
// only ever inserts; sent/closed are managed downstream.
type Notification struct {
	NotificationID int        `db:"notification_id" json:"notification_id"`
	CaseManager    int        `db:"cm" json:"cm"`
	Client         int        `db:"client" json:"client"`
	Comm           *int       `db:"comm" json:"comm,omitempty"`
	Subject        string     `db:"subject" json:"subject"`
	Message        string     `db:"message" json:"message"`
	Send           time.Time  `db:"send" json:"send"`
	OVMID          *int       `db:"ovm_id" json:"ovm_id,omitempty"`
	Repeat         bool       `db:"repeat" json:"repeat"`
	Frequency      *string    `db:"frequency" json:"frequency,omitempty"`
	Sent           bool       `db:"sent" json:"sent"`
	Closed         bool       `db:"closed" json:"closed"`
	RepeatTerminus *time.Time `db:"repeat_terminus" json:"repeat_terminus,omitempty"`
}
