package model

import (
	"time"
)

// Client mirrors a row of the clients table. ClientID is the Ctracks
// clid carried by both feed exports.
type Client struct {
	ClientID    int        `db:"clid" json:"clid"`
	CaseManager int        `db:"cm" json:"cm"`
	First       string     `db:"first" json:"first"`
	Last        string     `db:"last" json:"last"`
	DOB         *time.Time `db:"dob" json:"dob,omitempty"`
	OTN         string     `db:"otn" json:"otn"`
	Active      bool       `db:"active" json:"active"`
}

// FullName returns the client's display name as used in alert messages.
func (c *Client) FullName() string {
	return c.First + " " + c.Last
}

// ClientPermission joins a client to its owning case manager's
// automated-notification consent flag.
type ClientPermission struct {
	ClientID                    int  `db:"clid"`
	CaseManager                 int  `db:"cm"`
	AllowAutomatedNotifications bool `db:"allow_automated_notifications"`
}

// ProfileUpdate is one row of the client-profile-updates CSV.
type ProfileUpdate struct {
	ClientID    int
	CaseManager int
	DOB         time.Time
	OTN         string
}
