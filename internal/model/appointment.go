package model

// Appointment is a court appointment correlated from the two Ctracks
// exports: the client id from the primary feed joined with the trailing
// court fields of the secondary feed.
//
// Location is the resolved courthouse display name and is empty when
// the location code has no entry in the reference table; that is an
// absent enrichment, not an error.
type Appointment struct {
	ClientID     int
	Date         string
	Time         string
	Room         string
	LocationCode string
	Location     string
	Judge        string
}

// Reminder is an appointment plus its composed reminder message,
// ready for permission and dedup checks.
type Reminder struct {
	Appointment
	Message string
}
