package feed

import (
	"fmt"

	"github.com/slco-2016/cTracksImporter/internal/model"
)

// ComposeMessage renders the fixed reminder template for one
// appointment. When the location code had no reference table entry the
// raw code is substituted, so the message is always complete and
// deterministic.
func ComposeMessage(appt model.Appointment) string {
	location := appt.Location
	if location == "" {
		location = appt.LocationCode
	}
	return fmt.Sprintf(
		model.AutoReminderMessagePrefix+"%s on %s at %s, in Room %s. Text me with any questions.",
		location, appt.Date, appt.Time, appt.Room,
	)
}

// ComposeReminders pairs every appointment with its composed message.
func ComposeReminders(appointments []model.Appointment) []model.Reminder {
	reminders := make([]model.Reminder, 0, len(appointments))
	for _, appt := range appointments {
		reminders = append(reminders, model.Reminder{
			Appointment: appt,
			Message:     ComposeMessage(appt),
		})
	}
	return reminders
}
