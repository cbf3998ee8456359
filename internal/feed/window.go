package feed

import (
	"time"

	"github.com/slco-2016/cTracksImporter/internal/model"
)

// AppointmentDateLayout is the exact date format of the Ctracks
// export. Parsing must use it verbatim; a locale-default parse would
// silently swap day and month.
const AppointmentDateLayout = "01/02/2006"

// FilterWindow keeps appointments strictly after now and strictly
// before now plus windowDays days; an appointment exactly on either
// bound is excluded. Relative order is preserved. Appointments whose
// date does not parse are returned separately so the caller can log
// them.
func FilterWindow(appointments []model.Appointment, now time.Time, windowDays int) (kept, invalid []model.Appointment) {
	upper := now.AddDate(0, 0, windowDays)
	for _, appt := range appointments {
		date, err := time.Parse(AppointmentDateLayout, appt.Date)
		if err != nil {
			invalid = append(invalid, appt)
			continue
		}
		if date.After(now) && date.Before(upper) {
			kept = append(kept, appt)
		}
	}
	return kept, invalid
}
