package entity

import (
	"hospital-appointment-service/internal/scheduling"

	"github.com/google/uuid"
)

// AppointmentFilter is a domain-level filter for querying appointments.
// Zero-valued fields are ignored.
type AppointmentFilter struct {
	DoctorID   *uuid.UUID
	PatientID  *uuid.UUID
	HospitalID *uuid.UUID
	From       scheduling.Date // inclusive
	To         scheduling.Date // inclusive
	Status     AppointmentStatus
}
