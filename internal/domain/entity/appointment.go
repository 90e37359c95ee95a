package entity

import (
	"time"

	"hospital-appointment-service/internal/scheduling"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:   {AppointmentStatusConfirmed, AppointmentStatusCancelled},
	AppointmentStatusConfirmed: {AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow},
}

// IsValid reports whether s is a known status
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCompleted,
		AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s AppointmentStatus) IsTerminal() bool {
	return s.IsValid() && len(appointmentTransitions[s]) == 0
}

// CanTransitionTo checks the pending -> confirmed -> completed/cancelled/no_show lifecycle
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OccupiesSlot is false only for cancelled appointments; everything else
// keeps the doctor's (date, time) taken.
func (s AppointmentStatus) OccupiesSlot() bool {
	return s != AppointmentStatusCancelled
}

// AppointmentType is the kind of visit
type AppointmentType string

const (
	AppointmentTypeConsultation AppointmentType = "consultation"
	AppointmentTypeFollowUp     AppointmentType = "follow_up"
	AppointmentTypeCheckup      AppointmentType = "checkup"
	AppointmentTypeEmergency    AppointmentType = "emergency"
)

func (t AppointmentType) IsValid() bool {
	switch t {
	case AppointmentTypeConsultation, AppointmentTypeFollowUp, AppointmentTypeCheckup, AppointmentTypeEmergency:
		return true
	}
	return false
}

// Appointment is a booked (doctor, date, time) for a patient at a hospital.
// For one doctor at most one non-cancelled appointment exists per
// (AppointmentDate, AppointmentTime); the storage layer enforces it with a
// partial unique index.
type Appointment struct {
	ID              uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	DoctorID        uuid.UUID            `gorm:"type:uuid;not null;index" json:"doctor_id"`
	PatientID       uuid.UUID            `gorm:"type:uuid;not null;index" json:"patient_id"`
	HospitalID      uuid.UUID            `gorm:"type:uuid;not null;index" json:"hospital_id"`
	AppointmentDate scheduling.Date      `gorm:"type:date;not null;index" json:"appointment_date"`
	AppointmentTime scheduling.TimeOfDay `gorm:"type:varchar(5);not null" json:"appointment_time"`
	Status          AppointmentStatus    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Type            AppointmentType      `gorm:"type:varchar(30);not null" json:"type"`
	Notes           string               `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy       *uuid.UUID           `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt       time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time            `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Doctor   DoctorProfile  `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Patient  PatientProfile `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Hospital Hospital       `gorm:"foreignKey:HospitalID" json:"hospital,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// BeforeCreate assigns the ID client-side so the same insert works on every driver
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// StartsAt returns the appointment instant in loc
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	return a.AppointmentDate.At(a.AppointmentTime, loc)
}

func (a *Appointment) IsPending() bool {
	return a.Status == AppointmentStatusPending
}

func (a *Appointment) IsCancelled() bool {
	return a.Status == AppointmentStatusCancelled
}
