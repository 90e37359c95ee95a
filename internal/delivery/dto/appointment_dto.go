package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// CreateAppointmentRequest books one slot. PatientID may be omitted when a
// patient books for themselves.
type CreateAppointmentRequest struct {
	DoctorID        string `json:"doctor_id" validate:"required,uuid"`
	PatientID       string `json:"patient_id" validate:"omitempty,uuid"`
	HospitalID      string `json:"hospital_id" validate:"required,uuid"`
	AppointmentDate string `json:"appointment_date" validate:"required,date"`
	AppointmentTime string `json:"appointment_time" validate:"required,timeofday"`
	Status          string `json:"status" validate:"omitempty,oneof=pending confirmed"`
	Type            string `json:"type" validate:"omitempty,oneof=consultation follow_up checkup emergency"`
	Notes           string `json:"notes" validate:"omitempty,max=1000"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed cancelled no_show"`
}

// ListAppointmentsRequest carries the query string of GET /appointments
type ListAppointmentsRequest struct {
	DoctorID   string `validate:"omitempty,uuid"`
	PatientID  string `validate:"omitempty,uuid"`
	HospitalID string `validate:"omitempty,uuid"`
	From       string `validate:"omitempty,date"`
	To         string `validate:"omitempty,date"`
	Status     string `validate:"omitempty,oneof=pending confirmed completed cancelled no_show"`
}

// Response DTOs

type AvailableSlotsResponse struct {
	DoctorID    uuid.UUID `json:"doctor_id"`
	Date        string    `json:"date"`
	SlotMinutes int       `json:"slot_minutes"`
	Slots       []string  `json:"slots"`
	Total       int       `json:"total"`
}

type PersonSummary struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email,omitempty"`
}

type HospitalSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type AppointmentResponse struct {
	ID              uuid.UUID        `json:"id"`
	DoctorID        uuid.UUID        `json:"doctor_id"`
	PatientID       uuid.UUID        `json:"patient_id"`
	HospitalID      uuid.UUID        `json:"hospital_id"`
	AppointmentDate string           `json:"appointment_date"`
	AppointmentTime string           `json:"appointment_time"`
	Status          string           `json:"status"`
	Type            string           `json:"type"`
	Notes           string           `json:"notes,omitempty"`
	Doctor          *PersonSummary   `json:"doctor,omitempty"`
	Patient         *PersonSummary   `json:"patient,omitempty"`
	Hospital        *HospitalSummary `json:"hospital,omitempty"`
	CreatedBy       *uuid.UUID       `json:"created_by,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}
