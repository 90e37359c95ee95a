package converter

import (
	"hospital-appointment-service/internal/delivery/dto"
	"hospital-appointment-service/internal/domain/entity"

	"github.com/google/uuid"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO.
// Doctor, patient and hospital summaries are included when preloaded.
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	response := &dto.AppointmentResponse{
		ID:              appointment.ID,
		DoctorID:        appointment.DoctorID,
		PatientID:       appointment.PatientID,
		HospitalID:      appointment.HospitalID,
		AppointmentDate: appointment.AppointmentDate.String(),
		AppointmentTime: appointment.AppointmentTime.String(),
		Status:          string(appointment.Status),
		Type:            string(appointment.Type),
		Notes:           appointment.Notes,
		CreatedBy:       appointment.CreatedBy,
		CreatedAt:       appointment.CreatedAt,
		UpdatedAt:       appointment.UpdatedAt,
	}

	if appointment.Doctor.User.ID != uuid.Nil {
		response.Doctor = &dto.PersonSummary{
			ID:       appointment.Doctor.UserID,
			FullName: appointment.Doctor.User.FullName,
			Email:    appointment.Doctor.User.Email,
		}
	}
	if appointment.Patient.User.ID != uuid.Nil {
		response.Patient = &dto.PersonSummary{
			ID:       appointment.Patient.UserID,
			FullName: appointment.Patient.User.FullName,
			Email:    appointment.Patient.User.Email,
		}
	}
	if appointment.Hospital.ID != uuid.Nil {
		response.Hospital = &dto.HospitalSummary{
			ID:   appointment.Hospital.ID,
			Name: appointment.Hospital.Name,
		}
	}

	return response
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}

// SlotsToResponse builds the bookable-slot listing for one doctor-day
func SlotsToResponse(doctorID uuid.UUID, date string, slotMinutes int, slots []string) *dto.AvailableSlotsResponse {
	if slots == nil {
		slots = []string{}
	}
	return &dto.AvailableSlotsResponse{
		DoctorID:    doctorID,
		Date:        date,
		SlotMinutes: slotMinutes,
		Slots:       slots,
		Total:       len(slots),
	}
}
