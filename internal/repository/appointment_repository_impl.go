package repository

import (
	"context"
	"errors"
	"fmt"

	"hospital-appointment-service/internal/domain/entity"
	domainRepo "hospital-appointment-service/internal/domain/repository"
	"hospital-appointment-service/internal/scheduling"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

// Create inserts a single appointment. A violation of the
// (doctor_id, appointment_date, appointment_time) partial unique index is
// reported as ErrSlotTaken.
func (r *appointmentRepository) Create(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error {
	err := db.WithContext(ctx).Omit(clause.Associations).Create(appointment).Error
	if err != nil {
		if isUniqueViolation(err) {
			return domainRepo.ErrSlotTaken
		}
		return err
	}
	return nil
}

func (r *appointmentRepository) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.WithContext(ctx).
		Preload("Doctor.User").
		Preload("Patient.User").
		Preload("Hospital").
		Where("id = ?", id).
		First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindAll(ctx context.Context, db *gorm.DB, filter *entity.AppointmentFilter) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	query := db.WithContext(ctx).Model(&entity.Appointment{})

	if filter != nil {
		if filter.DoctorID != nil {
			query = query.Where("doctor_id = ?", *filter.DoctorID)
		}
		if filter.PatientID != nil {
			query = query.Where("patient_id = ?", *filter.PatientID)
		}
		if filter.HospitalID != nil {
			query = query.Where("hospital_id = ?", *filter.HospitalID)
		}
		if !filter.From.IsZero() {
			query = query.Where("appointment_date >= ?", filter.From)
		}
		if !filter.To.IsZero() {
			query = query.Where("appointment_date <= ?", filter.To)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
	}

	err := query.
		Preload("Doctor.User").
		Preload("Patient.User").
		Order("appointment_date ASC, appointment_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// FindOccupiedTimes returns the times of every non-cancelled appointment the
// doctor has on date, earliest first.
func (r *appointmentRepository) FindOccupiedTimes(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, date scheduling.Date) ([]scheduling.TimeOfDay, error) {
	var raw []string
	err := db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("doctor_id = ? AND appointment_date = ? AND status <> ?", doctorID, date, entity.AppointmentStatusCancelled).
		Order("appointment_time ASC").
		Pluck("appointment_time", &raw).Error
	if err != nil {
		return nil, err
	}

	times := make([]scheduling.TimeOfDay, 0, len(raw))
	for _, s := range raw {
		var t scheduling.TimeOfDay
		if err := t.Scan(s); err != nil {
			return nil, fmt.Errorf("appointment_time %q: %w", s, err)
		}
		times = append(times, t)
	}
	return times, nil
}

func (r *appointmentRepository) ExistsActiveAt(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, date scheduling.Date, at scheduling.TimeOfDay) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("doctor_id = ? AND appointment_date = ? AND appointment_time = ? AND status <> ?",
			doctorID, date, at, entity.AppointmentStatusCancelled).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateStatus moves an appointment from one status to another only if it is
// still in `from`. Returns affected rows: 1 = success, 0 = status changed
// underneath us or appointment gone.
func (r *appointmentRepository) UpdateStatus(ctx context.Context, db *gorm.DB, id uuid.UUID, from, to entity.AppointmentStatus) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Appointment{})
	return result.RowsAffected, result.Error
}
