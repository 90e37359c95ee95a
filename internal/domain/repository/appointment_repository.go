package repository

import (
	"context"
	"errors"

	"hospital-appointment-service/internal/domain/entity"
	"hospital-appointment-service/internal/scheduling"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrSlotTaken is returned by Create when another non-cancelled appointment
// already holds the doctor's (date, time).
var ErrSlotTaken = errors.New("appointment slot already taken")

type AppointmentRepository interface {
	Create(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindAll(ctx context.Context, db *gorm.DB, filter *entity.AppointmentFilter) ([]entity.Appointment, error)
	FindOccupiedTimes(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, date scheduling.Date) ([]scheduling.TimeOfDay, error)
	ExistsActiveAt(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, date scheduling.Date, at scheduling.TimeOfDay) (bool, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id uuid.UUID, from, to entity.AppointmentStatus) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) (int64, error)
}
