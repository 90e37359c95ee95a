// Package testutil opens throwaway SQLite databases with the appointment
// schema for repository, usecase and handler tests.
package testutil

import (
	"fmt"
	"io"
	"testing"

	"hospital-appointment-service/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Minimal schema for the query/update logic (sqlite-friendly). Mirrors the
// PostgreSQL migration, including the partial unique slot index.
var schema = []string{
	`CREATE TABLE roles (
		id INTEGER PRIMARY KEY,
		role_name TEXT NOT NULL UNIQUE,
		description TEXT
	);`,
	`INSERT INTO roles (id, role_name) VALUES
		(1, 'super_admin'), (2, 'admin'), (3, 'doctor'), (4, 'patient');`,
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		role_id INTEGER NOT NULL,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE hospitals (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE doctor_profiles (
		user_id TEXT PRIMARY KEY,
		hospital_id TEXT NOT NULL,
		license_number TEXT NOT NULL UNIQUE,
		specialization TEXT NOT NULL,
		biography TEXT
	);`,
	`CREATE TABLE patient_profiles (
		user_id TEXT PRIMARY KEY,
		phone_number TEXT,
		date_of_birth DATETIME,
		gender TEXT,
		address TEXT
	);`,
	`CREATE TABLE appointments (
		id TEXT PRIMARY KEY,
		doctor_id TEXT NOT NULL,
		patient_id TEXT NOT NULL,
		hospital_id TEXT NOT NULL,
		appointment_date TEXT NOT NULL,
		appointment_time TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		type TEXT NOT NULL,
		notes TEXT,
		created_by TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE UNIQUE INDEX idx_appointments_doctor_slot
		ON appointments (doctor_id, appointment_date, appointment_time)
		WHERE status <> 'cancelled';`,
	`CREATE TABLE audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT,
		action TEXT NOT NULL,
		metadata TEXT,
		created_at DATETIME
	);`,
}

// NewDB opens a private in-memory database. A single connection keeps every
// goroutine of a test on the same memory database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

// Logger returns a logrus logger that discards output
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func boolPtr(b bool) *bool { return &b }

func create(t testing.TB, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Omit(clause.Associations).Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}

func SeedUser(t testing.TB, db *gorm.DB, roleID int, name string, active bool) *entity.User {
	t.Helper()
	id := uuid.New()
	user := &entity.User{
		ID:       id,
		RoleID:   roleID,
		Email:    fmt.Sprintf("%s-%s@example.com", name, id.String()[:8]),
		FullName: name,
		IsActive: boolPtr(active),
	}
	create(t, db, user)
	return user
}

func SeedHospital(t testing.TB, db *gorm.DB, name string, active bool) *entity.Hospital {
	t.Helper()
	hospital := &entity.Hospital{
		ID:       uuid.New(),
		Name:     name,
		IsActive: boolPtr(active),
	}
	create(t, db, hospital)
	return hospital
}

func SeedDoctor(t testing.TB, db *gorm.DB, hospitalID uuid.UUID, name string, active bool) *entity.DoctorProfile {
	t.Helper()
	user := SeedUser(t, db, entity.RoleIDDoctor, name, active)
	doctor := &entity.DoctorProfile{
		UserID:         user.ID,
		HospitalID:     hospitalID,
		LicenseNumber:  "LIC-" + user.ID.String()[:8],
		Specialization: "general",
	}
	create(t, db, doctor)
	doctor.User = *user
	return doctor
}

func SeedPatient(t testing.TB, db *gorm.DB, name string) *entity.PatientProfile {
	t.Helper()
	user := SeedUser(t, db, entity.RoleIDPatient, name, true)
	patient := &entity.PatientProfile{
		UserID: user.ID,
		Gender: entity.GenderFemale,
	}
	create(t, db, patient)
	patient.User = *user
	return patient
}

func SeedAppointment(t testing.TB, db *gorm.DB, appointment *entity.Appointment) *entity.Appointment {
	t.Helper()
	if appointment.Type == "" {
		appointment.Type = entity.AppointmentTypeConsultation
	}
	if appointment.Status == "" {
		appointment.Status = entity.AppointmentStatusPending
	}
	create(t, db, appointment)
	return appointment
}

// Fixture is one hospital with an active doctor, a patient and an admin
type Fixture struct {
	Hospital *entity.Hospital
	Doctor   *entity.DoctorProfile
	Patient  *entity.PatientProfile
	Admin    *entity.User
}

func Seed(t testing.TB, db *gorm.DB) *Fixture {
	t.Helper()
	hospital := SeedHospital(t, db, "General Hospital", true)
	return &Fixture{
		Hospital: hospital,
		Doctor:   SeedDoctor(t, db, hospital.ID, "Dr. Rivera", true),
		Patient:  SeedPatient(t, db, "Sam Patient"),
		Admin:    SeedUser(t, db, entity.RoleIDAdmin, "Admin", true),
	}
}
