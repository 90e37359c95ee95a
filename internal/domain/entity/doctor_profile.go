package entity

import "github.com/google/uuid"

// DoctorProfile represents doctor-specific profile data
type DoctorProfile struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	HospitalID     uuid.UUID `gorm:"type:uuid;not null;index" json:"hospital_id"`
	LicenseNumber  string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"license_number"`
	Specialization string    `gorm:"type:varchar(100);not null;index" json:"specialization"`
	Biography      string    `gorm:"type:text" json:"biography,omitempty"`

	// Relationships
	User         User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Hospital     Hospital      `gorm:"foreignKey:HospitalID" json:"hospital,omitempty"`
	Appointments []Appointment `gorm:"foreignKey:DoctorID" json:"appointments,omitempty"`
}

func (DoctorProfile) TableName() string {
	return "doctor_profiles"
}

// IsActive reports whether the doctor's account is enabled. The User
// relation must be preloaded.
func (d *DoctorProfile) IsActive() bool {
	return d.User.IsActive != nil && *d.User.IsActive
}
