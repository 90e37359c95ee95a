package validator

import "testing"

type bookingForm struct {
	DoctorID string `json:"doctor_id" validate:"required,uuid"`
	Date     string `json:"date" validate:"required,date"`
	Time     string `json:"time" validate:"required,timeofday"`
	Status   string `json:"status" validate:"omitempty,oneof=pending confirmed"`
}

func TestValidateAcceptsWellFormed(t *testing.T) {
	v := NewValidator()
	form := bookingForm{
		DoctorID: "7f0c4b0e-4a53-4a53-9d39-0d7f3c1b2a11",
		Date:     "2026-03-09",
		Time:     "09:30",
	}
	if err := v.Validate(form); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFormatValidationErrors(t *testing.T) {
	v := NewValidator()
	form := bookingForm{
		DoctorID: "not-a-uuid",
		Date:     "2026-02-30",
		Time:     "9:30",
		Status:   "completed",
	}

	err := v.Validate(form)
	if err == nil {
		t.Fatalf("expected validation error")
	}

	got := v.FormatValidationErrors(err)
	want := map[string]string{
		"DoctorID": "DoctorID must be a valid UUID",
		"Date":     "Date must be a date in YYYY-MM-DD format",
		"Time":     "Time must be a time in HH:MM format",
		"Status":   "Status must be one of: pending, confirmed",
	}
	for field, msg := range want {
		if got[field] != msg {
			t.Fatalf("%s: expected %q, got %q", field, msg, got[field])
		}
	}
}
