package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hospital-appointment-service/config"
	"hospital-appointment-service/internal/converter"
	"hospital-appointment-service/internal/delivery/dto"
	"hospital-appointment-service/internal/delivery/http/middleware"
	"hospital-appointment-service/internal/domain/entity"
	"hospital-appointment-service/internal/domain/repository"
	"hospital-appointment-service/internal/scheduling"
	"hospital-appointment-service/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrUnauthenticated     = errors.New("user not found in context")
	ErrForbidden           = errors.New("you are not allowed to access this appointment")
	ErrInvalidDate         = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidTime         = errors.New("invalid time, expected HH:MM")
	ErrInvalidStatus       = errors.New("invalid appointment status")
	ErrInvalidType         = errors.New("invalid appointment type")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrPatientRequired     = errors.New("patient_id is required")
	ErrHospitalNotFound    = errors.New("hospital not found")
	ErrDoctorNotInHospital = errors.New("doctor does not practise at this hospital")
	ErrSlotOutsideHours    = errors.New("requested time is not a slot within working hours")
	ErrSlotInPast          = errors.New("requested slot is in the past")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidTransition   = errors.New("appointment status transition not allowed")

	// Conflicts: the request was valid but lost against concurrent state
	ErrSlotUnavailable = errors.New("requested slot is no longer available")
	ErrSlotBusy        = errors.New("slot is being booked by another request, please retry")
	ErrStatusChanged   = errors.New("appointment status changed concurrently, please reload")
)

type AppointmentUsecase interface {
	GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, rawDate string) (*dto.AvailableSlotsResponse, error)
	CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	ListAppointments(ctx context.Context, req *dto.ListAppointmentsRequest) (*dto.AppointmentListResponse, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
}

type appointmentUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	doctorRepo      repository.DoctorProfileRepository
	patientRepo     repository.PatientProfileRepository
	hospitalRepo    repository.HospitalRepository
	auditService    service.AuditService
	slotLocker      service.SlotLocker
	clinic          config.ClinicConfig
	now             func() time.Time
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	doctorRepo repository.DoctorProfileRepository,
	patientRepo repository.PatientProfileRepository,
	hospitalRepo repository.HospitalRepository,
	auditService service.AuditService,
	slotLocker service.SlotLocker,
	clinic config.ClinicConfig,
) AppointmentUsecase {
	if clinic.Location == nil {
		clinic.Location = time.UTC
	}
	return &appointmentUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		doctorRepo:      doctorRepo,
		patientRepo:     patientRepo,
		hospitalRepo:    hospitalRepo,
		auditService:    auditService,
		slotLocker:      slotLocker,
		clinic:          clinic,
		now:             time.Now,
	}
}

// clock returns the current instant in the clinic's time zone; every
// "today" and "in the past" decision is made against it.
func (u *appointmentUsecase) clock() time.Time {
	return u.now().In(u.clinic.Location)
}

// GetAvailableSlots lists the bookable slots of a doctor on a date: the
// working-hours grid minus past slots minus slots held by non-cancelled
// appointments.
func (u *appointmentUsecase) GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, rawDate string) (*dto.AvailableSlotsResponse, error) {
	date, err := scheduling.ParseDate(rawDate)
	if err != nil {
		return nil, ErrInvalidDate
	}

	doctor, err := u.doctorRepo.FindByUserID(ctx, u.db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", doctorID, err)
		return nil, err
	}
	if doctor == nil || !doctor.IsActive() {
		return nil, ErrDoctorNotFound
	}

	slotMinutes := int(u.clinic.Hours.SlotLength / time.Minute)

	candidates := scheduling.GenerateSlots(date, u.clinic.Hours, u.clock())
	if len(candidates) == 0 {
		return converter.SlotsToResponse(doctorID, date.String(), slotMinutes, nil), nil
	}

	occupied, err := u.appointmentRepo.FindOccupiedTimes(ctx, u.db, doctorID, date)
	if err != nil {
		u.log.Warnf("Failed to find occupied slots for doctor %s on %s: %+v", doctorID, date, err)
		return nil, err
	}

	available := scheduling.FilterAvailable(candidates, occupied)
	return converter.SlotsToResponse(doctorID, date.String(), slotMinutes, scheduling.Strings(available)), nil
}

// CreateAppointment books one slot.
//
// Flow:
// 1. Resolve caller, patient, status and type
// 2. Validate hospital, doctor and patient references
// 3. Validate the slot is on the grid and in the future
// 4. Lock the doctor-day, then in one transaction re-check occupancy,
//    insert and write the audit log
//
// The partial unique index on (doctor_id, appointment_date, appointment_time)
// backs up step 4: a duplicate insert that slips past the lock still fails
// and is reported as ErrSlotUnavailable.
func (u *appointmentUsecase) CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	userID, roleID, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}

	// Step 1: caller-dependent fields
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, ErrDoctorNotFound
	}
	hospitalID, err := uuid.Parse(req.HospitalID)
	if err != nil {
		return nil, ErrHospitalNotFound
	}
	patientID, err := resolvePatient(userID, roleID, doctorID, req.PatientID)
	if err != nil {
		return nil, err
	}

	status := entity.AppointmentStatus(req.Status)
	if status == "" {
		status = entity.AppointmentStatusPending
	}
	if status != entity.AppointmentStatusPending && status != entity.AppointmentStatusConfirmed {
		return nil, ErrInvalidStatus
	}

	apptType := entity.AppointmentType(req.Type)
	if apptType == "" {
		apptType = entity.AppointmentTypeConsultation
	}
	if !apptType.IsValid() {
		return nil, ErrInvalidType
	}

	date, err := scheduling.ParseDate(req.AppointmentDate)
	if err != nil {
		return nil, ErrInvalidDate
	}
	at, err := scheduling.ParseTimeOfDay(req.AppointmentTime)
	if err != nil {
		return nil, ErrInvalidTime
	}

	// Step 2: references
	if err := u.checkReferences(ctx, hospitalID, doctorID, patientID); err != nil {
		return nil, err
	}

	// Step 3: slot membership
	now := u.clock()
	if !date.At(at, u.clinic.Location).After(now) {
		return nil, ErrSlotInPast
	}
	if !scheduling.Contains(scheduling.GenerateSlots(date, u.clinic.Hours, now), at) {
		return nil, ErrSlotOutsideHours
	}

	// Step 4: serialized check-and-insert
	release, err := u.slotLocker.Lock(ctx, doctorID, date)
	if err != nil {
		if errors.Is(err, service.ErrLockTimeout) {
			return nil, ErrSlotBusy
		}
		u.log.Warnf("Failed to lock doctor %s on %s: %+v", doctorID, date, err)
		return nil, err
	}
	defer release()

	createdBy := userID
	appointment := &entity.Appointment{
		DoctorID:        doctorID,
		PatientID:       patientID,
		HospitalID:      hospitalID,
		AppointmentDate: date,
		AppointmentTime: at,
		Status:          status,
		Type:            apptType,
		Notes:           req.Notes,
		CreatedBy:       &createdBy,
	}

	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := u.appointmentRepo.ExistsActiveAt(ctx, tx, doctorID, date, at)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotUnavailable
		}

		if err := u.appointmentRepo.Create(ctx, tx, appointment); err != nil {
			if errors.Is(err, repository.ErrSlotTaken) {
				return ErrSlotUnavailable
			}
			return err
		}

		return u.auditService.LogCreate(ctx, tx, &userID, entity.AuditActionAppointmentCreate,
			entity.AuditEntityAppointment, appointment.ID.String(), converter.AppointmentToResponse(appointment))
	})
	if err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			u.log.Infof("Slot %s %s for doctor %s already taken", date, at, doctorID)
			return nil, err
		}
		u.log.Errorf("Failed to create appointment: %+v", err)
		return nil, err
	}

	u.log.Infof("Appointment created: id=%s, doctor=%s, slot=%s %s", appointment.ID, doctorID, date, at)
	return u.reload(ctx, appointment), nil
}

// resolvePatient decides whose appointment is being booked. Patients book
// for themselves, doctors only on their own calendar, staff for anyone.
func resolvePatient(userID uuid.UUID, roleID int, doctorID uuid.UUID, rawPatientID string) (uuid.UUID, error) {
	switch {
	case roleID == entity.RoleIDPatient:
		if rawPatientID != "" && rawPatientID != userID.String() {
			return uuid.Nil, ErrForbidden
		}
		return userID, nil
	case roleID == entity.RoleIDDoctor && doctorID != userID:
		return uuid.Nil, ErrForbidden
	case rawPatientID == "":
		return uuid.Nil, ErrPatientRequired
	}

	patientID, err := uuid.Parse(rawPatientID)
	if err != nil {
		return uuid.Nil, ErrPatientNotFound
	}
	return patientID, nil
}

func (u *appointmentUsecase) checkReferences(ctx context.Context, hospitalID, doctorID, patientID uuid.UUID) error {
	hospital, err := u.hospitalRepo.FindByID(ctx, u.db, hospitalID)
	if err != nil {
		u.log.Warnf("Failed to find hospital %s: %+v", hospitalID, err)
		return err
	}
	if hospital == nil || hospital.IsActive == nil || !*hospital.IsActive {
		return ErrHospitalNotFound
	}

	doctor, err := u.doctorRepo.FindByUserID(ctx, u.db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", doctorID, err)
		return err
	}
	if doctor == nil || !doctor.IsActive() {
		return ErrDoctorNotFound
	}
	if doctor.HospitalID != hospitalID {
		return ErrDoctorNotInHospital
	}

	patient, err := u.patientRepo.FindByUserID(ctx, u.db, patientID)
	if err != nil {
		u.log.Warnf("Failed to find patient %s: %+v", patientID, err)
		return err
	}
	if patient == nil {
		return ErrPatientNotFound
	}
	return nil
}

func (u *appointmentUsecase) GetAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	userID, roleID, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}

	appointment, err := u.appointmentRepo.FindByID(ctx, u.db, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if !canView(userID, roleID, appointment) {
		return nil, ErrForbidden
	}

	return converter.AppointmentToResponse(appointment), nil
}

// ListAppointments filters appointments. Patients only ever see their own and
// doctors only their own calendar, whatever the request asks for.
func (u *appointmentUsecase) ListAppointments(ctx context.Context, req *dto.ListAppointmentsRequest) (*dto.AppointmentListResponse, error) {
	userID, roleID, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}

	filter, err := buildFilter(req)
	if err != nil {
		return nil, err
	}

	switch roleID {
	case entity.RoleIDPatient:
		if filter.PatientID != nil && *filter.PatientID != userID {
			return nil, ErrForbidden
		}
		filter.PatientID = &userID
	case entity.RoleIDDoctor:
		if filter.DoctorID != nil && *filter.DoctorID != userID {
			return nil, ErrForbidden
		}
		filter.DoctorID = &userID
	}

	appointments, err := u.appointmentRepo.FindAll(ctx, u.db, filter)
	if err != nil {
		u.log.Warnf("Failed to list appointments: %+v", err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

func buildFilter(req *dto.ListAppointmentsRequest) (*entity.AppointmentFilter, error) {
	filter := &entity.AppointmentFilter{}
	if req == nil {
		return filter, nil
	}

	ids := []struct {
		raw      string
		dst      **uuid.UUID
		notFound error
	}{
		{req.DoctorID, &filter.DoctorID, ErrDoctorNotFound},
		{req.PatientID, &filter.PatientID, ErrPatientNotFound},
		{req.HospitalID, &filter.HospitalID, ErrHospitalNotFound},
	}
	for _, id := range ids {
		if id.raw == "" {
			continue
		}
		parsed, err := uuid.Parse(id.raw)
		if err != nil {
			return nil, id.notFound
		}
		*id.dst = &parsed
	}

	var err error
	if req.From != "" {
		if filter.From, err = scheduling.ParseDate(req.From); err != nil {
			return nil, ErrInvalidDate
		}
	}
	if req.To != "" {
		if filter.To, err = scheduling.ParseDate(req.To); err != nil {
			return nil, ErrInvalidDate
		}
	}

	if req.Status != "" {
		filter.Status = entity.AppointmentStatus(req.Status)
		if !filter.Status.IsValid() {
			return nil, ErrInvalidStatus
		}
	}
	return filter, nil
}

// UpdateStatus moves an appointment along its lifecycle. The write is a
// compare-and-set on the status read here, so two concurrent transitions
// cannot both succeed.
func (u *appointmentUsecase) UpdateStatus(ctx context.Context, id uuid.UUID, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error) {
	userID, roleID, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}

	next := entity.AppointmentStatus(req.Status)
	if !next.IsValid() {
		return nil, ErrInvalidStatus
	}

	appointment, err := u.appointmentRepo.FindByID(ctx, u.db, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	if !canView(userID, roleID, appointment) {
		return nil, ErrForbidden
	}
	// Patients may only withdraw their own booking
	if roleID == entity.RoleIDPatient && next != entity.AppointmentStatusCancelled {
		return nil, ErrForbidden
	}

	current := appointment.Status
	if !current.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}

	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := u.appointmentRepo.UpdateStatus(ctx, tx, id, current, next)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrStatusChanged
		}

		return u.auditService.LogUpdate(ctx, tx, &userID, entity.AuditActionAppointmentStatus,
			entity.AuditEntityAppointment, id.String(),
			map[string]string{"status": string(current)},
			map[string]string{"status": string(next)})
	})
	if err != nil {
		if !errors.Is(err, ErrStatusChanged) {
			u.log.Errorf("Failed to update appointment %s status: %+v", id, err)
		}
		return nil, err
	}

	u.log.Infof("Appointment %s status: %s -> %s", id, current, next)

	appointment.Status = next
	return u.reload(ctx, appointment), nil
}

// DeleteAppointment hard-deletes an appointment. Admin only; everyone else
// cancels instead.
func (u *appointmentUsecase) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	userID, roleID, err := identityFrom(ctx)
	if err != nil {
		return err
	}
	if !entity.IsStaffRole(roleID) {
		return ErrForbidden
	}

	appointment, err := u.appointmentRepo.FindByID(ctx, u.db, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return err
	}
	if appointment == nil {
		return ErrAppointmentNotFound
	}

	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := u.appointmentRepo.Delete(ctx, tx, id)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAppointmentNotFound
		}

		return u.auditService.LogDelete(ctx, tx, &userID, entity.AuditActionAppointmentDelete,
			entity.AuditEntityAppointment, id.String(), converter.AppointmentToResponse(appointment))
	})
	if err != nil {
		if !errors.Is(err, ErrAppointmentNotFound) {
			u.log.Errorf("Failed to delete appointment %s: %+v", id, err)
		}
		return err
	}

	u.log.Infof("Appointment %s deleted by %s", id, userID)
	return nil
}

// reload fetches the appointment with its relations for the response,
// falling back to what we already have.
func (u *appointmentUsecase) reload(ctx context.Context, appointment *entity.Appointment) *dto.AppointmentResponse {
	full, err := u.appointmentRepo.FindByID(ctx, u.db, appointment.ID)
	if err != nil || full == nil {
		u.log.Warnf("Failed to reload appointment %s: %+v", appointment.ID, err)
		return converter.AppointmentToResponse(appointment)
	}
	return converter.AppointmentToResponse(full)
}

func identityFrom(ctx context.Context) (uuid.UUID, int, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, 0, ErrUnauthenticated
	}
	roleID, ok := middleware.GetRoleIDFromContext(ctx)
	if !ok {
		return uuid.Nil, 0, fmt.Errorf("%w: role missing", ErrUnauthenticated)
	}
	return userID, roleID, nil
}

func canView(userID uuid.UUID, roleID int, appointment *entity.Appointment) bool {
	switch roleID {
	case entity.RoleIDPatient:
		return appointment.PatientID == userID
	case entity.RoleIDDoctor:
		return appointment.DoctorID == userID
	}
	return entity.IsStaffRole(roleID)
}
