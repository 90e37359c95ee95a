package bootstrap

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hospital-appointment-service/config"
	"hospital-appointment-service/internal/delivery/dto"
	"hospital-appointment-service/internal/domain/entity"
	"hospital-appointment-service/internal/scheduling"
	"hospital-appointment-service/internal/service"
	"hospital-appointment-service/internal/testutil"
	"hospital-appointment-service/pkg/jwt"
	"hospital-appointment-service/pkg/response"

	"github.com/google/uuid"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
	Meta    *response.Meta  `json:"meta"`
}

type api struct {
	t       *testing.T
	handler http.Handler
	jwt     *jwt.JWTService
	f       *testutil.Fixture
	date    string
}

func newAPI(t *testing.T) *api {
	t.Helper()

	cfg := &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "test-secret", AccessExpiry: time.Minute},
		Clinic: config.ClinicConfig{
			Hours:    scheduling.DefaultWorkingHours,
			Location: time.UTC,
		},
	}

	db := testutil.NewDB(t)
	log := testutil.Logger()
	locker := service.NewLocalSlotLocker(log, 5*time.Second)
	t.Cleanup(locker.Stop)

	return &api{
		t:       t,
		handler: NewHandler(cfg, db, log, locker),
		jwt:     jwt.NewJWTService(cfg.JWT),
		f:       testutil.Seed(t, db),
		// A week ahead always has the full grid available
		date: scheduling.DateOf(time.Now().UTC().AddDate(0, 0, 7)).String(),
	}
}

func (a *api) token(userID uuid.UUID, roleID int) string {
	a.t.Helper()
	token, err := a.jwt.GenerateAccessToken(userID, "user@example.com", roleID)
	if err != nil {
		a.t.Fatalf("token: %v", err)
	}
	return token
}

func (a *api) do(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			a.t.Fatalf("decode %s %s response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, env
}

func (a *api) slotsPath() string {
	return "/api/v1/doctors/" + a.f.Doctor.UserID.String() + "/slots?date=" + a.date
}

func (a *api) createBody(at string) dto.CreateAppointmentRequest {
	return dto.CreateAppointmentRequest{
		DoctorID:        a.f.Doctor.UserID.String(),
		HospitalID:      a.f.Hospital.ID.String(),
		AppointmentDate: a.date,
		AppointmentTime: at,
	}
}

func TestHealth(t *testing.T) {
	a := newAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequiresBearerToken(t *testing.T) {
	a := newAPI(t)

	code, _ := a.do(http.MethodGet, a.slotsPath(), "", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestBookingFlow(t *testing.T) {
	a := newAPI(t)
	patientToken := a.token(a.f.Patient.UserID, entity.RoleIDPatient)

	code, env := a.do(http.MethodGet, a.slotsPath(), patientToken, nil)
	if code != http.StatusOK {
		t.Fatalf("slots: expected 200, got %d (%s)", code, env.Message)
	}
	var before dto.AvailableSlotsResponse
	if err := json.Unmarshal(env.Data, &before); err != nil {
		t.Fatalf("decode slots: %v", err)
	}
	if before.Total != 16 {
		t.Fatalf("expected 16 slots, got %d", before.Total)
	}

	code, env = a.do(http.MethodPost, "/api/v1/appointments", patientToken, a.createBody("10:30"))
	if code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", code, env.Message)
	}
	var created dto.AppointmentResponse
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode appointment: %v", err)
	}
	if created.AppointmentTime != "10:30" || created.Status != "pending" {
		t.Fatalf("unexpected appointment: %+v", created)
	}

	code, env = a.do(http.MethodGet, "/api/v1/appointments/"+created.ID.String(), patientToken, nil)
	if code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d (%s)", code, env.Message)
	}
}

func TestDoubleBookingReturnsConflict(t *testing.T) {
	a := newAPI(t)
	patientToken := a.token(a.f.Patient.UserID, entity.RoleIDPatient)
	adminToken := a.token(a.f.Admin.ID, entity.RoleIDAdmin)

	code, env := a.do(http.MethodPost, "/api/v1/appointments", patientToken, a.createBody("10:30"))
	if code != http.StatusCreated {
		t.Fatalf("first booking: expected 201, got %d (%s)", code, env.Message)
	}

	// Admin tries to book the same slot again
	body := a.createBody("10:30")
	body.PatientID = a.f.Patient.UserID.String()
	code, env = a.do(http.MethodPost, "/api/v1/appointments", adminToken, body)
	if code != http.StatusConflict {
		t.Fatalf("second booking: expected 409, got %d (%s)", code, env.Message)
	}
	if env.Success {
		t.Fatalf("conflict must not report success")
	}

	code, env = a.do(http.MethodGet, a.slotsPath(), patientToken, nil)
	if code != http.StatusOK {
		t.Fatalf("slots: expected 200, got %d", code)
	}
	var after dto.AvailableSlotsResponse
	if err := json.Unmarshal(env.Data, &after); err != nil {
		t.Fatalf("decode slots: %v", err)
	}
	if after.Total != 15 {
		t.Fatalf("expected 15 slots after booking, got %d", after.Total)
	}
	for _, s := range after.Slots {
		if s == "10:30" {
			t.Fatalf("booked slot still listed")
		}
	}
}

func TestValidationErrors(t *testing.T) {
	a := newAPI(t)
	patientToken := a.token(a.f.Patient.UserID, entity.RoleIDPatient)

	body := a.createBody("9:30")
	body.AppointmentDate = "2026/03/10"
	code, env := a.do(http.MethodPost, "/api/v1/appointments", patientToken, body)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}

	var fields map[string]string
	if err := json.Unmarshal(env.Error, &fields); err != nil {
		t.Fatalf("decode validation errors: %v", err)
	}
	if fields["AppointmentDate"] == "" || fields["AppointmentTime"] == "" {
		t.Fatalf("expected date and time field errors, got %v", fields)
	}

	code, _ = a.do(http.MethodGet, "/api/v1/doctors/"+a.f.Doctor.UserID.String()+"/slots?date=soon", patientToken, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("bad slots date: expected 400, got %d", code)
	}

	code, _ = a.do(http.MethodGet, "/api/v1/doctors/"+uuid.NewString()+"/slots?date="+a.date, patientToken, nil)
	if code != http.StatusNotFound {
		t.Fatalf("unknown doctor: expected 404, got %d", code)
	}

	code, _ = a.do(http.MethodPost, "/api/v1/appointments", patientToken, a.createBody("08:00"))
	if code != http.StatusBadRequest {
		t.Fatalf("outside hours: expected 400, got %d", code)
	}
}

func TestStatusAndAdminRoutes(t *testing.T) {
	a := newAPI(t)
	patientToken := a.token(a.f.Patient.UserID, entity.RoleIDPatient)
	doctorToken := a.token(a.f.Doctor.UserID, entity.RoleIDDoctor)
	adminToken := a.token(a.f.Admin.ID, entity.RoleIDAdmin)

	code, env := a.do(http.MethodPost, "/api/v1/appointments", patientToken, a.createBody("09:00"))
	if code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", code, env.Message)
	}
	var created dto.AppointmentResponse
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	statusPath := "/api/v1/appointments/" + created.ID.String() + "/status"

	code, _ = a.do(http.MethodPatch, statusPath, patientToken, dto.UpdateAppointmentStatusRequest{Status: "confirmed"})
	if code != http.StatusForbidden {
		t.Fatalf("patient confirm: expected 403, got %d", code)
	}

	code, _ = a.do(http.MethodPatch, statusPath, doctorToken, dto.UpdateAppointmentStatusRequest{Status: "confirmed"})
	if code != http.StatusOK {
		t.Fatalf("doctor confirm: expected 200, got %d", code)
	}

	code, _ = a.do(http.MethodPatch, statusPath, doctorToken, dto.UpdateAppointmentStatusRequest{Status: "confirmed"})
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("repeat confirm: expected 422, got %d", code)
	}

	code, env = a.do(http.MethodGet, "/api/v1/appointments", doctorToken, nil)
	if code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", code)
	}
	var list dto.AppointmentListResponse
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 1 || list.Appointments[0].Status != "confirmed" {
		t.Fatalf("unexpected list: %+v", list)
	}

	deletePath := "/api/v1/admin/appointments/" + created.ID.String()
	code, _ = a.do(http.MethodDelete, deletePath, patientToken, nil)
	if code != http.StatusForbidden {
		t.Fatalf("patient delete: expected 403, got %d", code)
	}
	code, _ = a.do(http.MethodDelete, deletePath, adminToken, nil)
	if code != http.StatusOK {
		t.Fatalf("admin delete: expected 200, got %d", code)
	}
	code, _ = a.do(http.MethodGet, "/api/v1/appointments/"+created.ID.String(), adminToken, nil)
	if code != http.StatusNotFound {
		t.Fatalf("get deleted: expected 404, got %d", code)
	}

	code, env = a.do(http.MethodGet, "/api/v1/admin/audit-logs?limit=2", adminToken, nil)
	if code != http.StatusOK {
		t.Fatalf("audit logs: expected 200, got %d", code)
	}
	// create, confirm, delete
	if env.Meta == nil || env.Meta.Total != 3 || env.Meta.Limit != 2 || env.Meta.TotalPages != 2 {
		t.Fatalf("unexpected audit meta: %+v", env.Meta)
	}

	code, _ = a.do(http.MethodGet, "/api/v1/admin/audit-logs/999", adminToken, nil)
	if code != http.StatusNotFound {
		t.Fatalf("missing audit log: expected 404, got %d", code)
	}
}

func TestCORSPreflight(t *testing.T) {
	a := newAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/appointments", nil)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
}
