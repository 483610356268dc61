package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/polyclinic/appointment-core/internal/auth"
	"github.com/polyclinic/appointment-core/internal/booking"
	"github.com/polyclinic/appointment-core/internal/cache"
	"github.com/polyclinic/appointment-core/internal/model"
	"github.com/polyclinic/appointment-core/internal/repository"
)

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	mgr      *auth.Manager
	doctorID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	schema := []string{
		`CREATE TABLE doctors (
			id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			specialization TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE weekly_templates (
			id TEXT PRIMARY KEY,
			doctor_id TEXT NOT NULL,
			day_of_week INTEGER NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			break_start_time TEXT,
			break_end_time TEXT,
			slot_duration INTEGER NOT NULL DEFAULT 15,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE daily_overrides (
			id TEXT PRIMARY KEY,
			doctor_id TEXT NOT NULL,
			schedule_date DATETIME NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			break_start_time TEXT,
			break_end_time TEXT,
			slot_duration INTEGER NOT NULL DEFAULT 15,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE calendar_exceptions (
			id TEXT PRIMARY KEY,
			doctor_id TEXT NOT NULL,
			calendar_date DATETIME NOT NULL,
			is_working BOOLEAN NOT NULL DEFAULT 1,
			note TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE appointments (
			id TEXT PRIMARY KEY,
			doctor_id TEXT NOT NULL,
			patient_name TEXT NOT NULL,
			patient_phone TEXT NOT NULL,
			patient_snils TEXT,
			patient_oms TEXT,
			appointment_date DATETIME NOT NULL,
			appointment_time TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'scheduled',
			created_at DATETIME,
			updated_at DATETIME,
			completed_at DATETIME
		);`,
		`CREATE UNIQUE INDEX uq_appointments_active_slot
			ON appointments (doctor_id, appointment_date, appointment_time)
			WHERE status IN ('scheduled', 'completed');`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}

	doctor := model.Doctor{ID: uuid.New(), FullName: "Смирнова Анна Петровна", IsActive: true}
	if err := db.Create(&doctor).Error; err != nil {
		t.Fatalf("seed doctor: %v", err)
	}
	// Понедельник, 09:00–11:00 по 30 минут.
	tpl := model.WeeklyTemplate{
		ID:           uuid.New(),
		DoctorID:     doctor.ID,
		DayOfWeek:    1,
		StartTime:    "09:00",
		EndTime:      "11:00",
		SlotDuration: 30,
		IsActive:     true,
	}
	if err := db.Create(&tpl).Error; err != nil {
		t.Fatalf("seed template: %v", err)
	}

	log := zap.NewNop()
	availability := cache.NewMemoryAvailability()
	apptRepo := repository.NewGormAppointmentRepository(db)
	schedRepo := repository.NewGormScheduleRepository(db)
	docRepo := repository.NewGormDoctorRepository(db)
	svc := booking.NewService(db, apptRepo, schedRepo, docRepo, availability, log)

	mgr := auth.NewManager("test-secret", time.Hour)
	router := NewRouter(
		NewAppointmentHandler(svc, log),
		NewScheduleHandler(schedRepo, docRepo, availability, log),
		mgr,
		log,
		nil,
	)

	return &testEnv{router: router, db: db, mgr: mgr, doctorID: doctor.ID}
}

func (e *testEnv) request(t *testing.T, method, path, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		token, err := e.mgr.Generate("test-user", role)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return env.Error.Kind
}

func validBookBody(doctorID uuid.UUID) map[string]any {
	return map[string]any{
		"doctor_id":     doctorID.String(),
		"date":          "2025-01-13",
		"time":          "09:00",
		"patient_name":  "Иванов Иван Иванович",
		"patient_phone": "+79990001122",
	}
}

func TestAPI_BookFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/v1/appointments", auth.RoleRegistrar, validBookBody(env.doctorID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created appointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != "scheduled" || created.Time != "09:00" {
		t.Fatalf("unexpected appointment: %+v", created)
	}

	// Повторное бронирование того же слота.
	rec = env.request(t, http.MethodPost, "/api/v1/appointments", auth.RoleRegistrar, validBookBody(env.doctorID))
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate book: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if kind := decodeError(t, rec); kind != "slot_conflict" {
		t.Fatalf("kind = %q, want slot_conflict", kind)
	}

	// Занятый слот пропал из выдачи.
	rec = env.request(t, http.MethodGet, "/api/v1/doctors/"+env.doctorID.String()+"/slots?date=2025-01-13", auth.RoleRegistrar, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("slots: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var slotsResp struct {
		Slots []string `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &slotsResp); err != nil {
		t.Fatalf("decode slots: %v", err)
	}
	for _, s := range slotsResp.Slots {
		if s == "09:00" {
			t.Fatalf("booked slot still listed: %v", slotsResp.Slots)
		}
	}

	// Завершение приёма.
	rec = env.request(t, http.MethodPost, "/api/v1/appointments/"+created.ID+"/complete", auth.RoleRegistrar, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Отмена завершённого приёма невозможна.
	rec = env.request(t, http.MethodPost, "/api/v1/appointments/"+created.ID+"/cancel", auth.RoleRegistrar, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("cancel completed: status = %d", rec.Code)
	}
	if kind := decodeError(t, rec); kind != "invalid_transition" {
		t.Fatalf("kind = %q, want invalid_transition", kind)
	}
}

func TestAPI_BookValidation(t *testing.T) {
	env := newTestEnv(t)

	body := validBookBody(env.doctorID)
	body["patient_name"] = "Ivanov123"
	rec := env.request(t, http.MethodPost, "/api/v1/appointments", auth.RoleRegistrar, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if kind := decodeError(t, rec); kind != "validation_error" {
		t.Fatalf("kind = %q, want validation_error", kind)
	}
}

func TestAPI_UnknownDoctor(t *testing.T) {
	env := newTestEnv(t)

	body := validBookBody(uuid.New())
	rec := env.request(t, http.MethodPost, "/api/v1/appointments", auth.RoleRegistrar, body)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if kind := decodeError(t, rec); kind != "not_found" {
		t.Fatalf("kind = %q, want not_found", kind)
	}
}

func TestAPI_AuthRequired(t *testing.T) {
	env := newTestEnv(t)

	// Выдача слотов открыта без токена.
	rec := env.request(t, http.MethodGet, "/api/v1/doctors/"+env.doctorID.String()+"/slots?date=2025-01-13", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("public slots: status = %d", rec.Code)
	}

	// Бронирование — нет.
	rec = env.request(t, http.MethodPost, "/api/v1/appointments", "", validBookBody(env.doctorID))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", rec.Code)
	}

	// Врач завершает приёмы, но не бронирует.
	rec = env.request(t, http.MethodPost, "/api/v1/appointments", auth.RoleDoctor, validBookBody(env.doctorID))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("doctor booking: status = %d", rec.Code)
	}

	// Регистратору закрыто администрирование расписаний.
	rec = env.request(t, http.MethodDelete, "/api/v1/schedules/"+uuid.NewString(), auth.RoleRegistrar, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("registrar on admin route: status = %d", rec.Code)
	}

	// Админ проходит всюду.
	rec = env.request(t, http.MethodGet, "/api/v1/doctors/"+env.doctorID.String()+"/appointments?from=2025-01-01&to=2025-12-31", auth.RoleAdmin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin on registrar route: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_DoctorCanComplete(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/v1/appointments", auth.RoleRegistrar, validBookBody(env.doctorID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created appointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = env.request(t, http.MethodPost, "/api/v1/appointments/"+created.ID+"/complete", auth.RoleDoctor, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("doctor complete: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_ScheduleAdmin(t *testing.T) {
	env := newTestEnv(t)

	// Дневное расписание поверх шаблона.
	rec := env.request(t, http.MethodPut, "/api/v1/doctors/"+env.doctorID.String()+"/daily-schedules", auth.RoleAdmin, map[string]any{
		"date":          "2025-01-13",
		"start_time":    "14:00",
		"end_time":      "16:00",
		"slot_duration": 60,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert override: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = env.request(t, http.MethodGet, "/api/v1/doctors/"+env.doctorID.String()+"/slots?date=2025-01-13", auth.RoleAdmin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("slots: status = %d", rec.Code)
	}
	var slotsResp struct {
		Slots []string `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &slotsResp); err != nil {
		t.Fatalf("decode slots: %v", err)
	}
	want := []string{"14:00", "15:00"}
	if len(slotsResp.Slots) != len(want) || slotsResp.Slots[0] != want[0] || slotsResp.Slots[1] != want[1] {
		t.Fatalf("slots = %v, want %v", slotsResp.Slots, want)
	}

	// Выходной закрывает день целиком.
	rec = env.request(t, http.MethodPut, "/api/v1/doctors/"+env.doctorID.String()+"/calendar", auth.RoleAdmin, map[string]any{
		"date":       "2025-01-13",
		"is_working": false,
		"note":       "отпуск",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert exception: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = env.request(t, http.MethodGet, "/api/v1/doctors/"+env.doctorID.String()+"/slots?date=2025-01-13", auth.RoleAdmin, nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &slotsResp); err != nil {
		t.Fatalf("decode slots: %v", err)
	}
	if len(slotsResp.Slots) != 0 {
		t.Fatalf("expected empty slots on day off, got %v", slotsResp.Slots)
	}

	// Окно с перепутанными границами отклоняется.
	rec = env.request(t, http.MethodPut, "/api/v1/doctors/"+env.doctorID.String()+"/daily-schedules", auth.RoleAdmin, map[string]any{
		"date":       "2025-01-14",
		"start_time": "16:00",
		"end_time":   "14:00",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad window: status = %d", rec.Code)
	}
}
