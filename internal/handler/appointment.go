package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/polyclinic/appointment-core/internal/booking"
	"github.com/polyclinic/appointment-core/internal/model"
)

// AppointmentHandler — HTTP-обёртка над booking.Service.
type AppointmentHandler struct {
	svc *booking.Service
	log *zap.Logger
}

func NewAppointmentHandler(svc *booking.Service, log *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, log: log}
}

type appointmentResponse struct {
	ID           string     `json:"id"`
	DoctorID     string     `json:"doctor_id"`
	DoctorName   string     `json:"doctor_name,omitempty"`
	PatientName  string     `json:"patient_name"`
	PatientPhone string     `json:"patient_phone"`
	PatientSNILS string     `json:"patient_snils,omitempty"`
	PatientOMS   string     `json:"patient_oms,omitempty"`
	Date         string     `json:"date"`
	Time         string     `json:"time"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func toAppointmentResponse(a *model.Appointment) appointmentResponse {
	resp := appointmentResponse{
		ID:           a.ID.String(),
		DoctorID:     a.DoctorID.String(),
		PatientName:  a.PatientName,
		PatientPhone: a.PatientPhone,
		PatientSNILS: a.PatientSNILS,
		PatientOMS:   a.PatientOMS,
		Date:         model.FormatDate(a.AppointmentDate),
		Time:         a.AppointmentTime,
		Description:  a.Description,
		Status:       string(a.Status),
		CreatedAt:    a.CreatedAt,
		CompletedAt:  a.CompletedAt,
	}
	if a.Doctor != nil {
		resp.DoctorName = a.Doctor.FullName
	}
	return resp
}

func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		writeBadRequest(c, "некорректный UUID в пути запроса")
		return uuid.Nil, false
	}
	return id, true
}

func parseDateQuery(c *gin.Context, name string) (datatypes.Date, bool) {
	raw := c.Query(name)
	if raw == "" {
		writeBadRequest(c, "параметр "+name+" обязателен (YYYY-MM-DD)")
		return datatypes.Date{}, false
	}
	date, err := model.ParseDate(raw)
	if err != nil {
		writeBadRequest(c, "параметр "+name+" должен быть датой YYYY-MM-DD")
		return datatypes.Date{}, false
	}
	return date, true
}

// Slots — GET /doctors/:id/slots?date=YYYY-MM-DD.
// Пустой список — валидный ответ: врач в этот день не принимает.
func (h *AppointmentHandler) Slots(c *gin.Context) {
	doctorID, ok := parseID(c, "id")
	if !ok {
		return
	}
	date, ok := parseDateQuery(c, "date")
	if !ok {
		return
	}

	slots, err := h.svc.AvailableSlots(c.Request.Context(), doctorID, date)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":  c.Query("date"),
		"slots": slots,
	})
}

type bookRequest struct {
	DoctorID     string `json:"doctor_id" binding:"required"`
	Date         string `json:"date" binding:"required"`
	Time         string `json:"time" binding:"required"`
	PatientName  string `json:"patient_name" binding:"required"`
	PatientPhone string `json:"patient_phone" binding:"required"`
	PatientSNILS string `json:"patient_snils"`
	PatientOMS   string `json:"patient_oms"`
	Description  string `json:"description"`
}

// Book — POST /appointments.
func (h *AppointmentHandler) Book(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "некорректное тело запроса: "+err.Error())
		return
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		writeBadRequest(c, "doctor_id должен быть UUID")
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		writeBadRequest(c, "date должна быть датой YYYY-MM-DD")
		return
	}

	appt, err := h.svc.Book(c.Request.Context(), doctorID, date, req.Time, booking.PatientData{
		Name:        req.PatientName,
		Phone:       req.PatientPhone,
		SNILS:       req.PatientSNILS,
		OMS:         req.PatientOMS,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toAppointmentResponse(appt))
}

// Get — GET /appointments/:id.
func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	appt, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

// List — GET /doctors/:id/appointments?from=...&to=...&page=...&page_size=...
func (h *AppointmentHandler) List(c *gin.Context) {
	doctorID, ok := parseID(c, "id")
	if !ok {
		return
	}
	from, ok := parseDateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseDateQuery(c, "to")
	if !ok {
		return
	}
	page, pageSize := pageParams(c)

	appts, total, err := h.svc.List(c.Request.Context(), doctorID, from, to, pageSize, (page-1)*pageSize)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	items := make([]appointmentResponse, 0, len(appts))
	for i := range appts {
		items = append(items, toAppointmentResponse(&appts[i]))
	}
	c.JSON(http.StatusOK, NewPage(items, page, pageSize, total))
}

// Complete — POST /appointments/:id/complete.
func (h *AppointmentHandler) Complete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	appt, err := h.svc.Complete(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

// Cancel — POST /appointments/:id/cancel.
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	appt, err := h.svc.Cancel(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

type rescheduleRequest struct {
	Date string `json:"date" binding:"required"`
	Time string `json:"time" binding:"required"`
}

// Reschedule — POST /appointments/:id/reschedule.
func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "некорректное тело запроса: "+err.Error())
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		writeBadRequest(c, "date должна быть датой YYYY-MM-DD")
		return
	}

	oldAppt, newAppt, err := h.svc.Reschedule(c.Request.Context(), id, date, req.Time)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cancelled": toAppointmentResponse(oldAppt),
		"created":   toAppointmentResponse(newAppt),
	})
}

type cloneRequest struct {
	Date        string  `json:"date" binding:"required"`
	Time        string  `json:"time" binding:"required"`
	Description *string `json:"description"`
}

// Clone — POST /appointments/:id/clone: повторный приём с данными
// пациента из исходной записи.
func (h *AppointmentHandler) Clone(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req cloneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "некорректное тело запроса: "+err.Error())
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		writeBadRequest(c, "date должна быть датой YYYY-MM-DD")
		return
	}

	appt, err := h.svc.Clone(c.Request.Context(), id, date, req.Time, req.Description)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toAppointmentResponse(appt))
}
