package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/polyclinic/appointment-core/internal/cache"
	"github.com/polyclinic/appointment-core/internal/model"
	"github.com/polyclinic/appointment-core/internal/repository"
	"github.com/polyclinic/appointment-core/internal/schedule"
)

// ScheduleHandler — администрирование источников расписания: недельные
// шаблоны, дневные расписания и календарные исключения. Каждая мутация
// инвалидирует кэш слотов затронутого врача.
type ScheduleHandler struct {
	schedules repository.ScheduleRepository
	doctors   repository.DoctorRepository
	cache     cache.Availability
	log       *zap.Logger
}

func NewScheduleHandler(
	schedules repository.ScheduleRepository,
	doctors repository.DoctorRepository,
	availability cache.Availability,
	log *zap.Logger,
) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, doctors: doctors, cache: availability, log: log}
}

type doctorResponse struct {
	ID             string `json:"id"`
	FullName       string `json:"full_name"`
	Specialization string `json:"specialization,omitempty"`
	IsActive       bool   `json:"is_active"`
}

// ListDoctors — GET /doctors?all=true.
func (h *ScheduleHandler) ListDoctors(c *gin.Context) {
	onlyActive := c.Query("all") != "true"
	doctors, err := h.doctors.List(c.Request.Context(), onlyActive)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	items := make([]doctorResponse, 0, len(doctors))
	for _, d := range doctors {
		items = append(items, doctorResponse{
			ID:             d.ID.String(),
			FullName:       d.FullName,
			Specialization: d.Specialization,
			IsActive:       d.IsActive,
		})
	}
	c.JSON(http.StatusOK, gin.H{"doctors": items})
}

type scheduleWindow struct {
	StartTime      string `json:"start_time" binding:"required"`
	EndTime        string `json:"end_time" binding:"required"`
	BreakStartTime string `json:"break_start_time"`
	BreakEndTime   string `json:"break_end_time"`
	SlotDuration   int    `json:"slot_duration"`
}

// validateWindow проверяет формат времён до записи в БД, чтобы кривые
// данные не ломали генерацию слотов.
func validateWindow(w scheduleWindow) (string, bool) {
	start, err := schedule.ParseClock(w.StartTime)
	if err != nil {
		return "start_time должно быть в формате HH:MM", false
	}
	end, err := schedule.ParseClock(w.EndTime)
	if err != nil {
		return "end_time должно быть в формате HH:MM", false
	}
	if start >= end {
		return "start_time должно быть раньше end_time", false
	}
	if w.SlotDuration < 0 {
		return "slot_duration должно быть положительным", false
	}
	if (w.BreakStartTime == "") != (w.BreakEndTime == "") {
		return "перерыв задаётся обеими границами", false
	}
	if w.BreakStartTime != "" {
		bs, err := schedule.ParseClock(w.BreakStartTime)
		if err != nil {
			return "break_start_time должно быть в формате HH:MM", false
		}
		be, err := schedule.ParseClock(w.BreakEndTime)
		if err != nil {
			return "break_end_time должно быть в формате HH:MM", false
		}
		if bs >= be {
			return "break_start_time должно быть раньше break_end_time", false
		}
	}
	return "", true
}

type weeklyTemplateRequest struct {
	DayOfWeek *int `json:"day_of_week" binding:"required"`
	scheduleWindow
}

type weeklyTemplateResponse struct {
	ID        string `json:"id"`
	DoctorID  string `json:"doctor_id"`
	DayOfWeek int    `json:"day_of_week"`
	scheduleWindow
	IsActive bool `json:"is_active"`
}

func toTemplateResponse(t *model.WeeklyTemplate) weeklyTemplateResponse {
	return weeklyTemplateResponse{
		ID:        t.ID.String(),
		DoctorID:  t.DoctorID.String(),
		DayOfWeek: t.DayOfWeek,
		scheduleWindow: scheduleWindow{
			StartTime:      t.StartTime,
			EndTime:        t.EndTime,
			BreakStartTime: t.BreakStartTime,
			BreakEndTime:   t.BreakEndTime,
			SlotDuration:   t.SlotDuration,
		},
		IsActive: t.IsActive,
	}
}

// ListTemplates — GET /doctors/:id/schedules.
func (h *ScheduleHandler) ListTemplates(c *gin.Context) {
	doctorID, ok := parseID(c, "id")
	if !ok {
		return
	}
	templates, err := h.schedules.ListTemplates(c.Request.Context(), doctorID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	items := make([]weeklyTemplateResponse, 0, len(templates))
	for i := range templates {
		items = append(items, toTemplateResponse(&templates[i]))
	}
	c.JSON(http.StatusOK, gin.H{"schedules": items})
}

// UpsertTemplate — PUT /doctors/:id/schedules.
func (h *ScheduleHandler) UpsertTemplate(c *gin.Context) {
	doctorID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req weeklyTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "некорректное тело запроса: "+err.Error())
		return
	}
	if *req.DayOfWeek < 0 || *req.DayOfWeek > 6 {
		writeBadRequest(c, "day_of_week должен быть от 0 (воскресенье) до 6")
		return
	}
	if msg, ok := validateWindow(req.scheduleWindow); !ok {
		writeBadRequest(c, msg)
		return
	}
	if _, err := h.doctors.GetByID(c.Request.Context(), doctorID); err != nil {
		writeError(c, h.log, err)
		return
	}

	duration := req.SlotDuration
	if duration == 0 {
		duration = 15
	}
	tpl := model.WeeklyTemplate{
		ID:             uuid.New(),
		DoctorID:       doctorID,
		DayOfWeek:      *req.DayOfWeek,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		BreakStartTime: req.BreakStartTime,
		BreakEndTime:   req.BreakEndTime,
		SlotDuration:   duration,
		IsActive:       true,
	}
	if err := h.schedules.UpsertTemplate(c.Request.Context(), &tpl); err != nil {
		writeError(c, h.log, err)
		return
	}

	// Шаблон затрагивает все будущие даты этого дня недели.
	h.cache.InvalidateDoctor(c.Request.Context(), doctorID.String())
	c.JSON(http.StatusOK, toTemplateResponse(&tpl))
}

type templatePatchRequest struct {
	StartTime      *string `json:"start_time"`
	EndTime        *string `json:"end_time"`
	BreakStartTime *string `json:"break_start_time"`
	BreakEndTime   *string `json:"break_end_time"`
	SlotDuration   *int    `json:"slot_duration"`
	IsActive       *bool   `json:"is_active"`
}

func (r templatePatchRequest) updates() map[string]any {
	updates := make(map[string]any)
	if r.StartTime != nil {
		updates["start_time"] = *r.StartTime
	}
	if r.EndTime != nil {
		updates["end_time"] = *r.EndTime
	}
	if r.BreakStartTime != nil {
		updates["break_start_time"] = *r.BreakStartTime
	}
	if r.BreakEndTime != nil {
		updates["break_end_time"] = *r.BreakEndTime
	}
	if r.SlotDuration != nil {
		updates["slot_duration"] = *r.SlotDuration
	}
	if r.IsActive != nil {
		updates["is_active"] = *r.IsActive
	}
	return updates
}

// PatchTemplate — PATCH /schedules/:id.
func (h *ScheduleHandler) PatchTemplate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req templatePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "некорректное тело запроса: "+err.Error())
		return
	}
	updates := req.updates()
	if len(updates) == 0 {
		writeBadRequest(c, "пустое обновление")
		return
	}

	tpl, err := h.schedules.UpdateTemplate(c.Request.Context(), id, updates)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	h.cache.InvalidateDoctor(c.Request.Context(), tpl.DoctorID.String())
	c.JSON(http.StatusOK, toTemplateResponse(tpl))
}

// DeleteTemplate — DELETE /schedules/:id.
func (h *ScheduleHandler) DeleteTemplate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.schedules.DeleteTemplate(c.Request.Context(), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type dailyOverrideRequest struct {
	Date string `json:"date" binding:"required"`
	scheduleWindow
	IsActive *bool `json:"is_active"`
}

type dailyOverrideResponse struct {
	ID       string `json:"id"`
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
	scheduleWindow
	IsActive bool `json:"is_active"`
}

func toOverrideResponse(o *model.DailyOverride) dailyOverrideResponse {
	return dailyOverrideResponse{
		ID:       o.ID.String(),
		DoctorID: o.DoctorID.String(),
		Date:     model.FormatDate(o.ScheduleDate),
		scheduleWindow: scheduleWindow{
			StartTime:      o.StartTime,
			EndTime:        o.EndTime,
			BreakStartTime: o.BreakStartTime,
			BreakEndTime:   o.BreakEndTime,
			SlotDuration:   o.SlotDuration,
		},
		IsActive: o.IsActive,
	}
}

// ListOverrides — GET /doctors/:id/daily-schedules?from=...&to=...
func (h *ScheduleHandler) ListOverrides(c *gin.Context) {
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

	overrides, err := h.schedules.ListOverrides(c.Request.Context(), doctorID, from, to)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	items := make([]dailyOverrideResponse, 0, len(overrides))
	for i := range overrides {
		items = append(items, toOverrideResponse(&overrides[i]))
	}
	c.JSON(http.StatusOK, gin.H{"daily_schedules": items})
}

// UpsertOverride — PUT /doctors/:id/daily-schedules.
func (h *ScheduleHandler) UpsertOverride(c *gin.Context) {
	doctorID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dailyOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "некорректное тело запроса: "+err.Error())
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		writeBadRequest(c, "date должна быть датой YYYY-MM-DD")
		return
	}
	if msg, ok := validateWindow(req.scheduleWindow); !ok {
		writeBadRequest(c, msg)
		return
	}
	if _, err := h.doctors.GetByID(c.Request.Context(), doctorID); err != nil {
		writeError(c, h.log, err)
		return
	}

	duration := req.SlotDuration
	if duration == 0 {
		duration = 15
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	o := model.DailyOverride{
		ID:             uuid.New(),
		DoctorID:       doctorID,
		ScheduleDate:   date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		BreakStartTime: req.BreakStartTime,
		BreakEndTime:   req.BreakEndTime,
		SlotDuration:   duration,
		IsActive:       active,
	}
	if err := h.schedules.UpsertOverride(c.Request.Context(), &o); err != nil {
		writeError(c, h.log, err)
		return
	}

	h.cache.Invalidate(c.Request.Context(), doctorID.String(), req.Date)
	c.JSON(http.StatusOK, toOverrideResponse(&o))
}

// PatchOverride — PATCH /daily-schedules/:id.
func (h *ScheduleHandler) PatchOverride(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req templatePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "некорректное тело запроса: "+err.Error())
		return
	}
	updates := req.updates()
	if len(updates) == 0 {
		writeBadRequest(c, "пустое обновление")
		return
	}

	o, err := h.schedules.UpdateOverride(c.Request.Context(), id, updates)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	h.cache.Invalidate(c.Request.Context(), o.DoctorID.String(), model.FormatDate(o.ScheduleDate))
	c.JSON(http.StatusOK, toOverrideResponse(o))
}

// DeleteOverride — DELETE /daily-schedules/:id.
func (h *ScheduleHandler) DeleteOverride(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.schedules.DeleteOverride(c.Request.Context(), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type calendarExceptionRequest struct {
	Date      string `json:"date" binding:"required"`
	IsWorking *bool  `json:"is_working" binding:"required"`
	Note      string `json:"note"`
}

type calendarExceptionResponse struct {
	ID        string `json:"id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	IsWorking bool   `json:"is_working"`
	Note      string `json:"note,omitempty"`
}

func toExceptionResponse(e *model.CalendarException) calendarExceptionResponse {
	return calendarExceptionResponse{
		ID:        e.ID.String(),
		DoctorID:  e.DoctorID.String(),
		Date:      model.FormatDate(e.CalendarDate),
		IsWorking: e.IsWorking,
		Note:      e.Note,
	}
}

// ListExceptions — GET /doctors/:id/calendar?year=2025.
func (h *ScheduleHandler) ListExceptions(c *gin.Context) {
	doctorID, ok := parseID(c, "id")
	if !ok {
		return
	}
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(time.Now().Year())))
	if err != nil || year < 1970 || year > 9999 {
		writeBadRequest(c, "year должен быть четырёхзначным годом")
		return
	}

	exceptions, err := h.schedules.ListExceptionsByYear(c.Request.Context(), doctorID, year)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	items := make([]calendarExceptionResponse, 0, len(exceptions))
	for i := range exceptions {
		items = append(items, toExceptionResponse(&exceptions[i]))
	}
	c.JSON(http.StatusOK, gin.H{"year": year, "calendar": items})
}

// UpsertException — PUT /doctors/:id/calendar.
func (h *ScheduleHandler) UpsertException(c *gin.Context) {
	doctorID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req calendarExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "некорректное тело запроса: "+err.Error())
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		writeBadRequest(c, "date должна быть датой YYYY-MM-DD")
		return
	}
	if _, err := h.doctors.GetByID(c.Request.Context(), doctorID); err != nil {
		writeError(c, h.log, err)
		return
	}

	e := model.CalendarException{
		ID:           uuid.New(),
		DoctorID:     doctorID,
		CalendarDate: date,
		IsWorking:    *req.IsWorking,
		Note:         req.Note,
	}
	if err := h.schedules.UpsertException(c.Request.Context(), &e); err != nil {
		writeError(c, h.log, err)
		return
	}

	h.cache.Invalidate(c.Request.Context(), doctorID.String(), req.Date)
	c.JSON(http.StatusOK, toExceptionResponse(&e))
}

type bulkCalendarRequest struct {
	Dates     []string `json:"dates" binding:"required"`
	IsWorking *bool    `json:"is_working" binding:"required"`
}

// BulkSetExceptions — POST /doctors/:id/calendar/bulk: массовое открытие
// или закрытие дат, например на отпуск.
func (h *ScheduleHandler) BulkSetExceptions(c *gin.Context) {
	doctorID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req bulkCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "некорректное тело запроса: "+err.Error())
		return
	}
	if len(req.Dates) == 0 {
		writeBadRequest(c, "список дат пуст")
		return
	}

	dates := make([]datatypes.Date, 0, len(req.Dates))
	for _, raw := range req.Dates {
		date, err := model.ParseDate(raw)
		if err != nil {
			writeBadRequest(c, "дата "+raw+" должна быть в формате YYYY-MM-DD")
			return
		}
		dates = append(dates, date)
	}
	if _, err := h.doctors.GetByID(c.Request.Context(), doctorID); err != nil {
		writeError(c, h.log, err)
		return
	}

	n, err := h.schedules.BulkSetExceptions(c.Request.Context(), doctorID, dates, *req.IsWorking)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	for _, raw := range req.Dates {
		h.cache.Invalidate(c.Request.Context(), doctorID.String(), raw)
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
