package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/polyclinic/appointment-core/internal/model"
)

// ScheduleRepository — доступ к трём источникам расписания.
// Сведение источников по приоритету — не его забота: репозиторий только
// отдаёт строки, резолвер решает.
type ScheduleRepository interface {
	// Недельные шаблоны врача (все дни).
	ListTemplates(ctx context.Context, doctorID uuid.UUID) ([]model.WeeklyTemplate, error)
	// Шаблоны врача на конкретный день недели (0 = воскресенье).
	ListTemplatesForWeekday(ctx context.Context, doctorID uuid.UUID, weekday int) ([]model.WeeklyTemplate, error)
	// Создать или обновить шаблон по (врач, день недели).
	UpsertTemplate(ctx context.Context, t *model.WeeklyTemplate) error
	// Точечное обновление шаблона по id.
	UpdateTemplate(ctx context.Context, id uuid.UUID, updates map[string]any) (*model.WeeklyTemplate, error)
	DeleteTemplate(ctx context.Context, id uuid.UUID) error

	// Дневные расписания врача в интервале дат.
	ListOverrides(ctx context.Context, doctorID uuid.UUID, from, to datatypes.Date) ([]model.DailyOverride, error)
	// Дневные расписания на точную дату.
	ListOverridesForDate(ctx context.Context, doctorID uuid.UUID, date datatypes.Date) ([]model.DailyOverride, error)
	// Создать или обновить дневное расписание по (врач, дата).
	UpsertOverride(ctx context.Context, o *model.DailyOverride) error
	UpdateOverride(ctx context.Context, id uuid.UUID, updates map[string]any) (*model.DailyOverride, error)
	DeleteOverride(ctx context.Context, id uuid.UUID) error

	// Исключение календаря на точную дату; (nil, nil) — исключения нет.
	GetExceptionForDate(ctx context.Context, doctorID uuid.UUID, date datatypes.Date) (*model.CalendarException, error)
	// Исключения врача за год.
	ListExceptionsByYear(ctx context.Context, doctorID uuid.UUID, year int) ([]model.CalendarException, error)
	// Создать или обновить исключение по (врач, дата).
	UpsertException(ctx context.Context, e *model.CalendarException) error
	// Массовая установка is_working на список дат. Возвращает число дат.
	BulkSetExceptions(ctx context.Context, doctorID uuid.UUID, dates []datatypes.Date, isWorking bool) (int, error)
}

// Реализация на GORM.
type GormScheduleRepository struct {
	db *gorm.DB
}

func NewGormScheduleRepository(db *gorm.DB) *GormScheduleRepository {
	return &GormScheduleRepository{db: db}
}

func (r *GormScheduleRepository) ListTemplates(ctx context.Context, doctorID uuid.UUID) ([]model.WeeklyTemplate, error) {
	var templates []model.WeeklyTemplate
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("day_of_week ASC, created_at DESC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *GormScheduleRepository) ListTemplatesForWeekday(ctx context.Context, doctorID uuid.UUID, weekday int) ([]model.WeeklyTemplate, error) {
	var templates []model.WeeklyTemplate
	err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND day_of_week = ?", doctorID, weekday).
		Order("created_at DESC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *GormScheduleRepository) UpsertTemplate(ctx context.Context, t *model.WeeklyTemplate) error {
	var existing model.WeeklyTemplate
	tx := r.db.WithContext(ctx).
		Where("doctor_id = ? AND day_of_week = ?", t.DoctorID, t.DayOfWeek).
		Order("created_at DESC").
		First(&existing)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return r.db.WithContext(ctx).Create(t).Error
		}
		return tx.Error
	}

	updates := map[string]any{
		"start_time":       t.StartTime,
		"end_time":         t.EndTime,
		"break_start_time": t.BreakStartTime,
		"break_end_time":   t.BreakEndTime,
		"slot_duration":    t.SlotDuration,
		"is_active":        true,
	}
	if err := r.db.WithContext(ctx).
		Model(&model.WeeklyTemplate{}).
		Where("id = ?", existing.ID).
		Updates(updates).Error; err != nil {
		return err
	}
	t.ID = existing.ID
	t.CreatedAt = existing.CreatedAt
	t.IsActive = true
	return nil
}

func (r *GormScheduleRepository) UpdateTemplate(ctx context.Context, id uuid.UUID, updates map[string]any) (*model.WeeklyTemplate, error) {
	res := r.db.WithContext(ctx).
		Model(&model.WeeklyTemplate{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var t model.WeeklyTemplate
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *GormScheduleRepository) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.WeeklyTemplate{}, "id = ?", id).Error
}

func (r *GormScheduleRepository) ListOverrides(ctx context.Context, doctorID uuid.UUID, from, to datatypes.Date) ([]model.DailyOverride, error) {
	var overrides []model.DailyOverride
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Where("schedule_date >= ? AND schedule_date <= ?", from, to).
		Order("schedule_date ASC").
		Find(&overrides).Error
	if err != nil {
		return nil, err
	}
	return overrides, nil
}

func (r *GormScheduleRepository) ListOverridesForDate(ctx context.Context, doctorID uuid.UUID, date datatypes.Date) ([]model.DailyOverride, error) {
	var overrides []model.DailyOverride
	err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND schedule_date = ?", doctorID, date).
		Order("created_at DESC").
		Find(&overrides).Error
	if err != nil {
		return nil, err
	}
	return overrides, nil
}

func (r *GormScheduleRepository) UpsertOverride(ctx context.Context, o *model.DailyOverride) error {
	var existing model.DailyOverride
	tx := r.db.WithContext(ctx).
		Where("doctor_id = ? AND schedule_date = ?", o.DoctorID, o.ScheduleDate).
		Order("created_at DESC").
		First(&existing)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return r.db.WithContext(ctx).Create(o).Error
		}
		return tx.Error
	}

	updates := map[string]any{
		"start_time":       o.StartTime,
		"end_time":         o.EndTime,
		"break_start_time": o.BreakStartTime,
		"break_end_time":   o.BreakEndTime,
		"slot_duration":    o.SlotDuration,
		"is_active":        o.IsActive,
	}
	if err := r.db.WithContext(ctx).
		Model(&model.DailyOverride{}).
		Where("id = ?", existing.ID).
		Updates(updates).Error; err != nil {
		return err
	}
	o.ID = existing.ID
	o.CreatedAt = existing.CreatedAt
	return nil
}

func (r *GormScheduleRepository) UpdateOverride(ctx context.Context, id uuid.UUID, updates map[string]any) (*model.DailyOverride, error) {
	res := r.db.WithContext(ctx).
		Model(&model.DailyOverride{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var o model.DailyOverride
	if err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormScheduleRepository) DeleteOverride(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.DailyOverride{}, "id = ?", id).Error
}

func (r *GormScheduleRepository) GetExceptionForDate(ctx context.Context, doctorID uuid.UUID, date datatypes.Date) (*model.CalendarException, error) {
	var e model.CalendarException
	err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND calendar_date = ?", doctorID, date).
		Order("created_at DESC").
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *GormScheduleRepository) ListExceptionsByYear(ctx context.Context, doctorID uuid.UUID, year int) ([]model.CalendarException, error) {
	from, _ := model.ParseDate(formatYearStart(year))
	to, _ := model.ParseDate(formatYearEnd(year))

	var exceptions []model.CalendarException
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Where("calendar_date >= ? AND calendar_date <= ?", from, to).
		Order("calendar_date ASC").
		Find(&exceptions).Error
	if err != nil {
		return nil, err
	}
	return exceptions, nil
}

func (r *GormScheduleRepository) UpsertException(ctx context.Context, e *model.CalendarException) error {
	var existing model.CalendarException
	tx := r.db.WithContext(ctx).
		Where("doctor_id = ? AND calendar_date = ?", e.DoctorID, e.CalendarDate).
		Order("created_at DESC").
		First(&existing)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return r.db.WithContext(ctx).Create(e).Error
		}
		return tx.Error
	}

	if err := r.db.WithContext(ctx).
		Model(&model.CalendarException{}).
		Where("id = ?", existing.ID).
		Updates(map[string]any{"is_working": e.IsWorking, "note": e.Note}).Error; err != nil {
		return err
	}
	e.ID = existing.ID
	e.CreatedAt = existing.CreatedAt
	return nil
}

func (r *GormScheduleRepository) BulkSetExceptions(ctx context.Context, doctorID uuid.UUID, dates []datatypes.Date, isWorking bool) (int, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, date := range dates {
			res := tx.Model(&model.CalendarException{}).
				Where("doctor_id = ? AND calendar_date = ?", doctorID, date).
				Update("is_working", isWorking)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				continue
			}
			e := model.CalendarException{
				ID:           uuid.New(),
				DoctorID:     doctorID,
				CalendarDate: date,
				IsWorking:    isWorking,
			}
			if err := tx.Create(&e).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(dates), nil
}

func formatYearStart(year int) string {
	return fmt.Sprintf("%04d-01-01", year)
}

func formatYearEnd(year int) string {
	return fmt.Sprintf("%04d-12-31", year)
}
