package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/polyclinic/appointment-core/internal/model"
)

// AppointmentRepository — авторитетное хранилище записей на приём.
// Атомарность "проверить и занять слот" здесь не обеспечивается —
// это забота booking-сервиса и его транзакций.
type AppointmentRepository interface {
	// Создать запись.
	Create(ctx context.Context, appt *model.Appointment) error
	// Получить запись по ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	// Обновить статус записи; completedAt задаётся при завершении.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, completedAt *time.Time) error
	// Записи врача за интервал дат с пагинацией, врач подгружается.
	ListByDoctorAndRange(ctx context.Context, doctorID uuid.UUID, from, to datatypes.Date, limit, offset int) ([]model.Appointment, int64, error)
	// Занятые времена врача на дату: статусы scheduled и completed.
	ListOccupiedTimes(ctx context.Context, doctorID uuid.UUID, date datatypes.Date) ([]string, error)
	// Копия репозитория, привязанная к транзакции.
	WithTx(tx *gorm.DB) AppointmentRepository
}

// Реализация на GORM.
type GormAppointmentRepository struct {
	db *gorm.DB
}

func NewGormAppointmentRepository(db *gorm.DB) *GormAppointmentRepository {
	return &GormAppointmentRepository{db: db}
}

func (r *GormAppointmentRepository) WithTx(tx *gorm.DB) AppointmentRepository {
	return &GormAppointmentRepository{db: tx}
}

func (r *GormAppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	return r.db.WithContext(ctx).Create(appt).Error
}

func (r *GormAppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var a model.Appointment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormAppointmentRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status model.AppointmentStatus,
	completedAt *time.Time,
) error {
	update := map[string]any{
		"status": status,
	}
	if completedAt != nil {
		update["completed_at"] = *completedAt
	}
	return r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("id = ?", id).
		Updates(update).
		Error
}

func (r *GormAppointmentRepository) ListByDoctorAndRange(
	ctx context.Context,
	doctorID uuid.UUID,
	from, to datatypes.Date,
	limit, offset int,
) ([]model.Appointment, int64, error) {
	var (
		appointments []model.Appointment
		total        int64
	)

	q := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("doctor_id = ?", doctorID).
		Where("appointment_date >= ? AND appointment_date <= ?", from, to)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	err := q.Preload("Doctor").
		Order("appointment_date DESC, appointment_time DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, 0, err
	}

	return appointments, total, nil
}

func (r *GormAppointmentRepository) ListOccupiedTimes(
	ctx context.Context,
	doctorID uuid.UUID,
	date datatypes.Date,
) ([]string, error) {
	var times []string
	err := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("doctor_id = ? AND appointment_date = ?", doctorID, date).
		Where("status IN ?", model.ActiveStatuses).
		Pluck("appointment_time", &times).Error
	if err != nil {
		return nil, err
	}
	return times, nil
}
