package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/polyclinic/appointment-core/internal/cache"
	"github.com/polyclinic/appointment-core/internal/model"
	"github.com/polyclinic/appointment-core/internal/repository"
	"github.com/polyclinic/appointment-core/internal/schedule"
)

// PatientData — данные пациента при бронировании.
type PatientData struct {
	Name        string
	Phone       string
	SNILS       string
	OMS         string
	Description string
}

// Service — ядро бронирования: выдача свободных слотов, защита от гонок
// за слот и машина статусов записи.
//
// Сериализация нужна только связке "проверить-и-занять" внутри
// транзакции; арбитром гонки служит частичный уникальный индекс
// uq_appointments_active_slot. Остальные чтения идут без блокировок.
type Service struct {
	db        *gorm.DB
	appts     repository.AppointmentRepository
	schedules repository.ScheduleRepository
	doctors   repository.DoctorRepository
	cache     cache.Availability
	log       *zap.Logger
}

func NewService(
	db *gorm.DB,
	appts repository.AppointmentRepository,
	schedules repository.ScheduleRepository,
	doctors repository.DoctorRepository,
	availability cache.Availability,
	log *zap.Logger,
) *Service {
	return &Service{
		db:        db,
		appts:     appts,
		schedules: schedules,
		doctors:   doctors,
		cache:     availability,
		log:       log,
	}
}

// AvailableSlots возвращает упорядоченные свободные времена врача на дату.
// Пустой список — нормальный исход ("врач не принимает"), не ошибка.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date datatypes.Date) ([]string, error) {
	dateKey := model.FormatDate(date)
	if slots, ok := s.cache.Get(ctx, doctorID.String(), dateKey); ok {
		return slots, nil
	}

	exception, err := s.schedules.GetExceptionForDate(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	overrides, err := s.schedules.ListOverridesForDate(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	templates, err := s.schedules.ListTemplatesForWeekday(ctx, doctorID, model.Weekday(date))
	if err != nil {
		return nil, err
	}

	res := schedule.Resolve(exception, overrides, templates)
	if !res.Working {
		empty := []string{}
		s.cache.Set(ctx, doctorID.String(), dateKey, empty)
		return empty, nil
	}

	occupiedTimes, err := s.appts.ListOccupiedTimes(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	occupied := make(map[string]struct{}, len(occupiedTimes))
	for _, t := range occupiedTimes {
		occupied[t] = struct{}{}
	}

	slots, err := schedule.Slots(res.Schedule, occupied)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, doctorID.String(), dateKey, slots)
	return slots, nil
}

// Book атомарно проверяет слот и создаёт запись со статусом scheduled.
// Проигранная гонка — ErrSlotConflict без частичной записи; вызывающий
// перечитывает слоты и пробует другой.
func (s *Service) Book(
	ctx context.Context,
	doctorID uuid.UUID,
	date datatypes.Date,
	clock string,
	patient PatientData,
) (*model.Appointment, error) {
	if _, err := schedule.ParseClock(clock); err != nil {
		return nil, newValidationError("time", "время должно быть в формате HH:MM")
	}
	if err := ValidatePatientName(patient.Name); err != nil {
		return nil, err
	}
	if _, err := s.doctors.GetByID(ctx, doctorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	appt := &model.Appointment{
		ID:              uuid.New(),
		DoctorID:        doctorID,
		PatientName:     patient.Name,
		PatientPhone:    patient.Phone,
		PatientSNILS:    patient.SNILS,
		PatientOMS:      patient.OMS,
		AppointmentDate: date,
		AppointmentTime: clock,
		Description:     patient.Description,
		Status:          model.AppointmentStatusScheduled,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := slotTaken(ctx, tx, doctorID, date, clock)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotConflict
		}
		if err := s.appts.WithTx(tx).Create(ctx, appt); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSlotConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, doctorID.String(), model.FormatDate(date))
	s.log.Info("appointment booked",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("doctor_id", doctorID.String()),
		zap.String("date", model.FormatDate(date)),
		zap.String("time", clock),
	)
	return appt, nil
}

// Complete переводит запись scheduled → completed. Слот при этом занят
// навсегда: освобождает его только отмена.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	now := time.Now().UTC()
	appt, err := s.transition(ctx, id, model.AppointmentStatusCompleted, &now)
	if err != nil {
		return nil, err
	}
	s.log.Info("appointment completed", zap.String("appointment_id", id.String()))
	return appt, nil
}

// Cancel переводит запись scheduled → cancelled и освобождает слот.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.transition(ctx, id, model.AppointmentStatusCancelled, nil)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, appt.DoctorID.String(), model.FormatDate(appt.AppointmentDate))
	s.log.Info("appointment cancelled", zap.String("appointment_id", id.String()))
	return appt, nil
}

// transition — CAS-переход scheduled → status. Обновление с условием по
// текущему статусу закрывает гонку двух одновременных переходов.
func (s *Service) transition(
	ctx context.Context,
	id uuid.UUID,
	status model.AppointmentStatus,
	completedAt *time.Time,
) (*model.Appointment, error) {
	var appt *model.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := map[string]any{"status": status}
		if completedAt != nil {
			update["completed_at"] = *completedAt
		}
		res := tx.Model(&model.Appointment{}).
			Where("id = ? AND status = ?", id, model.AppointmentStatusScheduled).
			Updates(update)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Либо записи нет, либо она уже не scheduled.
			var cur model.Appointment
			if err := tx.First(&cur, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrAppointmentNotFound
				}
				return err
			}
			return ErrInvalidTransition
		}

		var updated model.Appointment
		if err := tx.First(&updated, "id = ?", id).Error; err != nil {
			return err
		}
		appt = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// Reschedule — атомарная пара "отменить и создать". Обе операции живут в
// одной транзакции: если новый слот занят, отмена откатывается и исходная
// запись остаётся scheduled. Наблюдатель никогда не увидит пациента без
// единой активной записи.
func (s *Service) Reschedule(
	ctx context.Context,
	id uuid.UUID,
	newDate datatypes.Date,
	newClock string,
) (oldAppt, newAppt *model.Appointment, err error) {
	if _, err := schedule.ParseClock(newClock); err != nil {
		return nil, nil, newValidationError("time", "время должно быть в формате HH:MM")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var src model.Appointment
		if err := tx.First(&src, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAppointmentNotFound
			}
			return err
		}

		res := tx.Model(&model.Appointment{}).
			Where("id = ? AND status = ?", id, model.AppointmentStatusScheduled).
			Update("status", model.AppointmentStatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}

		taken, err := slotTaken(ctx, tx, src.DoctorID, newDate, newClock)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotConflict
		}

		replacement := model.Appointment{
			ID:              uuid.New(),
			DoctorID:        src.DoctorID,
			PatientName:     src.PatientName,
			PatientPhone:    src.PatientPhone,
			PatientSNILS:    src.PatientSNILS,
			PatientOMS:      src.PatientOMS,
			AppointmentDate: newDate,
			AppointmentTime: newClock,
			Description:     src.Description,
			Status:          model.AppointmentStatusScheduled,
		}
		if err := tx.Create(&replacement).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSlotConflict
			}
			return err
		}

		var cancelled model.Appointment
		if err := tx.First(&cancelled, "id = ?", id).Error; err != nil {
			return err
		}
		oldAppt = &cancelled
		newAppt = &replacement
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.cache.Invalidate(ctx, oldAppt.DoctorID.String(), model.FormatDate(oldAppt.AppointmentDate))
	s.cache.Invalidate(ctx, newAppt.DoctorID.String(), model.FormatDate(newDate))
	s.log.Info("appointment rescheduled",
		zap.String("old_id", oldAppt.ID.String()),
		zap.String("new_id", newAppt.ID.String()),
		zap.String("new_date", model.FormatDate(newDate)),
		zap.String("new_time", newClock),
	)
	return oldAppt, newAppt, nil
}

// Clone создаёт новую запись с данными пациента из исходной — повторный
// приём. Статус и дата исходной записи не меняются; исходная может быть
// в любом статусе. Новая запись проходит обычную защиту от гонок.
func (s *Service) Clone(
	ctx context.Context,
	id uuid.UUID,
	newDate datatypes.Date,
	newClock string,
	description *string,
) (*model.Appointment, error) {
	src, err := s.appts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	desc := src.Description
	if description != nil {
		desc = *description
	}

	return s.Book(ctx, src.DoctorID, newDate, newClock, PatientData{
		Name:        src.PatientName,
		Phone:       src.PatientPhone,
		SNILS:       src.PatientSNILS,
		OMS:         src.PatientOMS,
		Description: desc,
	})
}

// Get возвращает запись по ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.appts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return appt, nil
}

// List — записи врача за интервал дат с пагинацией.
func (s *Service) List(
	ctx context.Context,
	doctorID uuid.UUID,
	from, to datatypes.Date,
	limit, offset int,
) ([]model.Appointment, int64, error) {
	return s.appts.ListByDoctorAndRange(ctx, doctorID, from, to, limit, offset)
}

// slotTaken проверяет занятость слота внутри транзакции вызывающего.
// Финальное слово в любом случае за уникальным индексом: проверка лишь
// делает конфликт быстрым и явным.
func slotTaken(ctx context.Context, tx *gorm.DB, doctorID uuid.UUID, date datatypes.Date, clock string) (bool, error) {
	var n int64
	err := tx.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("doctor_id = ? AND appointment_date = ? AND appointment_time = ?", doctorID, date, clock).
		Where("status IN ?", model.ActiveStatuses).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
