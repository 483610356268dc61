package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// doctor_schedules — недельный шаблон приёма.
// Ожидается одна активная запись на (doctor_id, day_of_week), но БД
// уникальность не навязывает: дубликаты разруливает резолвер.
type WeeklyTemplate struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	DoctorID uuid.UUID `gorm:"type:uuid;not null;index"`

	// 0 = воскресенье … 6 = суббота, как в time.Weekday.
	DayOfWeek int `gorm:"not null;index"`

	// Время в виде "HH:MM", арифметика — в минутах от начала суток.
	StartTime      string `gorm:"type:varchar(5);not null"`
	EndTime        string `gorm:"type:varchar(5);not null"`
	BreakStartTime string `gorm:"type:varchar(5)"`
	BreakEndTime   string `gorm:"type:varchar(5)"`

	// Длительность слота в минутах.
	SlotDuration int `gorm:"not null;default:15"`

	IsActive bool `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Doctor *Doctor `gorm:"foreignKey:DoctorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// daily_schedules — расписание на конкретную дату.
// При наличии активной записи перекрывает недельный шаблон.
type DailyOverride struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	DoctorID uuid.UUID `gorm:"type:uuid;not null;index"`

	ScheduleDate datatypes.Date `gorm:"type:date;not null;index"`

	StartTime      string `gorm:"type:varchar(5);not null"`
	EndTime        string `gorm:"type:varchar(5);not null"`
	BreakStartTime string `gorm:"type:varchar(5)"`
	BreakEndTime   string `gorm:"type:varchar(5)"`

	SlotDuration int `gorm:"not null;default:15"`

	IsActive bool `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Doctor *Doctor `gorm:"foreignKey:DoctorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// doctor_calendar — календарные исключения.
// is_working = false гасит день целиком, что бы ни говорили шаблоны.
type CalendarException struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	DoctorID uuid.UUID `gorm:"type:uuid;not null;index"`

	CalendarDate datatypes.Date `gorm:"type:date;not null;index"`

	IsWorking bool   `gorm:"not null;default:true"`
	Note      string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Doctor *Doctor `gorm:"foreignKey:DoctorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
