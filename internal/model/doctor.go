package model

import (
	"time"

	"github.com/google/uuid"
)

// doctors
type Doctor struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	FullName       string `gorm:"type:varchar(255);not null"`
	Specialization string `gorm:"type:varchar(255)"`

	IsActive bool `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	// Навигационные поля (опционально, но удобно для Preload).
	Templates  []WeeklyTemplate    `gorm:"foreignKey:DoctorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Overrides  []DailyOverride     `gorm:"foreignKey:DoctorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Exceptions []CalendarException `gorm:"foreignKey:DoctorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
