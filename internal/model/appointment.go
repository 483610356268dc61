package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// ActiveStatuses — статусы, при которых запись занимает слот.
// Отменённая запись слот освобождает, завершённая — нет.
var ActiveStatuses = []AppointmentStatus{
	AppointmentStatusScheduled,
	AppointmentStatusCompleted,
}

// appointments
type Appointment struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	DoctorID uuid.UUID `gorm:"type:uuid;not null;index"`

	PatientName  string `gorm:"type:varchar(255);not null"`
	PatientPhone string `gorm:"type:varchar(32);not null"`
	PatientSNILS string `gorm:"type:varchar(32)"`
	PatientOMS   string `gorm:"type:varchar(32)"`

	AppointmentDate datatypes.Date `gorm:"type:date;not null;index"`
	AppointmentTime string         `gorm:"type:varchar(5);not null"`

	Description string `gorm:"type:text"`

	Status AppointmentStatus `gorm:"type:varchar(16);not null;default:'scheduled';index"`

	CreatedAt   time.Time  `gorm:"not null;default:now()"`
	UpdatedAt   time.Time  `gorm:"not null;default:now()"`
	CompletedAt *time.Time `gorm:"type:timestamp with time zone"`

	Doctor *Doctor `gorm:"foreignKey:DoctorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// IsActive сообщает, занимает ли запись свой слот.
func (a *Appointment) IsActive() bool {
	return a.Status == AppointmentStatusScheduled || a.Status == AppointmentStatusCompleted
}
