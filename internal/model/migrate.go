package model

import "gorm.io/gorm"

// AutoMigrate выполняет миграцию всех сущностей календарного ядра.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Doctor{},
		&WeeklyTemplate{},
		&DailyOverride{},
		&CalendarException{},
		&Appointment{},
	); err != nil {
		return err
	}

	// Частичный уникальный индекс — арбитр гонок за слот: среди записей
	// со статусами scheduled/completed пара (врач, дата, время) уникальна.
	// Отменённые записи слот не держат и под индекс не попадают.
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_appointments_active_slot
		 ON appointments (doctor_id, appointment_date, appointment_time)
		 WHERE status IN ('scheduled', 'completed')`,
	).Error
}
