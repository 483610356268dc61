package booking

import (
	"errors"
	"fmt"
)

// Ошибки жизненного цикла записи. SlotConflict — проигранная гонка за
// слот: вызывающий перечитывает свободные слоты и повторяет выбор, ядро
// само ничего не ретраит. Всё остальное ретраить бессмысленно.
var (
	ErrSlotConflict        = errors.New("slot is already booked")
	ErrInvalidTransition   = errors.New("invalid appointment status transition")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
)

// ValidationError — отказ входной валидации. Rule называет нарушенное
// правило, чтобы клиент мог показать конкретную подсказку.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Rule, e.Message)
}

func newValidationError(rule, message string) *ValidationError {
	return &ValidationError{Rule: rule, Message: message}
}

// AsValidationError — удобный помощник для маппинга в транспорте.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
