package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

const dateLayout = "2006-01-02"

// ParseDate разбирает дату вида "2025-01-13" в datatypes.Date.
// Всегда полночь UTC, чтобы сравнения по равенству были детерминированными
// на любом драйвере.
func ParseDate(s string) (datatypes.Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return datatypes.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return datatypes.Date(t), nil
}

// FormatDate — обратная операция к ParseDate.
func FormatDate(d datatypes.Date) string {
	return time.Time(d).Format(dateLayout)
}

// Weekday возвращает день недели даты: 0 = воскресенье … 6 = суббота.
func Weekday(d datatypes.Date) int {
	return int(time.Time(d).Weekday())
}
