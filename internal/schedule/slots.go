package schedule

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidClock  = errors.New("invalid clock value, want HH:MM")
	ErrSlotDuration  = errors.New("slot duration must be positive")
	ErrInvalidWindow = errors.New("schedule end must be after start")
)

// ParseClock разбирает "HH:MM" в минуты от начала суток.
// Часовые пояса не участвуют: время трактуется как локальное время врача.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, ok1 := twoDigits(s[0], s[1])
	m, ok2 := twoDigits(s[3], s[4])
	if !ok1 || !ok2 || h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return h*60 + m, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// FormatClock — обратная операция к ParseClock.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Slots разворачивает эффективное расписание в упорядоченный список
// свободных стартов "HH:MM": шаг SlotDuration минут от StartTime, строго
// меньше EndTime, минуя перерыв [BreakStart, BreakEnd) и занятые времена.
// Результат пересчитывается на каждый вызов — занятость меняется.
func Slots(es EffectiveSchedule, occupied map[string]struct{}) ([]string, error) {
	if es.SlotDuration <= 0 {
		return nil, ErrSlotDuration
	}

	start, err := ParseClock(es.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(es.EndTime)
	if err != nil {
		return nil, err
	}
	if end <= start {
		return nil, fmt.Errorf("%w: %s..%s", ErrInvalidWindow, es.StartTime, es.EndTime)
	}

	breakStart, breakEnd := -1, -1
	if es.BreakStart != "" && es.BreakEnd != "" {
		if breakStart, err = ParseClock(es.BreakStart); err != nil {
			return nil, err
		}
		if breakEnd, err = ParseClock(es.BreakEnd); err != nil {
			return nil, err
		}
	}

	slots := make([]string, 0, (end-start)/es.SlotDuration)
	for cur := start; cur < end; cur += es.SlotDuration {
		if breakStart >= 0 && cur >= breakStart && cur < breakEnd {
			continue
		}
		clock := FormatClock(cur)
		if _, taken := occupied[clock]; taken {
			continue
		}
		slots = append(slots, clock)
	}
	return slots, nil
}
