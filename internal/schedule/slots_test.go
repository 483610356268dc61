package schedule

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseClock_Valid(t *testing.T) {
	cases := map[string]int{
		"00:00": 0,
		"09:00": 540,
		"10:30": 630,
		"23:59": 1439,
	}
	for in, want := range cases {
		got, err := ParseClock(in)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseClock(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseClock_Invalid(t *testing.T) {
	for _, in := range []string{"", "9:00", "24:00", "10:60", "10-30", "ab:cd"} {
		if _, err := ParseClock(in); !errors.Is(err, ErrInvalidClock) {
			t.Fatalf("ParseClock(%q): expected ErrInvalidClock, got %v", in, err)
		}
	}
}

func TestFormatClock_RoundTrip(t *testing.T) {
	for _, clock := range []string{"00:00", "09:30", "15:45", "23:59"} {
		m, err := ParseClock(clock)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", clock, err)
		}
		if got := FormatClock(m); got != clock {
			t.Fatalf("FormatClock(ParseClock(%q)) = %q", clock, got)
		}
	}
}

// Сценарий из расписания регистратуры: понедельник 09:00–12:00,
// слот 30 минут, перерыв 10:00–10:30, занятых времён нет.
func TestSlots_WithBreak(t *testing.T) {
	es := EffectiveSchedule{
		StartTime:    "09:00",
		EndTime:      "12:00",
		BreakStart:   "10:00",
		BreakEnd:     "10:30",
		SlotDuration: 30,
	}

	slots, err := Slots(es, nil)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}

	want := []string{"09:00", "09:30", "10:30", "11:00", "11:30"}
	if !reflect.DeepEqual(slots, want) {
		t.Fatalf("slots = %v, want %v", slots, want)
	}
}

func TestSlots_SkipsOccupied(t *testing.T) {
	es := EffectiveSchedule{
		StartTime:    "09:00",
		EndTime:      "10:00",
		SlotDuration: 15,
	}
	occupied := map[string]struct{}{
		"09:15": {},
		"09:45": {},
	}

	slots, err := Slots(es, occupied)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}

	want := []string{"09:00", "09:30"}
	if !reflect.DeepEqual(slots, want) {
		t.Fatalf("slots = %v, want %v", slots, want)
	}
	for _, s := range slots {
		if _, taken := occupied[s]; taken {
			t.Fatalf("occupied time %s leaked into free slots", s)
		}
	}
}

func TestSlots_EndExclusive(t *testing.T) {
	es := EffectiveSchedule{
		StartTime:    "09:00",
		EndTime:      "09:30",
		SlotDuration: 30,
	}

	slots, err := Slots(es, nil)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if !reflect.DeepEqual(slots, []string{"09:00"}) {
		t.Fatalf("slots = %v, want [09:00]", slots)
	}
}

func TestSlots_NoSlotFallsInsideBreak(t *testing.T) {
	es := EffectiveSchedule{
		StartTime:    "08:00",
		EndTime:      "13:00",
		BreakStart:   "10:00",
		BreakEnd:     "11:00",
		SlotDuration: 20,
	}

	slots, err := Slots(es, nil)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}

	bs, _ := ParseClock(es.BreakStart)
	be, _ := ParseClock(es.BreakEnd)
	for _, s := range slots {
		m, err := ParseClock(s)
		if err != nil {
			t.Fatalf("generated slot %q is not a clock value: %v", s, err)
		}
		if m >= bs && m < be {
			t.Fatalf("slot %s falls inside break [%s, %s)", s, es.BreakStart, es.BreakEnd)
		}
	}
}

func TestSlots_InvalidDuration(t *testing.T) {
	es := EffectiveSchedule{StartTime: "09:00", EndTime: "12:00"}
	if _, err := Slots(es, nil); !errors.Is(err, ErrSlotDuration) {
		t.Fatalf("expected ErrSlotDuration, got %v", err)
	}
}

func TestSlots_InvalidWindow(t *testing.T) {
	es := EffectiveSchedule{StartTime: "12:00", EndTime: "09:00", SlotDuration: 30}
	if _, err := Slots(es, nil); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}
