package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/polyclinic/appointment-core/internal/model"
)

func tmpl(created time.Time, active bool, start, end string) model.WeeklyTemplate {
	return model.WeeklyTemplate{
		ID:           uuid.New(),
		StartTime:    start,
		EndTime:      end,
		SlotDuration: 30,
		IsActive:     active,
		CreatedAt:    created,
	}
}

func override(created time.Time, active bool, start, end string) model.DailyOverride {
	return model.DailyOverride{
		ID:           uuid.New(),
		StartTime:    start,
		EndTime:      end,
		SlotDuration: 20,
		IsActive:     active,
		CreatedAt:    created,
	}
}

func TestResolve_ExceptionWinsOverEverything(t *testing.T) {
	exc := &model.CalendarException{IsWorking: false, Note: "отпуск"}
	now := time.Now()

	res := Resolve(exc,
		[]model.DailyOverride{override(now, true, "10:00", "14:00")},
		[]model.WeeklyTemplate{tmpl(now, true, "09:00", "18:00")},
	)
	if res.Working {
		t.Fatalf("expected NoSchedule when is_working=false, got %+v", res)
	}
}

func TestResolve_WorkingExceptionFallsThrough(t *testing.T) {
	exc := &model.CalendarException{IsWorking: true}
	now := time.Now()

	res := Resolve(exc, nil, []model.WeeklyTemplate{tmpl(now, true, "09:00", "18:00")})
	if !res.Working {
		t.Fatalf("expected template schedule, got NoSchedule")
	}
	if res.Schedule.StartTime != "09:00" || res.Schedule.EndTime != "18:00" {
		t.Fatalf("unexpected schedule %+v", res.Schedule)
	}
}

func TestResolve_OverrideBeatsTemplate(t *testing.T) {
	now := time.Now()

	res := Resolve(nil,
		[]model.DailyOverride{override(now, true, "10:00", "14:00")},
		[]model.WeeklyTemplate{tmpl(now, true, "09:00", "18:00")},
	)
	if !res.Working {
		t.Fatalf("expected override schedule, got NoSchedule")
	}
	if res.Schedule.StartTime != "10:00" || res.Schedule.SlotDuration != 20 {
		t.Fatalf("expected override to win, got %+v", res.Schedule)
	}
}

func TestResolve_InactiveOverrideIgnored(t *testing.T) {
	now := time.Now()

	res := Resolve(nil,
		[]model.DailyOverride{override(now, false, "10:00", "14:00")},
		[]model.WeeklyTemplate{tmpl(now, true, "09:00", "18:00")},
	)
	if !res.Working || res.Schedule.StartTime != "09:00" {
		t.Fatalf("expected fallback to template, got %+v", res)
	}
}

func TestResolve_DuplicateTemplatesLastCreatedWins(t *testing.T) {
	older := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)

	res := Resolve(nil, nil, []model.WeeklyTemplate{
		tmpl(older, true, "08:00", "16:00"),
		tmpl(newer, true, "09:00", "17:00"),
	})
	if !res.Working {
		t.Fatalf("expected schedule, got NoSchedule")
	}
	if res.Schedule.StartTime != "09:00" {
		t.Fatalf("expected last-created template to win, got %+v", res.Schedule)
	}
}

func TestResolve_DuplicateOverridesLastCreatedWins(t *testing.T) {
	older := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	res := Resolve(nil, []model.DailyOverride{
		override(older, true, "10:00", "12:00"),
		override(newer, true, "11:00", "13:00"),
	}, nil)
	if !res.Working || res.Schedule.StartTime != "11:00" {
		t.Fatalf("expected last-created override to win, got %+v", res)
	}
}

func TestResolve_NothingApplies(t *testing.T) {
	res := Resolve(nil, nil, nil)
	if res.Working {
		t.Fatalf("expected NoSchedule, got %+v", res)
	}

	res = Resolve(nil,
		[]model.DailyOverride{override(time.Now(), false, "10:00", "12:00")},
		[]model.WeeklyTemplate{tmpl(time.Now(), false, "09:00", "18:00")},
	)
	if res.Working {
		t.Fatalf("expected NoSchedule with only inactive rows, got %+v", res)
	}
}
