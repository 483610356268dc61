package schedule

import (
	"sort"

	"github.com/polyclinic/appointment-core/internal/model"
)

// EffectiveSchedule — рабочее окно врача на одну дату после применения
// приоритетов: исключение календаря > дневное расписание > недельный шаблон.
type EffectiveSchedule struct {
	StartTime    string
	EndTime      string
	BreakStart   string // пустая строка — перерыва нет
	BreakEnd     string
	SlotDuration int // минуты
}

// Result — размеченный результат резолва. Working = false означает
// "врач в этот день не принимает": это нормальный исход, не ошибка.
type Result struct {
	Working  bool
	Schedule EffectiveSchedule
}

// NoSchedule — врач не работает в запрошенную дату.
func NoSchedule() Result {
	return Result{}
}

// Resolve сводит три источника расписания в один.
// На вход подаются уже отобранные по врачу и дате строки:
// exception — исключение на эту дату (nil, если нет), overrides — дневные
// расписания этой даты, templates — недельные шаблоны этого дня недели.
// Дубликаты разрешаются детерминированно: берётся последняя созданная
// активная запись (created_at, при равенстве — id).
func Resolve(
	exception *model.CalendarException,
	overrides []model.DailyOverride,
	templates []model.WeeklyTemplate,
) Result {
	if exception != nil && !exception.IsWorking {
		return NoSchedule()
	}

	if o := latestOverride(overrides); o != nil {
		return Result{
			Working: true,
			Schedule: EffectiveSchedule{
				StartTime:    o.StartTime,
				EndTime:      o.EndTime,
				BreakStart:   o.BreakStartTime,
				BreakEnd:     o.BreakEndTime,
				SlotDuration: o.SlotDuration,
			},
		}
	}

	if t := latestTemplate(templates); t != nil {
		return Result{
			Working: true,
			Schedule: EffectiveSchedule{
				StartTime:    t.StartTime,
				EndTime:      t.EndTime,
				BreakStart:   t.BreakStartTime,
				BreakEnd:     t.BreakEndTime,
				SlotDuration: t.SlotDuration,
			},
		}
	}

	return NoSchedule()
}

func latestOverride(overrides []model.DailyOverride) *model.DailyOverride {
	active := make([]model.DailyOverride, 0, len(overrides))
	for _, o := range overrides {
		if o.IsActive {
			active = append(active, o)
		}
	}
	if len(active) == 0 {
		return nil
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.After(active[j].CreatedAt)
		}
		return active[i].ID.String() > active[j].ID.String()
	})
	return &active[0]
}

func latestTemplate(templates []model.WeeklyTemplate) *model.WeeklyTemplate {
	active := make([]model.WeeklyTemplate, 0, len(templates))
	for _, t := range templates {
		if t.IsActive {
			active = append(active, t)
		}
	}
	if len(active) == 0 {
		return nil
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.After(active[j].CreatedAt)
		}
		return active[i].ID.String() > active[j].ID.String()
	})
	return &active[0]
}
