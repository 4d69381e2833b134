package domain

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DailyWindow is a working window in the trainer's local wall-clock time.
type DailyWindow struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
}

// WeeklyAvailability maps a weekday to its single working window. A missing entry means unavailable.
type WeeklyAvailability map[time.Weekday]DailyWindow

type TrainerSettings struct {
	bun.BaseModel `bun:"table:trainer_settings"`

	TrainerID             string             `bun:"trainer_id,pk"`
	Timezone              string             `bun:"timezone,notnull"`
	WorkingDays           []int16            `bun:"working_days,array,notnull"`
	WorkingHours          WeeklyAvailability `bun:"working_hours,type:jsonb,notnull"`
	SlotDurationMinutes   int                `bun:"slot_duration_minutes,notnull"`
	DefaultServiceMinutes int                `bun:"default_service_minutes,notnull"`
	BufferMinutes         int                `bun:"buffer_minutes,notnull"`
	MinLeadTimeMinutes    int                `bun:"min_lead_time_minutes,notnull"`
	OffMode               bool               `bun:"off_mode,notnull"`
	CreatedAt             time.Time          `bun:"created_at,notnull"`
	UpdatedAt             time.Time          `bun:"updated_at,notnull"`
}

func (s *TrainerSettings) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}

// Validate checks the settings and normalizes WorkingDays (deduplicated, sorted).
func (s *TrainerSettings) Validate() error {
	if strings.TrimSpace(s.TrainerID) == "" {
		return errors.New("trainer_id is required")
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil || strings.TrimSpace(s.Timezone) == "" {
		return errors.New("invalid time_zone")
	}

	seen := make(map[int16]struct{}, len(s.WorkingDays))
	days := make([]int16, 0, len(s.WorkingDays))
	for _, d := range s.WorkingDays {
		if d < 0 || d > 6 {
			return errors.New("invalid working day")
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	s.WorkingDays = days

	for wd, w := range s.WorkingHours {
		if wd < time.Sunday || wd > time.Saturday {
			return errors.New("invalid working hours weekday")
		}
		if !w.Start.Valid() || !w.End.Valid() {
			return errors.New("invalid working hours time")
		}
		if w.Start >= w.End {
			return errors.New("working hours end must be after start")
		}
	}

	if s.SlotDurationMinutes <= 0 || s.SlotDurationMinutes > 240 {
		return errors.New("slot_duration must be between 1 and 240 minutes")
	}
	if s.DefaultServiceMinutes <= 0 {
		return errors.New("default_service_duration must be positive")
	}
	if s.BufferMinutes < 0 {
		return errors.New("buffer_minutes must not be negative")
	}
	if s.MinLeadTimeMinutes < 0 {
		return errors.New("min_lead_time must not be negative")
	}
	return nil
}

func (s TrainerSettings) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, errors.New("invalid time_zone")
	}
	return loc, nil
}

// Window resolves the working window for weekday. The day must be a working day and carry hours.
func (s TrainerSettings) Window(weekday time.Weekday) (DailyWindow, bool) {
	working := false
	for _, d := range s.WorkingDays {
		if time.Weekday(d) == weekday {
			working = true
			break
		}
	}
	if !working {
		return DailyWindow{}, false
	}
	w, ok := s.WorkingHours[weekday]
	return w, ok
}

// TimeOff is a blanket exclusion over one or more days.
type TimeOff struct {
	bun.BaseModel `bun:"table:time_off"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	TrainerID string    `bun:"trainer_id,notnull"`
	StartDate time.Time `bun:"start_date,type:date,notnull"`
	EndDate   time.Time `bun:"end_date,type:date,notnull"`
	AllDay    bool      `bun:"all_day,notnull"`
	StartTime ClockTime `bun:"start_time,type:varchar(5),notnull"`
	EndTime   ClockTime `bun:"end_time,type:varchar(5),notnull"`
	Note      string    `bun:"note"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (t *TimeOff) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if t.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			t.ID = id
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}

func (t TimeOff) Validate() error {
	if t.TrainerID == "" {
		return errors.New("trainer_id is required")
	}
	if t.StartDate.IsZero() || t.EndDate.IsZero() {
		return errors.New("start_date and end_date are required")
	}
	if NormalizeDate(t.EndDate).Before(NormalizeDate(t.StartDate)) {
		return errors.New("end_date must not be before start_date")
	}
	if t.AllDay {
		return nil
	}
	if !t.StartTime.Valid() || !t.EndTime.Valid() {
		return errors.New("invalid time of day")
	}
	if NormalizeDate(t.StartDate).Equal(NormalizeDate(t.EndDate)) && t.StartTime >= t.EndTime {
		return errors.New("end_time must be after start_time")
	}
	return nil
}

// Interval is the occupied range in loc. All-day entries cover whole days inclusive.
func (t TimeOff) Interval(loc *time.Location) Interval {
	if t.AllDay {
		return Interval{
			Start: DayBounds(t.StartDate, loc).Start,
			End:   DayBounds(t.EndDate, loc).End,
		}
	}
	return Interval{
		Start: At(t.StartDate, t.StartTime, loc),
		End:   At(t.EndDate, t.EndTime, loc),
	}
}

// Dates lists the calendar dates the entry touches.
func (t TimeOff) Dates() []time.Time {
	return DatesBetween(t.StartDate, t.EndDate)
}

// ManualBlock is a single-day ad hoc occupancy such as a lunch break.
type ManualBlock struct {
	bun.BaseModel `bun:"table:manual_blocks"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	TrainerID string    `bun:"trainer_id,notnull"`
	Title     string    `bun:"title,notnull"`
	Date      time.Time `bun:"date,type:date,notnull"`
	StartTime ClockTime `bun:"start_time,type:varchar(5),notnull"`
	EndTime   ClockTime `bun:"end_time,type:varchar(5),notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (b *ManualBlock) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}

func (b ManualBlock) Validate() error {
	if b.TrainerID == "" {
		return errors.New("trainer_id is required")
	}
	if strings.TrimSpace(b.Title) == "" {
		return errors.New("title is required")
	}
	if b.Date.IsZero() {
		return errors.New("date is required")
	}
	if !b.StartTime.Valid() || !b.EndTime.Valid() {
		return errors.New("invalid time of day")
	}
	if b.StartTime >= b.EndTime {
		return errors.New("end_time must be after start_time")
	}
	return nil
}

func (b ManualBlock) Interval(loc *time.Location) Interval {
	return Interval{
		Start: At(b.Date, b.StartTime, loc),
		End:   At(b.Date, b.EndTime, loc),
	}
}
