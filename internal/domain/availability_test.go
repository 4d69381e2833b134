package domain

import (
	"encoding/json"
	"slices"
	"testing"
	"time"
)

func TestTrainerSettingsValidate(t *testing.T) {
	base := TrainerSettings{
		TrainerID:   "t1",
		Timezone:    "Europe/Berlin",
		WorkingDays: []int16{3, 1, 3},
		WorkingHours: WeeklyAvailability{
			time.Monday: {Start: MustClockTime("09:00"), End: MustClockTime("17:00")},
		},
		SlotDurationMinutes:   30,
		DefaultServiceMinutes: 60,
	}

	s := base
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if !slices.Equal(s.WorkingDays, []int16{1, 3}) {
		t.Fatalf("working_days = %v, want [1 3]", s.WorkingDays)
	}

	tests := []struct {
		name    string
		mutate  func(s *TrainerSettings)
		wantErr string
	}{
		{name: "bad zone", mutate: func(s *TrainerSettings) { s.Timezone = "Not/AZone" }, wantErr: "invalid time_zone"},
		{name: "bad day", mutate: func(s *TrainerSettings) { s.WorkingDays = []int16{7} }, wantErr: "invalid working day"},
		{name: "inverted hours", mutate: func(s *TrainerSettings) {
			s.WorkingHours = WeeklyAvailability{time.Monday: {Start: MustClockTime("12:00"), End: MustClockTime("09:00")}}
		}, wantErr: "working hours end must be after start"},
		{name: "zero slot", mutate: func(s *TrainerSettings) { s.SlotDurationMinutes = 0 }, wantErr: "slot_duration must be between 1 and 240 minutes"},
		{name: "negative buffer", mutate: func(s *TrainerSettings) { s.BufferMinutes = -5 }, wantErr: "buffer_minutes must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			s.WorkingDays = slices.Clone(base.WorkingDays)
			tt.mutate(&s)
			err := s.Validate()
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestWeeklyAvailability_JSON(t *testing.T) {
	w := WeeklyAvailability{time.Tuesday: {Start: MustClockTime("07:30"), End: MustClockTime("11:00")}}
	b, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(b) != `{"2":{"start":"07:30","end":"11:00"}}` {
		t.Fatalf("json = %s", b)
	}
	var back WeeklyAvailability
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if back[time.Tuesday] != w[time.Tuesday] {
		t.Fatalf("round trip = %v, want %v", back, w)
	}
}

func TestTimeOffInterval(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}

	allDay := TimeOff{
		TrainerID: "t1",
		StartDate: time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
		AllDay:    true,
	}
	if err := allDay.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	iv := allDay.Interval(loc)
	if !iv.Start.Equal(time.Date(2026, 3, 7, 0, 0, 0, 0, loc)) || !iv.End.Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, loc)) {
		t.Fatalf("all-day interval = %v..%v", iv.Start, iv.End)
	}
	if got := len(allDay.Dates()); got != 2 {
		t.Fatalf("len(Dates) = %d, want 2", got)
	}

	timed := TimeOff{
		TrainerID: "t1",
		StartDate: time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
		StartTime: MustClockTime("13:00"),
		EndTime:   MustClockTime("15:30"),
	}
	if err := timed.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if got := timed.Interval(loc).Duration(); got != 150*time.Minute {
		t.Fatalf("timed duration = %v, want 2h30m", got)
	}

	timed.EndTime = MustClockTime("12:00")
	if err := timed.Validate(); err == nil {
		t.Fatalf("expected error for inverted same-day time off")
	}
}

func TestClockTime(t *testing.T) {
	c, err := ParseClockTime("07:05")
	if err != nil {
		t.Fatalf("ParseClockTime error: %v", err)
	}
	if c != 425 || c.String() != "07:05" {
		t.Fatalf("clock = %d %q", c, c.String())
	}
	if _, err := ParseClockTime("25:00"); err == nil {
		t.Fatalf("expected error")
	}
	var scanned ClockTime
	if err := scanned.Scan([]byte("18:45")); err != nil || scanned.String() != "18:45" {
		t.Fatalf("Scan = %v, %v", scanned, err)
	}
}
