package cron

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("@every 5m")
	if err != nil || d != 5*time.Minute {
		t.Errorf("got %v, %v", d, err)
	}
	if _, err := parseDuration("5m"); err == nil {
		t.Error("missing @every prefix should fail")
	}
	if _, err := parseDuration("@every nonsense"); err == nil {
		t.Error("bad duration should fail")
	}
	if _, err := parseDuration("@every 100ms"); err == nil {
		t.Error("sub-second interval should fail")
	}
}

func TestParseField(t *testing.T) {
	tests := []struct {
		field    string
		min, max int
		want     []int
		wantErr  bool
	}{
		{"*", 0, 3, []int{0, 1, 2, 3}, false},
		{"*/2", 0, 6, []int{0, 2, 4, 6}, false},
		{"1,3,5", 0, 59, []int{1, 3, 5}, false},
		{"10-14", 0, 59, []int{10, 11, 12, 13, 14}, false},
		{"10-20/5", 0, 59, []int{10, 15, 20}, false},
		{"61", 0, 59, nil, true},
		{"5-2", 0, 59, nil, true},
		{"a", 0, 59, nil, true},
		{"*/0", 0, 59, nil, true},
	}
	for _, tt := range tests {
		got, err := parseField(tt.field, tt.min, tt.max)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseField(%q): expected error", tt.field)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseField(%q): %v", tt.field, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parseField(%q) = %v, want %v", tt.field, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseField(%q) = %v, want %v", tt.field, got, tt.want)
				break
			}
		}
	}
}

func TestParseCronFields(t *testing.T) {
	if _, err := parseCronFields("0 9 * * *"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if _, err := parseCronFields("0 9 * *"); err == nil {
		t.Error("4 fields should fail")
	}
	if _, err := parseCronFields("99 9 * * *"); err == nil {
		t.Error("out-of-range minute should fail")
	}
}

func TestWeekdaySevenIsSunday(t *testing.T) {
	cf, err := parseCronFields("0 0 * * 7")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cf.daysOfWeek) != 1 || cf.daysOfWeek[0] != 0 {
		t.Errorf("daysOfWeek = %v", cf.daysOfWeek)
	}
}

func TestNextAfter(t *testing.T) {
	cf, err := parseCronFields("30 9 * * *")
	if err != nil {
		t.Fatal(err)
	}

	// Before today's 09:30: fires today.
	from := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	next := cf.nextAfter(from)
	want := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}

	// After today's 09:30: fires tomorrow.
	from = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	next = cf.nextAfter(from)
	want = time.Date(2025, 3, 11, 9, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}

	// Exactly at 09:30: strictly after, so tomorrow.
	from = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	next = cf.nextAfter(from)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestValidateSchedule(t *testing.T) {
	for _, good := range []string{"@every 30s", "0 9 * * 1-5", "*/15 * * * *"} {
		if err := ValidateSchedule(good); err != nil {
			t.Errorf("ValidateSchedule(%q): %v", good, err)
		}
	}
	for _, bad := range []string{"", "soon", "* * * *", "@every "} {
		if err := ValidateSchedule(bad); err == nil {
			t.Errorf("ValidateSchedule(%q): expected error", bad)
		}
	}
}
