package core

import "testing"

func TestClampToMonthEnd(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month int
		day   int
		want  int
	}{
		{name: "day 31 in non-leap february", year: 2023, month: 2, day: 31, want: 28},
		{name: "day 31 in leap february", year: 2024, month: 2, day: 31, want: 29},
		{name: "day 31 in 30-day month", year: 2024, month: 4, day: 31, want: 30},
		{name: "day within month untouched", year: 2024, month: 1, day: 15, want: 15},
		{name: "last day exactly", year: 2024, month: 1, day: 31, want: 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampToMonthEnd(tt.year, tt.month, tt.day)
			if got != tt.want {
				t.Errorf("ClampToMonthEnd(%d, %d, %d) = %d, want %d", tt.year, tt.month, tt.day, got, tt.want)
			}
		})
	}
}

func TestDateKey(t *testing.T) {
	d := NewDate(2024, 3, 7)
	if got := d.Key(); got != "2024-03-07" {
		t.Errorf("Key() = %q, want %q", got, "2024-03-07")
	}

	parsed, err := ParseDateKey("2024-03-07")
	if err != nil {
		t.Fatalf("ParseDateKey: %v", err)
	}
	if !parsed.Equal(d) {
		t.Errorf("ParseDateKey round trip = %s, want %s", parsed.Key(), d.Key())
	}

	if _, err := ParseDateKey("07/03/2024"); err == nil {
		t.Error("ParseDateKey accepted a non-ISO date")
	}
}

func TestDateAddMonths(t *testing.T) {
	tests := []struct {
		name   string
		start  Date
		months int
		want   string
	}{
		{name: "jan 31 to leap february", start: NewDate(2024, 1, 31), months: 1, want: "2024-02-29"},
		{name: "jan 31 to march keeps day", start: NewDate(2024, 1, 31), months: 2, want: "2024-03-31"},
		{name: "jan 31 to april clamps", start: NewDate(2024, 1, 31), months: 3, want: "2024-04-30"},
		{name: "crosses year boundary", start: NewDate(2024, 11, 15), months: 3, want: "2025-02-15"},
		{name: "zero months is identity", start: NewDate(2024, 6, 10), months: 0, want: "2024-06-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start.AddMonths(tt.months).Key()
			if got != tt.want {
				t.Errorf("%s.AddMonths(%d) = %s, want %s", tt.start.Key(), tt.months, got, tt.want)
			}
		})
	}
}

func TestDateAddMonthsDoesNotStickToShortMonths(t *testing.T) {
	// Each offset is applied from the origin, so a clamped february does not
	// drag the day down for the months after it.
	origin := NewDate(2024, 1, 31)
	want := []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30"}
	for i, w := range want {
		if got := origin.AddMonths(i).Key(); got != w {
			t.Errorf("offset %d = %s, want %s", i, got, w)
		}
	}
}

func TestDateAddYears(t *testing.T) {
	if got := NewDate(2024, 2, 29).AddYears(1).Key(); got != "2025-02-28" {
		t.Errorf("leap day + 1 year = %s, want 2025-02-28", got)
	}
	if got := NewDate(2024, 7, 15).AddYears(1).Key(); got != "2025-07-15" {
		t.Errorf("plain date + 1 year = %s, want 2025-07-15", got)
	}
}

func TestDateWithin(t *testing.T) {
	start := NewDate(2024, 1, 11)
	end := NewDate(2024, 2, 10)

	tests := []struct {
		name string
		d    Date
		want bool
	}{
		{name: "inside window", d: NewDate(2024, 1, 20), want: true},
		{name: "start is inclusive", d: start, want: true},
		{name: "end is inclusive", d: end, want: true},
		{name: "day before start", d: NewDate(2024, 1, 10), want: false},
		{name: "day after end", d: NewDate(2024, 2, 11), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.Within(start, end); got != tt.want {
				t.Errorf("%s.Within(%s, %s) = %v, want %v", tt.d.Key(), start.Key(), end.Key(), got, tt.want)
			}
		})
	}
}
