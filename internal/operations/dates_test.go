package operations

import (
	"errors"
	"testing"
	"time"

	"todosync/internal/utils"
)

func TestParseDeadline(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.Local)
	parser := NewDateParser("02/01/2006")

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"iso date", "2026-01-31", time.Date(2026, 1, 31, 12, 0, 0, 0, time.Local)},
		{"configured layout", "15/04/2026", time.Date(2026, 4, 15, 12, 0, 0, 0, time.Local)},
		{"surrounding spaces", "  2026-12-01 ", time.Date(2026, 12, 1, 12, 0, 0, 0, time.Local)},
		{"tomorrow", "tomorrow", time.Date(2026, 3, 11, 12, 0, 0, 0, time.Local)},
		{"capitalised", "Tomorrow", time.Date(2026, 3, 11, 12, 0, 0, 0, time.Local)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parser.ParseDeadline(tt.input, now)
			if err != nil {
				t.Fatalf("ParseDeadline(%q) error = %v", tt.input, err)
			}
			if got == nil {
				t.Fatalf("ParseDeadline(%q) = nil", tt.input)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDeadline(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDeadlineEmpty(t *testing.T) {
	got, err := NewDateParser("").ParseDeadline("   ", time.Now())
	if err != nil || got != nil {
		t.Errorf("ParseDeadline(blank) = %v, %v; want nil, nil", got, err)
	}
}

func TestParseDeadlineInvalid(t *testing.T) {
	parser := NewDateParser("")
	for _, input := range []string{"banana", "qwerty uiop"} {
		_, err := parser.ParseDeadline(input, time.Now())
		if err == nil {
			t.Errorf("ParseDeadline(%q) expected an error", input)
			continue
		}
		var ews *utils.ErrorWithSuggestion
		if !errors.As(err, &ews) {
			t.Errorf("ParseDeadline(%q) error %T should carry a suggestion", input, err)
		}
	}
}

func TestDeadlineDay(t *testing.T) {
	in := time.Date(2026, 7, 4, 23, 59, 59, 999, time.Local)
	want := time.Date(2026, 7, 4, 12, 0, 0, 0, time.Local)
	if got := DeadlineDay(in); !got.Equal(want) {
		t.Errorf("DeadlineDay() = %v, want %v", got, want)
	}
}

func TestFormatDeadline(t *testing.T) {
	d := time.Date(2026, 2, 3, 12, 0, 0, 0, time.Local)

	if got := FormatDeadline(nil, "2006-01-02"); got != "" {
		t.Errorf("FormatDeadline(nil) = %q", got)
	}
	if got := FormatDeadline(&d, ""); got != "2026-02-03" {
		t.Errorf("FormatDeadline default layout = %q", got)
	}
	if got := FormatDeadline(&d, "02.01.2006"); got != "03.02.2026" {
		t.Errorf("FormatDeadline custom layout = %q", got)
	}
}
