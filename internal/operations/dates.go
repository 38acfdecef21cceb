package operations

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"todosync/internal/utils"
)

// isoLayout is always accepted, whatever the configured date format
const isoLayout = "2006-01-02"

// DateParser turns deadline flags into times. It accepts ISO dates, the
// configured display format and English phrases such as "tomorrow" or
// "next friday".
type DateParser struct {
	layouts []string
	natural *when.Parser
}

// NewDateParser creates a parser that also accepts layout (may be empty)
func NewDateParser(layout string) *DateParser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	layouts := []string{isoLayout}
	if layout != "" && layout != isoLayout {
		layouts = append(layouts, layout)
	}
	return &DateParser{layouts: layouts, natural: w}
}

// ParseDeadline parses input relative to now. An empty input returns nil,
// meaning "no deadline". The result is noon local time on the parsed day.
func (p *DateParser) ParseDeadline(input string, now time.Time) (*time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	for _, layout := range p.layouts {
		if t, err := time.ParseInLocation(layout, input, time.Local); err == nil {
			day := DeadlineDay(t)
			return &day, nil
		}
	}

	r, err := p.natural.Parse(strings.ToLower(input), now)
	if err != nil || r == nil {
		return nil, utils.ErrInvalidDate(input)
	}
	// Reject phrases where only a fragment was understood
	if len(strings.TrimSpace(r.Text)) < len(input)/2 {
		return nil, utils.ErrInvalidDate(input)
	}

	day := DeadlineDay(r.Time)
	return &day, nil
}

// DeadlineDay returns 12:00 local time on the day of t
func DeadlineDay(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.Local)
}

// FormatDeadline renders a deadline with layout, or "" when there is none
func FormatDeadline(deadline *time.Time, layout string) string {
	if deadline == nil {
		return ""
	}
	if layout == "" {
		layout = isoLayout
	}
	return deadline.In(time.Local).Format(layout)
}
