package form

import (
	"fmt"
	"strings"
	"time"

	"attendex/src-server/entity"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var dateLayouts = []string{
	entity.DateLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// DateParser accepts ISO dates and natural language ("next friday",
// "in 3 days") relative to now.
type DateParser struct {
	when *when.Parser
	loc  *time.Location
	now  func() time.Time
}

func NewDateParser(loc *time.Location) *DateParser {
	if loc == nil {
		loc = time.Local
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &DateParser{when: w, loc: loc, now: time.Now}
}

// WithClock returns a copy of p that resolves relative dates against now.
func (p *DateParser) WithClock(now func() time.Time) *DateParser {
	cp := *p
	cp.now = now
	return &cp
}

func (p *DateParser) Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("(*DateParser).Parse: date is blank")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			return t, nil
		}
	}
	r, err := p.when.Parse(s, p.now().In(p.loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("(*DateParser).Parse: %w", err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("(*DateParser).Parse: can't understand %q", s)
	}
	return r.Time.In(p.loc), nil
}

// ParseDate truncates the parsed value to its calendar day.
func (p *DateParser) ParseDate(s string) (entity.Date, error) {
	t, err := p.Parse(s)
	if err != nil {
		return entity.Date{}, err
	}
	return entity.NewDate(t.Year(), t.Month(), t.Day()), nil
}

func (p *DateParser) check(s string) error {
	_, err := p.Parse(s)
	return err
}
