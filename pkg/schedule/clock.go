package schedule

import (
	"fmt"
	"time"

	"socialsim/pkg/config"
)

type DayType string

const (
	Weekday DayType = "weekday"
	Weekend DayType = "weekend"
)

type Reading struct {
	Hour     int
	DayType  DayType
	IsSummer bool
}

func (r Reading) String() string {
	season := "school year"
	if r.IsSummer {
		season = "summer"
	}
	return fmt.Sprintf("%02d:00 %s, %s", r.Hour, r.DayType, season)
}

// Read maps an instant to a reading. The summer range is inclusive and may
// wrap the year end (start > end).
func Read(t time.Time, summerStart, summerEnd time.Month) Reading {
	dayType := Weekday
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		dayType = Weekend
	}

	m := t.Month()
	summer := m >= summerStart && m <= summerEnd
	if summerStart > summerEnd {
		summer = m >= summerStart || m <= summerEnd
	}

	return Reading{Hour: t.Hour(), DayType: dayType, IsSummer: summer}
}

// Clock reads instants in the configured timezone.
type Clock struct {
	summerStart time.Month
	summerEnd   time.Month
	loc         *time.Location
}

func NewClock(cfg config.ScheduleSettings) (*Clock, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}
	return &Clock{
		summerStart: time.Month(cfg.SummerStartMonth),
		summerEnd:   time.Month(cfg.SummerEndMonth),
		loc:         loc,
	}, nil
}

func (c *Clock) Read(t time.Time) Reading {
	return Read(t.In(c.loc), c.summerStart, c.summerEnd)
}
