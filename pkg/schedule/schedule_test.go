package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialsim/pkg/config"
	"socialsim/pkg/persona"
	"socialsim/pkg/world"
)

func TestRead(t *testing.T) {
	// 2025-07-05 is a Saturday.
	r := Read(time.Date(2025, 7, 5, 14, 30, 0, 0, time.UTC), time.June, time.August)
	assert.Equal(t, Reading{Hour: 14, DayType: Weekend, IsSummer: true}, r)

	r = Read(time.Date(2025, 10, 15, 0, 5, 0, 0, time.UTC), time.June, time.August)
	assert.Equal(t, Reading{Hour: 0, DayType: Weekday, IsSummer: false}, r)

	// Southern hemisphere style range wrapping the new year.
	r = Read(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), time.December, time.February)
	assert.True(t, r.IsSummer)
	r = Read(time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC), time.December, time.February)
	assert.False(t, r.IsSummer)
}

func TestClock_UsesTimezone(t *testing.T) {
	clock, err := NewClock(config.ScheduleSettings{SummerStartMonth: 6, SummerEndMonth: 8, Timezone: "America/New_York"})
	require.NoError(t, err)

	// 02:00 UTC Monday is 22:00 Sunday in New York (EDT).
	r := clock.Read(time.Date(2025, 7, 7, 2, 0, 0, 0, time.UTC))
	assert.Equal(t, 22, r.Hour)
	assert.Equal(t, Weekend, r.DayType)

	_, err = NewClock(config.ScheduleSettings{Timezone: "Mars/Olympus"})
	assert.Error(t, err)
}

func TestContains_OvernightWindow(t *testing.T) {
	w := persona.Window{Start: 23, End: 7}
	for h := 0; h < 24; h++ {
		assert.Equal(t, h >= 23 || h < 7, Contains(w, h), "hour %d", h)
	}
	assert.True(t, Contains(w, 23))
	assert.False(t, Contains(w, 7))
	assert.True(t, Contains(w, 6))
}

func TestContains_SameDayWindow(t *testing.T) {
	w := persona.Window{Start: 9, End: 17}
	assert.False(t, Contains(w, 8))
	assert.True(t, Contains(w, 9))
	assert.True(t, Contains(w, 16))
	assert.False(t, Contains(w, 17))

	empty := persona.Window{Start: 5, End: 5}
	for h := 0; h < 24; h++ {
		assert.False(t, Contains(empty, h))
	}
}

func TestIsReachable_Seasonal(t *testing.T) {
	p := persona.Persona{
		Key: "x",
		Schedule: &persona.Schedule{
			Summer:     &persona.DayTypes{Weekday: []persona.Window{{Start: 10, End: 12}}},
			SchoolYear: &persona.DayTypes{Weekday: []persona.Window{{Start: 18, End: 20}}, Weekend: []persona.Window{{Start: 0, End: 24}}},
		},
	}

	assert.True(t, IsReachable(p, Reading{Hour: 11, DayType: Weekday, IsSummer: true}))
	assert.False(t, IsReachable(p, Reading{Hour: 19, DayType: Weekday, IsSummer: true}))
	assert.True(t, IsReachable(p, Reading{Hour: 19, DayType: Weekday, IsSummer: false}))
	assert.False(t, IsReachable(p, Reading{Hour: 11, DayType: Weekday, IsSummer: false}))
	assert.True(t, IsReachable(p, Reading{Hour: 3, DayType: Weekend, IsSummer: false}))
	assert.False(t, IsReachable(p, Reading{Hour: 3, DayType: Weekend, IsSummer: true}), "no summer weekend windows")
}

func TestIsReachable_NoSchedule(t *testing.T) {
	p := persona.Persona{Key: "bot", Kind: persona.KindUtility}
	for h := 0; h < 24; h++ {
		assert.True(t, IsReachable(p, Reading{Hour: h, DayType: Weekday}))
	}
}

func TestIsReachableFor_Blocked(t *testing.T) {
	catalog := persona.DefaultCatalog()
	s := world.New("u1", 20, catalog, world.Defaults{Score: 30})
	pixel, _ := catalog.Get("pixel")

	r := Reading{Hour: 12, DayType: Weekday}
	assert.True(t, IsReachableFor(pixel, s, r))

	s.ModerationFor("pixel").Blocked = true
	assert.False(t, IsReachableFor(pixel, s, r))
}

func TestAround(t *testing.T) {
	catalog := persona.DefaultCatalog()
	s := world.New("u1", 30, catalog, world.Defaults{Score: 30})

	// 03:00 on a school-year weekday: the night owls and the bot.
	around := Around(catalog, s, Reading{Hour: 3, DayType: Weekday})
	var keys []string
	for _, p := range around {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"eli", "nyx", "pixel"}, keys)
}
