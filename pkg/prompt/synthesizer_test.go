package prompt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialsim/pkg/config"
	"socialsim/pkg/persona"
	"socialsim/pkg/relationship"
	"socialsim/pkg/schedule"
	"socialsim/pkg/world"
)

var noon = schedule.Reading{Hour: 12, DayType: schedule.Weekday}

type fixture struct {
	synth   *Synthesizer
	catalog *persona.Catalog
	state   *world.State
	cfg     *config.Config
}

func newFixture(t *testing.T, delays config.DelaySettings) *fixture {
	t.Helper()
	cfg := config.Default()
	catalog := persona.DefaultCatalog()
	economy := relationship.NewEconomy(cfg.Social, catalog, nil)
	return &fixture{
		synth:   NewSynthesizer(economy, catalog, delays, rand.New(rand.NewSource(1))),
		catalog: catalog,
		state:   world.New("u1", 20, catalog, world.Defaults{Score: 30}),
		cfg:     cfg,
	}
}

func (f *fixture) persona(key string) persona.Persona {
	p, _ := f.catalog.Get(key)
	return p
}

func TestSelect(t *testing.T) {
	c := persona.DefaultCatalog()
	maya, _ := c.Get("maya")
	nyx, _ := c.Get("nyx")
	pixel, _ := c.Get("pixel")

	assert.Equal(t, "standard", Select(maya, relationship.Friendly).Name())
	assert.Equal(t, "bff", Select(maya, relationship.BFF).Name())
	assert.Equal(t, "narrative", Select(nyx, relationship.Wary).Name())
	assert.Equal(t, "narrative", Select(nyx, relationship.BFF).Name())
	assert.Equal(t, "utility", Select(pixel, "").Name())
}

func TestBuild_Standard(t *testing.T) {
	f := newFixture(t, config.Default().Delays)
	f.state.SetScore("priya", 45)

	in := f.synth.Build(f.persona("priya"), f.state, noon)

	assert.Equal(t, "standard", in.Strategy)
	assert.Contains(t, in.Text, "Priya Raman")
	assert.Contains(t, in.Text, "chemistry")
	assert.Contains(t, in.Text, "loud parties")
	assert.Contains(t, in.Text, "Relationship: FRIENDLY")
	assert.Contains(t, in.Text, "-4 (too soon")
	assert.Contains(t, in.Text, "-10 and no other rule counts")
	assert.Contains(t, in.Text, "-10..+10")
	assert.Contains(t, in.Text, "Current relationship score: 45/100.")
	assert.Contains(t, in.Text, "set ageDisclosed to true")
	assert.Contains(t, in.Text, "Set responseDelaySeconds to exactly 1.")
	assert.Equal(t, 1, in.DelayHint)

	assert.Contains(t, in.Schema.Required(), "isImageRequest")
	assert.Len(t, in.Safety, 4)
}

func TestBuild_FlirtGate(t *testing.T) {
	f := newFixture(t, config.Default().Delays)
	f.state.SetScore("priya", 80)
	in := f.synth.Build(f.persona("priya"), f.state, noon)
	assert.Contains(t, in.Text, "The user flirts with you: +3.")
}

func TestBuild_BFF(t *testing.T) {
	f := newFixture(t, config.Default().Delays)
	f.state.SetScore("sam", 100)

	in := f.synth.Build(f.persona("sam"), f.state, noon)
	assert.Equal(t, "bff", in.Strategy)
	assert.Contains(t, in.Text, "You shrug them off")
	assert.Contains(t, in.Text, "set datingStart to true")
	assert.Contains(t, in.Text, "tell them you'll send one")
	assert.NotContains(t, in.Text, "Never agree to date")
}

func TestBuild_DatingUser(t *testing.T) {
	f := newFixture(t, config.Default().Delays)
	f.state.SetScore("sam", 100)
	f.state.Relationships["sam"].Dating = world.UserPlayer

	in := f.synth.Build(f.persona("sam"), f.state, noon)
	assert.Contains(t, in.Text, "You are dating the user")
	assert.Contains(t, in.Text, "cheatingDetected")
}

func TestBuild_DatingSomeoneElse(t *testing.T) {
	f := newFixture(t, config.Default().Delays)
	in := f.synth.Build(f.persona("maya"), f.state, noon)
	assert.Contains(t, in.Text, "You are dating Jordan Reyes")
	assert.Contains(t, in.Text, "soft spot for Priya Raman")
}

func TestBuild_AgeKnowledgeSource(t *testing.T) {
	f := newFixture(t, config.Default().Delays)
	f.state.AgeKnowledge["jordan"] = &world.AgeKnowledge{Knows: true, Source: "maya"}
	in := f.synth.Build(f.persona("jordan"), f.state, noon)
	assert.Contains(t, in.Text, "You know the user is 20 (Maya Okafor told you).")
}

func TestBuild_Narrative(t *testing.T) {
	f := newFixture(t, config.Default().Delays)

	low := f.synth.Build(f.persona("nyx"), f.state, noon)
	assert.Equal(t, "narrative", low.Strategy)
	assert.Contains(t, low.Text, "suspicious of everyone")
	assert.Contains(t, low.Text, "Never say, confirm or suggest that you are an AI")

	f.state.SetScore("nyx", 100)
	high := f.synth.Build(f.persona("nyx"), f.state, noon)
	assert.Contains(t, high.Text, "You finally trust the user")
	assert.Contains(t, high.Text, "Never say, confirm or suggest that you are an AI")
	assert.NotContains(t, high.Text, "suspicious of everyone")
}

func TestBuild_Utility(t *testing.T) {
	f := newFixture(t, config.Default().Delays)
	night := schedule.Reading{Hour: 3, DayType: schedule.Weekday}

	in := f.synth.Build(f.persona("pixel"), f.state, night)
	assert.Equal(t, "utility", in.Strategy)
	assert.Contains(t, in.Text, "Around right now: Eli Thornton, nyx.")
	assert.Contains(t, in.Text, "relationshipChange is always 0")
	assert.NotContains(t, in.Text, "Current relationship score")

	// The cached body must not go stale when the clock moves.
	in = f.synth.Build(f.persona("pixel"), f.state, noon)
	assert.False(t, in.CacheHit)
	assert.NotContains(t, in.Text, "Eli Thornton")
}

func TestBuild_CachesBody(t *testing.T) {
	f := newFixture(t, config.Default().Delays)
	p := f.persona("rosa")

	first := f.synth.Build(p, f.state, noon)
	assert.False(t, first.CacheHit)
	require.Contains(t, f.state.InstructionCache, "rosa")

	// Score moves within the same tier: body reused, tail updated.
	f.state.SetScore("rosa", 41)
	second := f.synth.Build(p, f.state, noon)
	assert.True(t, second.CacheHit)
	assert.Contains(t, second.Text, "Current relationship score: 41/100.")

	// Moderation change alters the fingerprint.
	f.state.ModerationFor("rosa").Warning = true
	third := f.synth.Build(p, f.state, noon)
	assert.False(t, third.CacheHit)
	assert.Contains(t, third.Text, "on your guard")

	f.synth.Invalidate(f.state, "rosa")
	assert.NotContains(t, f.state.InstructionCache, "rosa")
}

func TestDelayHint(t *testing.T) {
	delays := config.DelaySettings{Realistic: true, MinSeconds: 30, MaxSeconds: 90, DisabledSeconds: 1}
	f := newFixture(t, delays)
	for i := 0; i < 200; i++ {
		d := f.synth.delayHint()
		assert.GreaterOrEqual(t, d, 30)
		assert.LessOrEqual(t, d, 90)
	}

	f.synth.delays = config.DelaySettings{Realistic: true, MinSeconds: 5, MaxSeconds: 5}
	assert.Equal(t, 5, f.synth.delayHint())

	f.synth.delays = config.DelaySettings{DisabledSeconds: 2}
	assert.Equal(t, 2, f.synth.delayHint())
}

func TestBuildApology(t *testing.T) {
	f := newFixture(t, config.Default().Delays)
	f.state.AppendLine("rosa", world.RoleUser, "you're useless")
	f.state.AppendLine("rosa", world.RoleModel, "wow. bye.")

	in := f.synth.BuildApology(f.persona("rosa"), f.state)
	assert.Equal(t, "apology", in.Strategy)
	assert.Contains(t, in.Text, "user: you're useless")
	assert.Contains(t, in.Text, "Set unblocked to true if you accept")
	assert.Equal(t, []string{"unblocked", "reply"}, in.Schema.Required())
}

func TestBuildSummary(t *testing.T) {
	f := newFixture(t, config.Default().Delays)
	lines := []world.Line{{Role: world.RoleUser, Text: "I love horror movies"}, {Role: world.RoleModel, Text: "same!!"}}

	in := f.synth.BuildSummary(f.persona("maya"), "They met at the market.", lines)
	assert.Contains(t, in.Text, "Maya Okafor")
	assert.Contains(t, in.Text, "Summary so far: They met at the market.")
	assert.Contains(t, in.Text, "user: I love horror movies")
	assert.Equal(t, []string{"summary"}, in.Schema.Required())
}

func TestImagePrompt(t *testing.T) {
	p, _ := persona.DefaultCatalog().Get("maya")
	got := ImagePrompt(p)
	assert.Contains(t, got, "Maya Okafor, a 20-year-old female")
	assert.Contains(t, got, "drawing and indie music")
	assert.NotContains(t, got, "horror")
}
