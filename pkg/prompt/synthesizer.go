package prompt

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"socialsim/pkg/config"
	"socialsim/pkg/llm"
	"socialsim/pkg/persona"
	"socialsim/pkg/relationship"
	"socialsim/pkg/schedule"
	"socialsim/pkg/world"
)

// Instruction is a ready to send generation request minus the history.
type Instruction struct {
	Text      string
	Schema    llm.Schema
	Safety    []llm.SafetySetting
	DelayHint int
	Strategy  string
	CacheHit  bool
}

func (i Instruction) Request(history []llm.Turn) llm.Request {
	return llm.Request{History: history, Instruction: i.Text, Schema: i.Schema, Safety: i.Safety}
}

type Synthesizer struct {
	economy *relationship.Economy
	catalog *persona.Catalog
	delays  config.DelaySettings

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSynthesizer(economy *relationship.Economy, catalog *persona.Catalog, delays config.DelaySettings, rng *rand.Rand) *Synthesizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Synthesizer{economy: economy, catalog: catalog, delays: delays, rng: rng}
}

// Build returns the instructions for the next turn with p. The stable body
// is reused from s.InstructionCache when its fingerprint still matches.
func (s *Synthesizer) Build(p persona.Persona, st *world.State, r schedule.Reading) Instruction {
	in := Input{
		Persona: p,
		State:   st,
		Social:  s.economy.Settings(),
		Catalog: s.catalog,
		Reading: r,
	}
	in.Score, in.HasScore = st.Score(p.Key)
	if in.HasScore {
		in.Tier = s.economy.TierOf(in.Score)
	}

	strategy := Select(p, in.Tier)
	fp := fingerprint(strategy, in)

	out := Instruction{
		Schema:    TurnSchema(),
		Safety:    DefaultSafety(),
		DelayHint: s.delayHint(),
		Strategy:  strategy.Name(),
	}

	body := ""
	if cached, ok := st.InstructionCache[p.Key]; ok && cached.Fingerprint == fp {
		body = cached.Text
		out.CacheHit = true
	} else {
		body = strategy.Compose(in)
		st.InstructionCache[p.Key] = world.CachedInstruction{Fingerprint: fp, Text: body}
	}

	out.Text = join(body, turnContext(in, out.DelayHint))
	return out
}

// Invalidate drops the cached body for a persona.
func (s *Synthesizer) Invalidate(st *world.State, key string) {
	delete(st.InstructionCache, key)
}

// turnContext is the per-turn tail that is never cached.
func turnContext(in Input, delay int) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Right now it is %s.", in.Reading))
	if in.HasScore {
		lines = append(lines, fmt.Sprintf("Current relationship score: %d/%d.", in.Score, relationship.MaxScore))
		if in.Score < relationship.MaxScore {
			lines = append(lines, "If the user asks for a photo of you, set isImageRequest to true but say you're not comfortable sending one yet.")
		} else {
			lines = append(lines, "If the user asks for a photo of you, set isImageRequest to true and tell them you'll send one.")
		}
	}
	if summary := in.State.ChatSummaries[in.Persona.Key]; summary != "" {
		lines = append(lines, "Earlier in your conversation: "+summary)
	}
	lines = append(lines, fmt.Sprintf("Set responseDelaySeconds to exactly %d.", delay))
	lines = append(lines, "Respond with a single JSON object containing reply, relationshipChange, responseDelaySeconds and isImageRequest, plus datingStart, cheatingDetected or ageDisclosed when they apply.")
	return strings.Join(lines, "\n")
}

// delayHint is computed here rather than left to the generator.
func (s *Synthesizer) delayHint() int {
	if !s.delays.Realistic {
		return s.delays.DisabledSeconds
	}
	span := s.delays.MaxSeconds - s.delays.MinSeconds
	if span <= 0 {
		return s.delays.MinSeconds
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delays.MinSeconds + s.rng.Intn(span+1)
}

// fingerprint covers every piece of state a strategy body reads.
func fingerprint(strategy Strategy, in Input) string {
	st := in.State
	key := in.Persona.Key
	parts := []string{strategy.Name(), string(in.Tier), st.UserRole, strconv.Itoa(in.State.UserAge)}

	if in.HasScore && in.Score >= in.Social.FlirtThreshold {
		parts = append(parts, "flirt")
	}
	if rel := st.Relationships[key]; rel != nil {
		parts = append(parts, "d="+rel.Dating, "p="+rel.PreviousPartner, "l="+strings.Join(rel.Likes, ","))
	}
	if mod := st.Moderation[key]; mod != nil {
		parts = append(parts, fmt.Sprintf("m=%t/%t/%t", mod.Blocked, mod.Warning, mod.ViolenceWarning))
	}
	if k := st.AgeKnowledge[key]; k != nil {
		parts = append(parts, fmt.Sprintf("a=%t/%s", k.Knows, k.Source))
	}
	if v, ok := strategy.(volatile); ok {
		parts = append(parts, "v="+v.VolatileKey(in))
	}

	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:8])
}
