package relationship

import (
	"errors"
	"fmt"

	"socialsim/pkg/config"
	"socialsim/pkg/logger"
	"socialsim/pkg/persona"
	"socialsim/pkg/world"
)

var (
	ErrUnknownPersona = errors.New("relationship: unknown persona")
	ErrNotEligible    = errors.New("relationship: persona is not dating eligible")
	ErrNotBFF         = errors.New("relationship: dating needs bff standing")
	ErrNotBlocked     = errors.New("relationship: persona has not blocked the user")
)

// Economy owns the rules for scores, dating, gossip and moderation. It holds
// no per-user state; every call takes the user's world.
type Economy struct {
	cfg     config.SocialSettings
	catalog *persona.Catalog
	log     *logger.Logger
}

func NewEconomy(cfg config.SocialSettings, catalog *persona.Catalog, log *logger.Logger) *Economy {
	if log == nil {
		log = logger.Nop()
	}
	return &Economy{cfg: cfg, catalog: catalog, log: log}
}

func (e *Economy) Settings() config.SocialSettings {
	return e.cfg
}

// Transition records what a score change did.
type Transition struct {
	Persona   string `json:"persona"`
	From      int    `json:"from"`
	To        int    `json:"to"`
	FromTier  Tier   `json:"fromTier"`
	ToTier    Tier   `json:"toTier"`
	Blocked   bool   `json:"blocked,omitempty"`
	Warned    bool   `json:"warned,omitempty"`
	BecameBFF bool   `json:"becameBff,omitempty"`
	LostBFF   bool   `json:"lostBff,omitempty"`
	// BrokeUp is set when losing bff status ended dating the user.
	BrokeUp bool `json:"brokeUp,omitempty"`
	// Forgiven names the ex-partner whose score the breakup restored.
	Forgiven string `json:"forgiven,omitempty"`
	Ignored  bool   `json:"ignored,omitempty"`
}

func (t Transition) Changed() bool {
	return t.From != t.To
}

// ClampTurnDelta caps a single turn's score change.
func (e *Economy) ClampTurnDelta(delta int) int {
	limit := e.cfg.TurnDeltaCap
	if delta > limit {
		return limit
	}
	if delta < -limit {
		return -limit
	}
	return delta
}

// ApplyScoreChange adds delta to the persona's score and runs the tier
// side effects. Non-scoring and blocked personas are left untouched.
func (e *Economy) ApplyScoreChange(s *world.State, key string, delta int) (Transition, error) {
	if _, ok := e.catalog.Get(key); !ok {
		return Transition{}, fmt.Errorf("%w: %s", ErrUnknownPersona, key)
	}

	from, ok := s.Score(key)
	t := Transition{Persona: key, From: from, To: from}
	if !ok || s.Blocked(key) {
		t.Ignored = true
		return t, nil
	}

	to := Clamp(from + delta)
	s.SetScore(key, to)
	t.To = to
	t.FromTier = e.TierOf(from)
	t.ToTier = e.TierOf(to)

	mod := s.ModerationFor(key)
	if from > MinScore && to == MinScore {
		mod.Blocked = true
		t.Blocked = true
		e.log.Info("Persona blocked user", "user", s.UserID, "persona", key)
	} else if from >= e.cfg.HostileThreshold && to < e.cfg.HostileThreshold {
		mod.Warning = true
		t.Warned = true
	} else if to >= e.cfg.HostileThreshold && mod.Warning {
		// Climbing back out of hostile lifts the last-chance warning.
		mod.Warning = false
	}

	bff := e.cfg.BFFThreshold
	switch {
	case from < bff && to >= bff:
		t.BecameBFF = true
	case from >= bff && to < bff:
		t.LostBFF = true
		rel := s.Relationship(key)
		if rel.Dating == world.UserPlayer {
			rel.Dating = ""
			t.BrokeUp = true
			if ex := rel.PreviousPartner; ex != "" {
				if v, ok := s.Score(ex); ok {
					s.SetScore(ex, Clamp(v+e.cfg.ForgivenessBonus))
					t.Forgiven = ex
				}
			}
			e.log.Info("Dating ended after losing bff status", "user", s.UserID, "persona", key, "forgiven", t.Forgiven)
		}
	}

	return t, nil
}

// ApplyApology resolves a judged apology. Accepted apologies clear the block
// and warning and reset the score to a low value rather than the old one.
func (e *Economy) ApplyApology(s *world.State, key string, accepted bool) error {
	if _, ok := e.catalog.Get(key); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPersona, key)
	}
	if !s.Blocked(key) {
		return ErrNotBlocked
	}
	if !accepted {
		return nil
	}

	mod := s.ModerationFor(key)
	mod.Blocked = false
	mod.Warning = false
	if _, ok := s.Score(key); ok {
		s.SetScore(key, Clamp(e.cfg.ApologyResetScore))
	}
	e.log.Info("Apology accepted", "user", s.UserID, "persona", key)
	return nil
}
