package relationship

import (
	"fmt"

	"socialsim/pkg/world"
)

// Breakup records one side effect of re-pairing.
type Breakup struct {
	Persona string `json:"persona"`
	Ex      string `json:"ex"`
	Penalty int    `json:"penalty,omitempty"`
}

// PairUp makes a and b date each other. Either side may be the user. Any
// existing partner of either side is dropped first, with previousPartner
// recorded on both halves of the broken pair. When the user steals a persona
// from another persona, the dropped partner takes the breakup penalty.
func (e *Economy) PairUp(s *world.State, a, b string) ([]Breakup, error) {
	if a == b {
		return nil, fmt.Errorf("relationship: cannot pair %q with itself", a)
	}
	for _, k := range []string{a, b} {
		if k == world.UserPlayer {
			continue
		}
		if _, ok := e.catalog.Get(k); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPersona, k)
		}
	}
	if a == world.UserPlayer {
		a, b = b, a
	}

	var breakups []Breakup
	for _, side := range []struct{ self, other string }{{a, b}, {b, a}} {
		if side.self == world.UserPlayer {
			continue
		}
		rel := s.Relationship(side.self)
		current := rel.Dating
		if current == "" || current == side.other {
			continue
		}
		br := Breakup{Persona: side.self, Ex: current}
		if current != world.UserPlayer {
			rel.PreviousPartner = current
			exRel := s.Relationship(current)
			exRel.Dating = ""
			exRel.PreviousPartner = side.self
			if side.other == world.UserPlayer {
				if v, ok := s.Score(current); ok {
					br.Penalty = e.cfg.BreakupPenalty
					s.SetScore(current, Clamp(v-e.cfg.BreakupPenalty))
				}
			}
		}
		breakups = append(breakups, br)
	}

	s.Relationship(a).Dating = b
	if b != world.UserPlayer {
		s.Relationship(b).Dating = a
	}

	e.log.Info("Paired up", "user", s.UserID, "a", a, "b", b, "breakups", len(breakups))
	return breakups, nil
}

// StartDating pairs a persona with the user. Only a persona at bff standing
// can start dating; already dating the user is an affirmation and changes
// nothing.
func (e *Economy) StartDating(s *world.State, key string) ([]Breakup, error) {
	p, ok := e.catalog.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPersona, key)
	}
	if !p.DatingEligible {
		return nil, ErrNotEligible
	}
	if s.Relationship(key).Dating == world.UserPlayer {
		return nil, nil
	}
	if score, ok := s.Score(key); !ok || e.TierOf(score) != BFF {
		return nil, ErrNotBFF
	}
	return e.PairUp(s, key, world.UserPlayer)
}

// BreakUp ends whatever key is dating, on both sides.
func (e *Economy) BreakUp(s *world.State, key string) error {
	if _, ok := e.catalog.Get(key); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPersona, key)
	}
	rel := s.Relationship(key)
	partner := rel.Dating
	if partner == "" {
		return nil
	}
	rel.Dating = ""
	if partner != world.UserPlayer {
		rel.PreviousPartner = partner
		other := s.Relationship(partner)
		other.Dating = ""
		other.PreviousPartner = key
	}
	return nil
}

// HandleCheatingDetected severs every persona dating the user and drops
// each to the cheating reset score. It returns the affected keys.
func (e *Economy) HandleCheatingDetected(s *world.State) []string {
	caught := s.DatingUser()
	for _, key := range caught {
		if err := e.BreakUp(s, key); err != nil {
			e.log.Warn("Failed to end relationship", "user", s.UserID, "persona", key, "error", err)
			continue
		}
		if _, ok := s.Score(key); ok {
			s.SetScore(key, Clamp(e.cfg.CheatingResetScore))
		}
	}
	if len(caught) > 0 {
		e.log.Info("Cheating detected", "user", s.UserID, "personas", caught)
	}
	return caught
}

// CheckDating verifies the dating graph is symmetric and that no persona is
// claimed by more than one partner.
func CheckDating(s *world.State) error {
	claimed := make(map[string]string)
	for key, rel := range s.Relationships {
		if rel.Dating == "" || rel.Dating == world.UserPlayer {
			continue
		}
		if prev, dup := claimed[rel.Dating]; dup {
			return fmt.Errorf("%s is dated by both %s and %s", rel.Dating, prev, key)
		}
		claimed[rel.Dating] = key
		partner, ok := s.Relationships[rel.Dating]
		if !ok || partner.Dating != key {
			return fmt.Errorf("%s dates %s but it is not mirrored", key, rel.Dating)
		}
	}
	return nil
}
