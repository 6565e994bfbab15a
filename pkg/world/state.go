package world

import (
	"encoding/json"
	"sort"
	"time"

	"socialsim/pkg/persona"
)

// UserPlayer is the dating value that stands for the user. It has no
// relationship entry of its own.
const UserPlayer = "user_player"

type Relationship struct {
	Dating          string   `json:"dating,omitempty"`
	Likes           []string `json:"likes"`
	PreviousPartner string   `json:"previousPartner,omitempty"`
}

type Moderation struct {
	Blocked         bool `json:"blocked"`
	Warning         bool `json:"warning"`
	ViolenceWarning bool `json:"violenceWarning,omitempty"`
}

type AgeKnowledge struct {
	Knows  bool   `json:"knows"`
	Source string `json:"source,omitempty"`
}

type CachedInstruction struct {
	Fingerprint string `json:"fingerprint"`
	Text        string `json:"text"`
}

// State is one user's social world. Callers serialize access per user.
type State struct {
	UserID   string `json:"userId"`
	UserAge  int    `json:"userAge"`
	UserRole string `json:"userRole"`

	UserScores    map[string]*int          `json:"userScores"`
	Relationships map[string]*Relationship `json:"relationships"`
	Moderation    map[string]*Moderation   `json:"moderation"`
	AgeKnowledge  map[string]*AgeKnowledge `json:"ageKnowledge"`

	ChatHistories     map[string]string            `json:"chatHistories"`
	ChatSummaries     map[string]string            `json:"chatSummaries,omitempty"`
	SummarizedThrough map[string]int               `json:"summarizedThrough,omitempty"`
	InstructionCache  map[string]CachedInstruction `json:"instructionCache,omitempty"`
	Offline           map[string]bool              `json:"offline,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Defaults are the seed values not carried by individual personas.
type Defaults struct {
	Score int
}

// RoleForAge maps the user's age to the social group they belong to.
func RoleForAge(age int) string {
	if age <= 22 {
		return string(persona.GroupStudent)
	}
	return string(persona.GroupTownieAlumni)
}

func New(userID string, age int, catalog *persona.Catalog, defaults Defaults) *State {
	now := time.Now().UTC()
	s := &State{
		UserID:    userID,
		UserAge:   age,
		UserRole:  RoleForAge(age),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Hydrate(catalog, defaults)
	return s
}

// Hydrate fills in anything missing, for states written before a field or
// persona existed. Existing values are never overwritten.
func (s *State) Hydrate(catalog *persona.Catalog, defaults Defaults) {
	s.ensureMaps()
	if s.UserRole == "" && s.UserAge > 0 {
		s.UserRole = RoleForAge(s.UserAge)
	}

	for _, p := range catalog.All() {
		if _, ok := s.UserScores[p.Key]; !ok {
			s.UserScores[p.Key] = seedScore(p, defaults)
		}
		if _, ok := s.Relationships[p.Key]; !ok {
			s.Relationships[p.Key] = seedRelationship(p, catalog)
		}
		if _, ok := s.Moderation[p.Key]; !ok {
			s.Moderation[p.Key] = &Moderation{}
		}
		if _, ok := s.AgeKnowledge[p.Key]; !ok {
			s.AgeKnowledge[p.Key] = &AgeKnowledge{}
		}
	}
}

func (s *State) ensureMaps() {
	if s.UserScores == nil {
		s.UserScores = make(map[string]*int)
	}
	if s.Relationships == nil {
		s.Relationships = make(map[string]*Relationship)
	}
	if s.Moderation == nil {
		s.Moderation = make(map[string]*Moderation)
	}
	if s.AgeKnowledge == nil {
		s.AgeKnowledge = make(map[string]*AgeKnowledge)
	}
	if s.ChatHistories == nil {
		s.ChatHistories = make(map[string]string)
	}
	if s.ChatSummaries == nil {
		s.ChatSummaries = make(map[string]string)
	}
	if s.SummarizedThrough == nil {
		s.SummarizedThrough = make(map[string]int)
	}
	if s.InstructionCache == nil {
		s.InstructionCache = make(map[string]CachedInstruction)
	}
	if s.Offline == nil {
		s.Offline = make(map[string]bool)
	}
}

// Reset re-seeds the social graph. Transcripts and summaries survive.
func (s *State) Reset(catalog *persona.Catalog, defaults Defaults) {
	s.UserScores = nil
	s.Relationships = nil
	s.Moderation = nil
	s.AgeKnowledge = nil
	s.InstructionCache = nil
	s.Offline = nil
	s.Hydrate(catalog, defaults)
	s.UpdatedAt = time.Now().UTC()
}

func seedScore(p persona.Persona, defaults Defaults) *int {
	if !p.Scoring() {
		return nil
	}
	v := defaults.Score
	if p.InitialScore != nil {
		v = *p.InitialScore
	}
	return &v
}

func seedRelationship(p persona.Persona, catalog *persona.Catalog) *Relationship {
	rel := &Relationship{Likes: append([]string{}, p.InitialLikes...)}
	rel.Dating = p.InitialDating
	if rel.Dating == "" {
		// The catalog allows one-sided seeds; mirror them.
		for _, other := range catalog.All() {
			if other.InitialDating == p.Key {
				rel.Dating = other.Key
				break
			}
		}
	}
	return rel
}

// Score returns the persona's score and whether it has one.
func (s *State) Score(key string) (int, bool) {
	v, ok := s.UserScores[key]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

func (s *State) SetScore(key string, value int) {
	v := value
	s.UserScores[key] = &v
}

func (s *State) Relationship(key string) *Relationship {
	rel, ok := s.Relationships[key]
	if !ok {
		rel = &Relationship{Likes: []string{}}
		s.Relationships[key] = rel
	}
	return rel
}

func (s *State) ModerationFor(key string) *Moderation {
	mod, ok := s.Moderation[key]
	if !ok {
		mod = &Moderation{}
		s.Moderation[key] = mod
	}
	return mod
}

func (s *State) Blocked(key string) bool {
	mod, ok := s.Moderation[key]
	return ok && mod.Blocked
}

func (s *State) KnowsAge(key string) bool {
	k, ok := s.AgeKnowledge[key]
	return ok && k.Knows
}

// DatingUser returns every persona currently dating the user, sorted.
func (s *State) DatingUser() []string {
	var out []string
	for key, rel := range s.Relationships {
		if rel.Dating == UserPlayer {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy, so a turn can be applied and discarded.
func (s *State) Clone() *State {
	data, err := json.Marshal(s)
	if err != nil {
		panic("world: state is not serializable: " + err.Error())
	}
	var out State
	if err := json.Unmarshal(data, &out); err != nil {
		panic("world: state round trip failed: " + err.Error())
	}
	out.ensureMaps()
	return &out
}
