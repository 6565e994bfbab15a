package persona

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

type Group string

const (
	GroupStudent      Group = "student"
	GroupTownieAlumni Group = "townie_alumni"
	GroupOnline       Group = "online"
)

// Kind selects how a persona is prompted and whether it keeps a score.
type Kind string

const (
	KindStandard  Kind = "standard"
	KindNarrative Kind = "narrative"
	KindUtility   Kind = "utility"
)

// Window is a half-open hour range [Start, End). Start > End wraps past
// midnight. In YAML it is written as a two element list.
type Window struct {
	Start int
	End   int
}

func (w *Window) UnmarshalYAML(value *yaml.Node) error {
	var pair []int
	if err := value.Decode(&pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("window must be [start, end], got %d values", len(pair))
	}
	for _, h := range pair {
		if h < 0 || h > 24 {
			return fmt.Errorf("window hour %d out of range [0,24]", h)
		}
	}
	w.Start, w.End = pair[0], pair[1]
	return nil
}

func (w Window) MarshalYAML() (interface{}, error) {
	return []int{w.Start, w.End}, nil
}

type DayTypes struct {
	Weekday []Window `yaml:"weekday"`
	Weekend []Window `yaml:"weekend"`
}

// Schedule is either seasonal (Summer plus SchoolYear) or YearRound.
type Schedule struct {
	Summer     *DayTypes `yaml:"summer,omitempty"`
	SchoolYear *DayTypes `yaml:"school_year,omitempty"`
	YearRound  *DayTypes `yaml:"year_round,omitempty"`
}

func (s *Schedule) Seasonal() bool {
	return s != nil && (s.Summer != nil || s.SchoolYear != nil)
}

func (s *Schedule) Empty() bool {
	return s == nil || (!s.Seasonal() && s.YearRound == nil)
}

type Traits struct {
	Character   string   `yaml:"character"`
	Personality string   `yaml:"personality"`
	Interests   []string `yaml:"interests"`
	Dislikes    []string `yaml:"dislikes"`
}

type Persona struct {
	Key            string    `yaml:"key"`
	Name           string    `yaml:"name"`
	Group          Group     `yaml:"group"`
	Gender         string    `yaml:"gender"`
	Age            int       `yaml:"age"`
	Kind           Kind      `yaml:"kind"`
	Schedule       *Schedule `yaml:"schedule,omitempty"`
	Traits         Traits    `yaml:"traits"`
	DatingEligible bool      `yaml:"dating_eligible"`

	// Seed data applied when a user's world is created or reset.
	InitialScore  *int     `yaml:"initial_score,omitempty"`
	InitialDating string   `yaml:"initial_dating,omitempty"`
	InitialLikes  []string `yaml:"initial_likes,omitempty"`

	Farewells []string `yaml:"farewells,omitempty"`
}

// Scoring reports whether the persona keeps a relationship score.
func (p Persona) Scoring() bool {
	return p.Kind != KindUtility
}

// Catalog is the read-only set of personas, loaded once at startup.
type Catalog struct {
	personas map[string]Persona
	keys     []string
}

func NewCatalog(personas []Persona) (*Catalog, error) {
	c := &Catalog{personas: make(map[string]Persona, len(personas))}
	for _, p := range personas {
		if p.Key == "" {
			return nil, fmt.Errorf("persona %q has no key", p.Name)
		}
		if _, dup := c.personas[p.Key]; dup {
			return nil, fmt.Errorf("duplicate persona key %q", p.Key)
		}
		if p.Kind == "" {
			p.Kind = KindStandard
		}
		switch p.Kind {
		case KindStandard, KindNarrative, KindUtility:
		default:
			return nil, fmt.Errorf("persona %q has unknown kind %q", p.Key, p.Kind)
		}
		switch p.Group {
		case GroupStudent, GroupTownieAlumni, GroupOnline:
		default:
			return nil, fmt.Errorf("persona %q has unknown group %q", p.Key, p.Group)
		}
		if p.InitialScore != nil && (*p.InitialScore < 0 || *p.InitialScore > 100) {
			return nil, fmt.Errorf("persona %q initial score %d out of range", p.Key, *p.InitialScore)
		}
		c.personas[p.Key] = p
		c.keys = append(c.keys, p.Key)
	}
	sort.Strings(c.keys)

	for _, p := range c.personas {
		if p.InitialDating != "" {
			partner, ok := c.personas[p.InitialDating]
			if !ok {
				return nil, fmt.Errorf("persona %q is seeded dating unknown persona %q", p.Key, p.InitialDating)
			}
			if partner.InitialDating != "" && partner.InitialDating != p.Key {
				return nil, fmt.Errorf("persona %q and %q have conflicting dating seeds", p.Key, partner.Key)
			}
		}
		for _, like := range p.InitialLikes {
			if _, ok := c.personas[like]; !ok {
				return nil, fmt.Errorf("persona %q likes unknown persona %q", p.Key, like)
			}
		}
	}
	return c, nil
}

// LoadCatalog reads a YAML file with a top level "personas" list.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file struct {
		Personas []Persona `yaml:"personas"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse personas %s: %w", path, err)
	}
	if len(file.Personas) == 0 {
		return nil, fmt.Errorf("personas file %s defines no personas", path)
	}
	return NewCatalog(file.Personas)
}

func (c *Catalog) Get(key string) (Persona, bool) {
	p, ok := c.personas[key]
	return p, ok
}

// Keys returns every persona key in sorted order.
func (c *Catalog) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

func (c *Catalog) All() []Persona {
	out := make([]Persona, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.personas[k])
	}
	return out
}

func (c *Catalog) InGroup(group Group) []Persona {
	var out []Persona
	for _, k := range c.keys {
		if p := c.personas[k]; p.Group == group {
			out = append(out, p)
		}
	}
	return out
}
