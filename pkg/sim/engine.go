// Package sim runs conversations between a user and the persona cast. It
// owns the per-user turn lock and is the only writer of world state.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"socialsim/pkg/config"
	"socialsim/pkg/jobs"
	"socialsim/pkg/llm"
	"socialsim/pkg/logger"
	"socialsim/pkg/media"
	"socialsim/pkg/persona"
	"socialsim/pkg/prompt"
	"socialsim/pkg/relationship"
	"socialsim/pkg/safety"
	"socialsim/pkg/schedule"
	"socialsim/pkg/store"
	"socialsim/pkg/world"
)

var (
	ErrUnknownPersona = errors.New("sim: unknown persona")
	ErrUnknownUser    = errors.New("sim: unknown user")
	ErrProfileExists  = errors.New("sim: profile already exists")
	ErrInvalidAge     = errors.New("sim: age must be positive")
	ErrNotBlocked     = errors.New("sim: persona has not blocked the user")
	ErrImagesDisabled = errors.New("sim: image generation is disabled")
)

// ImageGenerator renders a prompt to encoded image bytes.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, string, error)
}

// Deps are the collaborators an Engine is built from. Images may be nil.
type Deps struct {
	Config     *config.Config
	Catalog    *persona.Catalog
	Store      store.Store
	Generator  llm.Generator
	Classifier safety.Classifier
	Images     ImageGenerator
	Clock      *schedule.Clock
	Log        *logger.Logger
	Rand       *rand.Rand
}

type Engine struct {
	cfg      *config.Config
	catalog  *persona.Catalog
	store    store.Store
	gen      llm.Generator
	economy  *relationship.Economy
	filter   *safety.Filter
	synth    *prompt.Synthesizer
	clock    *schedule.Clock
	images   ImageGenerator
	media    *media.Processor
	jobs     *jobs.Registry[*media.Image]
	locks    *userLocks
	defaults world.Defaults
	log      *logger.Logger
}

func NewEngine(d Deps) (*Engine, error) {
	if d.Config == nil {
		d.Config = config.Default()
	}
	if d.Catalog == nil || d.Store == nil || d.Generator == nil {
		return nil, errors.New("sim: catalog, store and generator are required")
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Clock == nil {
		clock, err := schedule.NewClock(d.Config.Schedule)
		if err != nil {
			return nil, err
		}
		d.Clock = clock
	}

	cfg := d.Config
	economy := relationship.NewEconomy(cfg.Social, d.Catalog, d.Log.With("component", "economy"))
	e := &Engine{
		cfg:      cfg,
		catalog:  d.Catalog,
		store:    d.Store,
		gen:      d.Generator,
		economy:  economy,
		filter:   safety.NewFilter(d.Classifier, economy, cfg.Safety, cfg.ModelSettings.ClassificationTimeout(), d.Log.With("component", "safety")),
		synth:    prompt.NewSynthesizer(economy, d.Catalog, cfg.Delays, d.Rand),
		clock:    d.Clock,
		media:    media.NewProcessor(cfg.Images.MaxDimension),
		jobs:     jobs.NewRegistry[*media.Image](cfg.Images.JobTimeout(), d.Log.With("component", "jobs")),
		locks:    newUserLocks(),
		defaults: world.Defaults{Score: cfg.Social.DefaultScore},
		log:      d.Log,
	}
	if cfg.Images.Enabled {
		e.images = d.Images
	}
	return e, nil
}

// Close stops outstanding image jobs.
func (e *Engine) Close() {
	e.jobs.Close()
}

func (e *Engine) Catalog() *persona.Catalog {
	return e.catalog
}

func (e *Engine) Economy() *relationship.Economy {
	return e.economy
}

func (e *Engine) persona(key string) (persona.Persona, error) {
	p, ok := e.catalog.Get(key)
	if !ok {
		return persona.Persona{}, fmt.Errorf("%w: %s", ErrUnknownPersona, key)
	}
	return p, nil
}

// load reads and hydrates the user's state. Callers hold the user lock.
func (e *Engine) load(ctx context.Context, userID string) (*world.State, error) {
	st, err := e.store.Read(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}
	if err != nil {
		return nil, err
	}
	st.Hydrate(e.catalog, e.defaults)
	return st, nil
}

// persist writes st. A failed write is logged, not returned: the turn
// already happened and its result still goes back to the caller.
func (e *Engine) persist(ctx context.Context, st *world.State) {
	st.UpdatedAt = time.Now().UTC()
	if err := e.store.Write(ctx, st); err != nil {
		e.log.Error("Failed to persist world state", "user", st.UserID, "error", err)
	}
}

func (e *Engine) CreateProfile(ctx context.Context, userID string, age int) (*world.State, error) {
	if age <= 0 {
		return nil, ErrInvalidAge
	}
	unlock := e.locks.lock(userID)
	defer unlock()

	_, err := e.store.Read(ctx, userID)
	if err == nil {
		return nil, fmt.Errorf("%w: %s", ErrProfileExists, userID)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	st := world.New(userID, age, e.catalog, e.defaults)
	if err := e.store.Write(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to save new profile: %w", err)
	}
	e.log.Info("Profile created", "user", userID, "role", st.UserRole)
	return st.Clone(), nil
}

// Reset re-seeds the user's social state. Transcripts are kept.
func (e *Engine) Reset(ctx context.Context, userID string) error {
	unlock := e.locks.lock(userID)
	defer unlock()

	st, err := e.load(ctx, userID)
	if err != nil {
		return err
	}
	st.Reset(e.catalog, e.defaults)
	if err := e.store.Write(ctx, st); err != nil {
		return fmt.Errorf("failed to save reset profile: %w", err)
	}
	e.log.Info("Profile reset", "user", userID)
	return nil
}

// Snapshot returns a copy of the user's hydrated state.
func (e *Engine) Snapshot(ctx context.Context, userID string) (*world.State, error) {
	unlock := e.locks.lock(userID)
	defer unlock()
	return e.load(ctx, userID)
}

// RosterEntry is one persona's standing with the user.
type RosterEntry struct {
	Key       string
	Name      string
	Group     persona.Group
	Score     int
	HasScore  bool
	Tier      relationship.Tier
	Reachable bool
	Blocked   bool
	Offline   bool
	// Dating is the persona's partner, or world.UserPlayer.
	Dating string
}

func (e *Engine) Status(ctx context.Context, userID string, now time.Time) ([]RosterEntry, error) {
	st, err := e.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	reading := e.clock.Read(now)

	var out []RosterEntry
	for _, p := range e.catalog.All() {
		entry := RosterEntry{
			Key:       p.Key,
			Name:      p.Name,
			Group:     p.Group,
			Reachable: schedule.IsReachableFor(p, st, reading),
			Blocked:   st.Blocked(p.Key),
			Offline:   st.Offline[p.Key],
			Dating:    st.Relationship(p.Key).Dating,
		}
		entry.Score, entry.HasScore = st.Score(p.Key)
		if entry.HasScore {
			entry.Tier = e.economy.TierOf(entry.Score)
		}
		out = append(out, entry)
	}
	return out, nil
}

// OpenResult reports whether a conversation can start right now.
type OpenResult struct {
	Persona   persona.Persona
	Reading   schedule.Reading
	Reachable bool
	Blocked   bool
	// LastLine is the most recent transcript line, for resuming.
	LastLine *world.Line
}

// Open checks reachability at the moment a conversation is opened. A
// persona that had gone offline and is reachable again comes back online.
func (e *Engine) Open(ctx context.Context, userID, key string, now time.Time) (*OpenResult, error) {
	p, err := e.persona(key)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.lock(userID)
	defer unlock()

	st, err := e.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := &OpenResult{
		Persona:   p,
		Reading:   e.clock.Read(now),
		Blocked:   st.Blocked(key),
		Reachable: false,
	}
	res.Reachable = schedule.IsReachableFor(p, st, res.Reading)
	if line, ok := st.LastLine(key); ok {
		res.LastLine = &line
	}

	if res.Reachable && st.Offline[key] {
		delete(st.Offline, key)
		e.persist(ctx, st)
	}
	return res, nil
}
