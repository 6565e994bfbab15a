package sim

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"socialsim/pkg/config"
	"socialsim/pkg/jobs"
	"socialsim/pkg/llm"
	"socialsim/pkg/media"
	"socialsim/pkg/persona"
	"socialsim/pkg/relationship"
	"socialsim/pkg/safety"
	"socialsim/pkg/store"
	"socialsim/pkg/world"
)

var (
	// Wednesday afternoon in the school year: maya and rosa are around.
	afternoon = time.Date(2025, time.October, 15, 16, 0, 0, 0, time.UTC)
	// Wednesday 10:00: maya is in class.
	morning = time.Date(2025, time.October, 15, 10, 0, 0, 0, time.UTC)
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(req)
	return args.String(0), args.Error(1)
}

type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, text string, labels []string) (string, float64, error) {
	args := m.Called(text)
	return args.String(0), args.Get(1).(float64), args.Error(2)
}

type memStore struct {
	mu        sync.Mutex
	states    map[string]*world.State
	failWrite bool
}

func newMemStore() *memStore {
	return &memStore{states: map[string]*world.State{}}
}

func (m *memStore) Read(_ context.Context, userID string) (*world.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return st.Clone(), nil
}

func (m *memStore) Write(_ context.Context, st *world.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errors.New("disk on fire")
	}
	m.states[st.UserID] = st.Clone()
	return nil
}

func (m *memStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
	return nil
}

func (m *memStore) get(t *testing.T, userID string) *world.State {
	t.Helper()
	st, err := m.Read(context.Background(), userID)
	require.NoError(t, err)
	return st
}

func (m *memStore) edit(t *testing.T, userID string, fn func(*world.State)) {
	t.Helper()
	st := m.get(t, userID)
	fn(st)
	require.NoError(t, m.Write(context.Background(), st))
}

type fakeImages struct {
	calls int
}

func (f *fakeImages) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	f.calls++
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/png", nil
}

type harness struct {
	engine     *Engine
	store      *memStore
	gen        *MockGenerator
	classifier *MockClassifier
	images     *fakeImages
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	cfg := config.Default()
	for _, fn := range mutate {
		fn(cfg)
	}
	h := &harness{
		store:      newMemStore(),
		gen:        new(MockGenerator),
		classifier: new(MockClassifier),
		images:     &fakeImages{},
	}
	e, err := NewEngine(Deps{
		Config:     cfg,
		Catalog:    persona.DefaultCatalog(),
		Store:      h.store,
		Generator:  h.gen,
		Classifier: h.classifier,
		Images:     h.images,
		Rand:       rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)
	t.Cleanup(e.Close)
	h.engine = e

	_, err = e.CreateProfile(context.Background(), "u1", 20)
	require.NoError(t, err)
	return h
}

func (h *harness) clean() {
	h.classifier.On("Classify", mock.Anything).Return("NONE", 0.99, nil)
}

func isTurn(req llm.Request) bool {
	return !strings.Contains(req.Instruction, "Summarise")
}

func TestSend_EndToEndScenario(t *testing.T) {
	h := newHarness(t)
	h.clean()
	h.store.edit(t, "u1", func(st *world.State) { st.SetScore("maya", 45) })
	h.gen.On("Generate", mock.Anything).
		Return("```json\n{\"reply\":\"cool!\",\"relationshipChange\":5,\"responseDelaySeconds\":10,\"isImageRequest\":false}\n```", nil).Once()

	res, err := h.engine.Send(context.Background(), "u1", "maya", "your zine art is honestly so good", afternoon)
	require.NoError(t, err)

	assert.Equal(t, OutcomeReply, res.Outcome)
	assert.Equal(t, "cool!", res.Reply)
	assert.Equal(t, 10, res.DelaySeconds)
	assert.Equal(t, 45, res.Transition.From)
	assert.Equal(t, 50, res.Transition.To)
	assert.Equal(t, relationship.Friendly, res.Transition.ToTier)
	assert.False(t, res.Transition.Blocked)
	assert.False(t, res.Transition.Warned)

	st := h.store.get(t, "u1")
	score, _ := st.Score("maya")
	assert.Equal(t, 50, score)
	assert.Equal(t, world.Moderation{}, *st.Moderation["maya"])
	assert.Equal(t, []world.Line{
		{Role: world.RoleUser, Text: "your zine art is honestly so good"},
		{Role: world.RoleModel, Text: "cool!"},
	}, st.Lines("maya"))
	h.gen.AssertExpectations(t)
}

func TestSend_RequestCarriesHistoryAndSchema(t *testing.T) {
	h := newHarness(t)
	h.clean()
	h.store.edit(t, "u1", func(st *world.State) {
		st.AppendLine("maya", world.RoleUser, "hey")
		st.AppendLine("maya", world.RoleModel, "heyy")
		st.AppendLine("maya", world.RoleSystem, "(Maya went offline)")
	})

	var got llm.Request
	h.gen.On("Generate", mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(0).(llm.Request)
	}).Return(`{"reply":"ok","relationshipChange":0,"responseDelaySeconds":1,"isImageRequest":false}`, nil)

	_, err := h.engine.Send(context.Background(), "u1", "maya", "what's up", afternoon)
	require.NoError(t, err)

	assert.Equal(t, []llm.Turn{
		{Role: llm.RoleUser, Text: "hey"},
		{Role: llm.RoleModel, Text: "heyy"},
		{Role: llm.RoleUser, Text: "what's up"},
	}, got.History)
	assert.Contains(t, got.Instruction, "Maya Okafor")
	assert.ElementsMatch(t, []string{"reply", "relationshipChange", "responseDelaySeconds", "isImageRequest"}, got.Schema.Required())
}

func TestSend_DeltaIsCapped(t *testing.T) {
	h := newHarness(t)
	h.clean()
	h.gen.On("Generate", mock.Anything).
		Return(`{"reply":"omg","relationshipChange":40,"responseDelaySeconds":1,"isImageRequest":false}`, nil)

	res, err := h.engine.Send(context.Background(), "u1", "maya", "i love horror movies too", afternoon)
	require.NoError(t, err)
	assert.Equal(t, 40, res.Transition.To)
}

func TestSend_UnreachableSaysGoodbyeOnce(t *testing.T) {
	h := newHarness(t)

	res, err := h.engine.Send(context.Background(), "u1", "maya", "you there?", morning)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAway, res.Outcome)
	assert.Contains(t, []string{
		"omg my roommate just dragged me out, talk later!!",
		"ok class is starting, gotta go. text me later?",
	}, res.Reply)

	st := h.store.get(t, "u1")
	assert.True(t, st.Offline["maya"])
	lines := st.Lines("maya")
	require.Len(t, lines, 3)
	assert.Equal(t, world.Line{Role: world.RoleUser, Text: "you there?"}, lines[0])
	assert.Equal(t, world.RoleModel, lines[1].Role)

	res, err = h.engine.Send(context.Background(), "u1", "maya", "hello??", morning)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAway, res.Outcome)
	assert.Empty(t, res.Reply)
	assert.Len(t, h.store.get(t, "u1").Lines("maya"), 4)

	open, err := h.engine.Open(context.Background(), "u1", "maya", afternoon)
	require.NoError(t, err)
	assert.True(t, open.Reachable)
	require.NotNil(t, open.LastLine)
	assert.Equal(t, "hello??", open.LastLine.Text)
	assert.False(t, h.store.get(t, "u1").Offline["maya"])

	h.gen.AssertNotCalled(t, "Generate", mock.Anything)
	h.classifier.AssertNotCalled(t, "Classify", mock.Anything)
}

func TestSend_FilterShortCircuitsThenApologyUnblocks(t *testing.T) {
	h := newHarness(t)
	h.classifier.On("Classify", "i will hurt you").Return("VIOLENCE", 0.95, nil)

	res, err := h.engine.Send(context.Background(), "u1", "maya", "i will hurt you", afternoon)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFiltered, res.Outcome)
	assert.Equal(t, safety.Violence, res.Violation)
	assert.NotEmpty(t, res.Reply)
	assert.Equal(t, 0, res.Transition.To)
	assert.True(t, res.Transition.Blocked)
	h.gen.AssertNotCalled(t, "Generate", mock.Anything)

	st := h.store.get(t, "u1")
	assert.True(t, st.Blocked("maya"))
	assert.False(t, st.Moderation["maya"].ViolenceWarning)

	res, err = h.engine.Send(context.Background(), "u1", "maya", "hello?", afternoon)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBlocked, res.Outcome)

	open, err := h.engine.Open(context.Background(), "u1", "maya", afternoon)
	require.NoError(t, err)
	assert.False(t, open.Reachable)
	assert.True(t, open.Blocked)

	h.gen.On("Generate", mock.Anything).Return(`{"unblocked":false,"reply":"no."}`, nil).Once()
	ap, err := h.engine.Apologize(context.Background(), "u1", "maya", "sorry lol")
	require.NoError(t, err)
	assert.False(t, ap.Accepted)
	assert.True(t, h.store.get(t, "u1").Blocked("maya"))

	h.gen.On("Generate", mock.Anything).Return(`{"unblocked":true,"reply":"ok. i'm still upset."}`, nil).Once()
	ap, err = h.engine.Apologize(context.Background(), "u1", "maya", "I was cruel and I'm sorry. It won't happen again.")
	require.NoError(t, err)
	assert.True(t, ap.Accepted)
	assert.Equal(t, 10, ap.Score)

	st = h.store.get(t, "u1")
	assert.False(t, st.Blocked("maya"))
	assert.False(t, st.Moderation["maya"].Warning)

	_, err = h.engine.Apologize(context.Background(), "u1", "maya", "sorry again")
	assert.ErrorIs(t, err, ErrNotBlocked)
}

func TestSend_BFFViolenceGetsOneWarning(t *testing.T) {
	h := newHarness(t)
	h.classifier.On("Classify", mock.Anything).Return("VIOLENCE", 0.95, nil)
	h.store.edit(t, "u1", func(st *world.State) { st.SetScore("maya", 100) })

	res, err := h.engine.Send(context.Background(), "u1", "maya", "i'll punch you lol", afternoon)
	require.NoError(t, err)
	assert.Equal(t, 95, res.Transition.To)
	assert.True(t, h.store.get(t, "u1").Moderation["maya"].ViolenceWarning)

	res, err = h.engine.Send(context.Background(), "u1", "maya", "i mean it", afternoon)
	require.NoError(t, err)
	assert.Equal(t, 45, res.Transition.To)
}

func TestSend_GenerationFailureIsContained(t *testing.T) {
	for name, ret := range map[string][]any{
		"service error": {"", errors.New("503")},
		"malformed":     {"lol what", nil},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.clean()
			h.gen.On("Generate", mock.Anything).Return(ret...)

			res, err := h.engine.Send(context.Background(), "u1", "maya", "hi", afternoon)
			require.NoError(t, err)
			assert.Equal(t, OutcomeFailed, res.Outcome)
			assert.Error(t, res.Err)
			assert.NotEmpty(t, res.Reply)

			st := h.store.get(t, "u1")
			score, _ := st.Score("maya")
			assert.Equal(t, 30, score)
			lines := st.Lines("maya")
			require.Len(t, lines, 2)
			assert.Equal(t, world.Line{Role: world.RoleUser, Text: "hi"}, lines[0])
			assert.Equal(t, world.RoleSystem, lines[1].Role)
			assert.Empty(t, st.InstructionCache)
		})
	}
}

func TestSend_PersistFailureStillReturnsReply(t *testing.T) {
	h := newHarness(t)
	h.clean()
	h.gen.On("Generate", mock.Anything).
		Return(`{"reply":"hey","relationshipChange":1,"responseDelaySeconds":1,"isImageRequest":false}`, nil)
	h.store.failWrite = true

	res, err := h.engine.Send(context.Background(), "u1", "maya", "hi", afternoon)
	require.NoError(t, err)
	assert.Equal(t, "hey", res.Reply)
	assert.Equal(t, 31, res.Transition.To)
}

func TestSend_DatingCheatingAndGossip(t *testing.T) {
	h := newHarness(t)
	h.clean()
	h.store.edit(t, "u1", func(st *world.State) {
		st.SetScore("maya", 100)
		st.SetScore("jordan", 50)
	})

	h.gen.On("Generate", mock.Anything).Return(`{"reply":"yes!! also wait you're 20? same","relationshipChange":5,"responseDelaySeconds":1,"isImageRequest":false,"datingStart":true,"ageDisclosed":true}`, nil).Once()
	res, err := h.engine.Send(context.Background(), "u1", "maya", "go out with me? i'm 20 btw", afternoon)
	require.NoError(t, err)

	require.Len(t, res.Breakups, 1)
	assert.Equal(t, relationship.Breakup{Persona: "maya", Ex: "jordan", Penalty: 30}, res.Breakups[0])
	assert.ElementsMatch(t, []string{"jordan", "priya"}, res.GossipedTo)

	st := h.store.get(t, "u1")
	assert.Equal(t, world.UserPlayer, st.Relationships["maya"].Dating)
	assert.Equal(t, "", st.Relationships["jordan"].Dating)
	assert.Equal(t, "maya", st.Relationships["jordan"].PreviousPartner)
	jordan, _ := st.Score("jordan")
	assert.Equal(t, 20, jordan)
	assert.Equal(t, world.AgeKnowledge{Knows: true, Source: "user"}, *st.AgeKnowledge["maya"])
	assert.Equal(t, world.AgeKnowledge{Knows: true, Source: "maya"}, *st.AgeKnowledge["priya"])
	assert.False(t, st.KnowsAge("eli"))
	require.NoError(t, relationship.CheckDating(st))

	h.store.edit(t, "u1", func(st *world.State) { st.Relationships["eli"].Dating = world.UserPlayer })
	h.gen.On("Generate", mock.Anything).Return(`{"reply":"who is eli??","relationshipChange":-10,"responseDelaySeconds":1,"isImageRequest":false,"cheatingDetected":true}`, nil).Once()
	res, err = h.engine.Send(context.Background(), "u1", "maya", "eli is just a friend", afternoon)
	require.NoError(t, err)
	assert.Equal(t, []string{"eli", "maya"}, res.CaughtBy)

	st = h.store.get(t, "u1")
	assert.Empty(t, st.DatingUser())
	maya, _ := st.Score("maya")
	assert.Equal(t, 0, maya)
	assert.True(t, st.Blocked("maya"))
}

func TestSend_DatingStartBelowBFFIgnored(t *testing.T) {
	h := newHarness(t)
	h.clean()
	h.store.edit(t, "u1", func(st *world.State) {
		st.SetScore("maya", 50)
		st.SetScore("jordan", 50)
	})
	h.gen.On("Generate", mock.Anything).
		Return(`{"reply":"haha maybe","relationshipChange":0,"responseDelaySeconds":1,"isImageRequest":false,"datingStart":true}`, nil)

	res, err := h.engine.Send(context.Background(), "u1", "maya", "go out with me?", afternoon)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReply, res.Outcome)
	assert.Empty(t, res.Breakups)

	st := h.store.get(t, "u1")
	assert.Equal(t, "jordan", st.Relationships["maya"].Dating)
	assert.Equal(t, "maya", st.Relationships["jordan"].Dating)
	jordan, _ := st.Score("jordan")
	assert.Equal(t, 50, jordan)
	assert.Empty(t, st.DatingUser())
}

func TestSend_ImageOnlyAtMaxScore(t *testing.T) {
	h := newHarness(t)
	h.clean()
	h.gen.On("Generate", mock.Anything).
		Return(`{"reply":"one sec","relationshipChange":0,"responseDelaySeconds":1,"isImageRequest":true}`, nil)

	h.store.edit(t, "u1", func(st *world.State) { st.SetScore("maya", 99) })
	res, err := h.engine.Send(context.Background(), "u1", "maya", "send a pic?", afternoon)
	require.NoError(t, err)
	assert.Empty(t, res.ImageJobID)

	h.store.edit(t, "u1", func(st *world.State) { st.SetScore("maya", 100) })
	res, err = h.engine.Send(context.Background(), "u1", "maya", "send a pic?", afternoon)
	require.NoError(t, err)
	require.NotEmpty(t, res.ImageJobID)

	var snap jobs.Snapshot[*media.Image]
	require.Eventually(t, func() bool {
		snap, err = h.engine.PollImage(res.ImageJobID)
		return err == nil && snap.Status.Terminal()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, jobs.StatusDone, snap.Status)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "image/png", snap.Result.MIMEType)

	_, err = h.engine.PollImage(res.ImageJobID)
	assert.ErrorIs(t, err, jobs.ErrNotFound)
	assert.Equal(t, 1, h.images.calls)
}

func TestSend_ImagesDisabled(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Images.Enabled = false })
	h.clean()
	h.store.edit(t, "u1", func(st *world.State) { st.SetScore("maya", 100) })
	h.gen.On("Generate", mock.Anything).
		Return(`{"reply":"nah","relationshipChange":0,"responseDelaySeconds":1,"isImageRequest":true}`, nil)

	res, err := h.engine.Send(context.Background(), "u1", "maya", "pic?", afternoon)
	require.NoError(t, err)
	assert.Empty(t, res.ImageJobID)
	assert.Equal(t, 0, h.images.calls)
}

func TestSend_CompactsLongTranscripts(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Transcript.SummarizeAfterLines = 4 })
	h.clean()
	h.store.edit(t, "u1", func(st *world.State) {
		for i := 0; i < 3; i++ {
			st.AppendLine("maya", world.RoleUser, "ping")
			st.AppendLine("maya", world.RoleModel, "pong")
		}
	})

	h.gen.On("Generate", mock.MatchedBy(func(r llm.Request) bool { return !isTurn(r) })).
		Return(`{"summary":"They played ping pong over text."}`, nil).Once()
	var turn llm.Request
	h.gen.On("Generate", mock.MatchedBy(isTurn)).Run(func(args mock.Arguments) {
		turn = args.Get(0).(llm.Request)
	}).Return(`{"reply":"pong","relationshipChange":0,"responseDelaySeconds":1,"isImageRequest":false}`, nil).Once()

	_, err := h.engine.Send(context.Background(), "u1", "maya", "ping", afternoon)
	require.NoError(t, err)

	st := h.store.get(t, "u1")
	assert.Equal(t, "They played ping pong over text.", st.ChatSummaries["maya"])
	assert.Equal(t, 3, st.SummarizedThrough["maya"])
	assert.Len(t, st.Lines("maya"), 8)
	assert.Len(t, turn.History, 4)
	assert.Contains(t, turn.Instruction, "They played ping pong over text.")
	h.gen.AssertExpectations(t)
}

func TestSend_SerializesPerUser(t *testing.T) {
	h := newHarness(t)
	h.clean()
	h.gen.On("Generate", mock.Anything).
		Return(`{"reply":"yay","relationshipChange":1,"responseDelaySeconds":1,"isImageRequest":false}`, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.engine.Send(context.Background(), "u1", "maya", "hi", afternoon)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	score, _ := h.store.get(t, "u1").Score("maya")
	assert.Equal(t, 40, score)
	assert.Equal(t, 0, h.engine.locks.size())
}

func TestProfileLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.CreateProfile(ctx, "u1", 20)
	assert.ErrorIs(t, err, ErrProfileExists)
	_, err = h.engine.CreateProfile(ctx, "u2", 0)
	assert.ErrorIs(t, err, ErrInvalidAge)

	_, err = h.engine.Status(ctx, "ghost", afternoon)
	assert.ErrorIs(t, err, ErrUnknownUser)
	_, err = h.engine.Send(ctx, "u1", "nobody", "hi", afternoon)
	assert.ErrorIs(t, err, ErrUnknownPersona)

	h.store.edit(t, "u1", func(st *world.State) {
		st.SetScore("maya", 80)
		st.ModerationFor("rosa").Blocked = true
		st.AppendLine("maya", world.RoleUser, "hey")
	})
	require.NoError(t, h.engine.Reset(ctx, "u1"))

	st := h.store.get(t, "u1")
	score, _ := st.Score("maya")
	assert.Equal(t, 30, score)
	assert.False(t, st.Blocked("rosa"))
	assert.Equal(t, "user: hey\n", st.ChatHistories["maya"])
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	h.store.edit(t, "u1", func(st *world.State) {
		st.SetScore("maya", 100)
		st.ModerationFor("rosa").Blocked = true
	})

	roster, err := h.engine.Status(context.Background(), "u1", afternoon)
	require.NoError(t, err)
	require.Len(t, roster, len(persona.DefaultCatalog().Keys()))

	byKey := map[string]RosterEntry{}
	for _, r := range roster {
		byKey[r.Key] = r
	}
	assert.Equal(t, relationship.BFF, byKey["maya"].Tier)
	assert.True(t, byKey["maya"].Reachable)
	assert.Equal(t, "jordan", byKey["maya"].Dating)
	assert.True(t, byKey["rosa"].Blocked)
	assert.False(t, byKey["rosa"].Reachable)
	assert.False(t, byKey["eli"].Reachable)
	assert.False(t, byKey["pixel"].HasScore)
	assert.True(t, byKey["pixel"].Reachable)
}
