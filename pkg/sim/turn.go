package sim

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"socialsim/pkg/llm"
	"socialsim/pkg/persona"
	"socialsim/pkg/relationship"
	"socialsim/pkg/safety"
	"socialsim/pkg/schedule"
	"socialsim/pkg/world"
)

// Outcome says which path a turn took.
type Outcome string

const (
	OutcomeReply    Outcome = "reply"
	OutcomeAway     Outcome = "away"
	OutcomeBlocked  Outcome = "blocked"
	OutcomeFiltered Outcome = "filtered"
	OutcomeFailed   Outcome = "failed"
)

// TurnResult is what one Send did. Reply is empty when the persona says
// nothing back.
type TurnResult struct {
	Persona      string
	Outcome      Outcome
	Reply        string
	DelaySeconds int
	Transition   relationship.Transition
	Breakups     []relationship.Breakup
	CaughtBy     []string
	GossipedTo   []string
	Violation    safety.Category
	ImageJobID   string
	// Err carries the contained failure behind OutcomeFailed.
	Err error
}

// Send runs one user message through the turn pipeline. Work happens on a
// copy of the stored state; failures fall back to the stored state plus the
// user's message and a system line.
func (e *Engine) Send(ctx context.Context, userID, key, text string, now time.Time) (*TurnResult, error) {
	p, err := e.persona(key)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("sim: empty message")
	}

	unlock := e.locks.lock(userID)
	defer unlock()

	stored, err := e.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	log := e.log.With("user", userID, "persona", key)
	res := &TurnResult{Persona: key, Violation: safety.None}

	if stored.Blocked(key) {
		res.Outcome = OutcomeBlocked
		return res, nil
	}

	work := stored.Clone()
	reading := e.clock.Read(now)

	if !schedule.IsReachable(p, reading) {
		e.goAway(work, p, text, res)
		e.persist(ctx, work)
		log.Debug("Persona unreachable at send time", "reading", reading.String())
		return res, nil
	}
	delete(work.Offline, key)

	if verdict := e.filter.Check(ctx, text, p, work); verdict.Violation {
		e.applyVerdict(work, p, text, verdict, res)
		e.persist(ctx, work)
		return res, nil
	}

	work.AppendLine(key, world.RoleUser, text)
	e.compact(ctx, p, work)

	instr := e.synth.Build(p, work, reading)
	history := toTurns(work.RecentTurns(key, e.cfg.Transcript.HistoryTurns))
	result, err := e.generate(ctx, instr.Request(history))
	if err != nil {
		log.Warn("Turn generation failed", "error", err)
		stored.AppendLine(key, world.RoleUser, text)
		stored.AppendLine(key, world.RoleSystem, fmt.Sprintf("(%s couldn't reply: %v)", p.Name, err))
		e.persist(ctx, stored)
		res.Outcome = OutcomeFailed
		res.Reply = pick(fallbackReplies, text)
		res.Err = err
		return res, nil
	}

	scoreBefore, _ := work.Score(key)
	if err := e.applyResult(work, p, result, res); err != nil {
		log.Error("Failed to apply turn result", "error", err)
	}
	if err := relationship.CheckDating(work); err != nil {
		log.Error("Dating graph inconsistent after turn", "error", err)
	}
	work.AppendLine(key, world.RoleModel, result.Reply)
	res.Outcome = OutcomeReply
	res.Reply = result.Reply
	res.DelaySeconds = result.ResponseDelaySeconds
	if res.DelaySeconds == 0 {
		res.DelaySeconds = instr.DelayHint
	}

	if result.IsImageRequest && scoreBefore == relationship.MaxScore {
		if id, err := e.submitImage(p); err != nil {
			log.Warn("Image request not started", "error", err)
		} else {
			res.ImageJobID = id
			work.AppendLine(key, world.RoleSystem, fmt.Sprintf("(%s is taking a photo... job %s)", p.Name, id))
		}
	}

	e.persist(ctx, work)
	log.Debug("Turn complete", "delta", res.Transition.To-res.Transition.From, "tier", res.Transition.ToTier, "cache_hit", instr.CacheHit)
	return res, nil
}

// goAway handles a persona that went out of reach between open and send.
// The message is still delivered; the goodbye is said once.
func (e *Engine) goAway(st *world.State, p persona.Persona, text string, res *TurnResult) {
	res.Outcome = OutcomeAway
	st.AppendLine(p.Key, world.RoleUser, text)
	if st.Offline[p.Key] {
		return
	}
	res.Reply = farewell(p, text)
	st.AppendLine(p.Key, world.RoleModel, res.Reply)
	st.AppendLine(p.Key, world.RoleSystem, fmt.Sprintf("(%s went offline)", p.Name))
	st.Offline[p.Key] = true
}

func (e *Engine) applyVerdict(st *world.State, p persona.Persona, text string, v safety.Verdict, res *TurnResult) {
	res.Outcome = OutcomeFiltered
	res.Violation = v.Category
	res.Reply = v.Reply

	st.AppendLine(p.Key, world.RoleUser, text)
	if v.FirstWarning {
		st.ModerationFor(p.Key).ViolenceWarning = true
	}
	t, err := e.economy.ApplyScoreChange(st, p.Key, v.ScoreDelta)
	if err != nil {
		e.log.Error("Failed to apply safety penalty", "persona", p.Key, "error", err)
	}
	res.Transition = t
	st.AppendLine(p.Key, world.RoleModel, v.Reply)
	e.synth.Invalidate(st, p.Key)
}

// applyResult applies the structured result in a fixed order: cheating,
// dating, disclosure, then the score change and its tier side effects.
func (e *Engine) applyResult(st *world.State, p persona.Persona, r *llm.Result, res *TurnResult) error {
	if r.CaughtCheating() {
		res.CaughtBy = e.economy.HandleCheatingDetected(st)
		for _, k := range res.CaughtBy {
			e.synth.Invalidate(st, k)
		}
	}

	if r.WantsDating() {
		breakups, err := e.economy.StartDating(st, p.Key)
		switch {
		case errors.Is(err, relationship.ErrNotEligible):
			e.log.Debug("Dating start ignored for ineligible persona", "persona", p.Key)
		case errors.Is(err, relationship.ErrNotBFF):
			e.log.Debug("Dating start ignored below bff", "persona", p.Key)
		case err != nil:
			return err
		}
		res.Breakups = breakups
		for _, b := range breakups {
			e.synth.Invalidate(st, b.Ex)
		}
	}

	if r.DisclosedAge() {
		res.GossipedTo = e.economy.PropagateAgeDisclosure(st, p.Key)
		for _, k := range res.GossipedTo {
			e.synth.Invalidate(st, k)
		}
	}

	t, err := e.economy.ApplyScoreChange(st, p.Key, e.economy.ClampTurnDelta(r.RelationshipChange))
	if err != nil {
		return err
	}
	res.Transition = t
	if t.Forgiven != "" {
		e.synth.Invalidate(st, t.Forgiven)
	}
	return nil
}

func (e *Engine) generate(ctx context.Context, req llm.Request) (*llm.Result, error) {
	raw, err := e.call(ctx, req)
	if err != nil {
		return nil, err
	}
	return llm.ParseResult(raw)
}

// call bounds a generator call by the configured timeout.
func (e *Engine) call(ctx context.Context, req llm.Request) (string, error) {
	if timeout := e.cfg.ModelSettings.GenerationTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return e.gen.Generate(ctx, req)
}

// compact folds the older half of an oversized transcript into the
// persona's running summary. The transcript itself is never trimmed.
func (e *Engine) compact(ctx context.Context, p persona.Persona, st *world.State) {
	limit := e.cfg.Transcript.SummarizeAfterLines
	if limit <= 0 {
		return
	}
	lines := st.Lines(p.Key)
	done := st.SummarizedThrough[p.Key]
	if done > len(lines) {
		done = 0
	}
	pending := len(lines) - done
	if pending <= limit {
		return
	}
	cut := done + pending/2

	instr := e.synth.BuildSummary(p, st.ChatSummaries[p.Key], lines[done:cut])
	raw, err := e.call(ctx, instr.Request([]llm.Turn{{Role: llm.RoleUser, Text: "Summarise the conversation."}}))
	if err == nil {
		var summary string
		if summary, err = llm.ParseSummary(raw); err == nil {
			st.ChatSummaries[p.Key] = summary
			st.SummarizedThrough[p.Key] = cut
			e.log.Debug("Transcript compacted", "user", st.UserID, "persona", p.Key, "through", cut)
			return
		}
	}
	e.log.Warn("Transcript summary failed, sending full window", "user", st.UserID, "persona", p.Key, "error", err)
}

func toTurns(lines []world.Line) []llm.Turn {
	turns := make([]llm.Turn, 0, len(lines))
	for _, l := range lines {
		role := llm.RoleUser
		if l.Role == world.RoleModel {
			role = llm.RoleModel
		}
		turns = append(turns, llm.Turn{Role: role, Text: l.Text})
	}
	return turns
}
