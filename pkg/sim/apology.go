package sim

import (
	"context"
	"fmt"
	"strings"

	"socialsim/pkg/llm"
	"socialsim/pkg/world"
)

type ApologyResult struct {
	Persona  string
	Accepted bool
	Reply    string
	Score    int
	// Err carries a contained generator failure; the persona stays blocked.
	Err error
}

// Apologize lets the user ask a persona that blocked them for another
// chance. The persona judges the text in character. Rejected apologies can
// be retried; each attempt is judged afresh.
func (e *Engine) Apologize(ctx context.Context, userID, key, text string) (*ApologyResult, error) {
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
	if !st.Blocked(key) {
		return nil, fmt.Errorf("%w: %s", ErrNotBlocked, key)
	}
	text = strings.TrimSpace(text)
	res := &ApologyResult{Persona: key}

	instr := e.synth.BuildApology(p, st)
	raw, err := e.call(ctx, instr.Request([]llm.Turn{{Role: llm.RoleUser, Text: text}}))
	var verdict *llm.ApologyVerdict
	if err == nil {
		verdict, err = llm.ParseApology(raw)
	}

	st.AppendLine(key, world.RoleUser, text)
	if err != nil {
		e.log.Warn("Apology judgement failed", "user", userID, "persona", key, "error", err)
		st.AppendLine(key, world.RoleSystem, fmt.Sprintf("(%s couldn't read your apology: %v)", p.Name, err))
		e.persist(ctx, st)
		res.Reply = pick(apologyFallbackReplies, text)
		res.Err = err
		return res, nil
	}

	if err := e.economy.ApplyApology(st, key, verdict.Unblocked); err != nil {
		return nil, err
	}
	e.synth.Invalidate(st, key)
	st.AppendLine(key, world.RoleModel, verdict.Reply)
	if verdict.Unblocked {
		st.AppendLine(key, world.RoleSystem, fmt.Sprintf("(%s unblocked you)", p.Name))
	}
	e.persist(ctx, st)

	res.Accepted = verdict.Unblocked
	res.Reply = verdict.Reply
	res.Score, _ = st.Score(key)
	e.log.Info("Apology judged", "user", userID, "persona", key, "accepted", res.Accepted)
	return res, nil
}
