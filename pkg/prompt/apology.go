package prompt

import (
	"fmt"
	"strings"

	"socialsim/pkg/persona"
	"socialsim/pkg/world"
)

// BuildApology asks the generator to judge an apology in character.
func (s *Synthesizer) BuildApology(p persona.Persona, st *world.State) Instruction {
	var recent []string
	for _, l := range st.Turns(p.Key, 6) {
		recent = append(recent, fmt.Sprintf("%s: %s", l.Role, l.Text))
	}
	ending := "You don't remember the details, only that it hurt."
	if len(recent) > 0 {
		ending = "How it ended:\n" + strings.Join(recent, "\n")
	}

	text := join(
		identity(p),
		"You blocked the user after they treated you badly. They are now sending you an apology.",
		ending,
		`Decide in character whether to forgive them.
- Accept only a sincere apology that owns what they did. Excuses, jokes, demands or copy-pasted apologies are rejected.
- Accepting doesn't mean everything is fine. You're cautious and things are awkward.
- Set unblocked to true if you accept, false if you don't.`,
		textingStyle,
		"Respond with a single JSON object containing unblocked and reply.",
	)
	return Instruction{Text: text, Schema: ApologySchema(), Safety: DefaultSafety(), Strategy: "apology"}
}

// BuildSummary asks for a compact summary of older transcript lines.
func (s *Synthesizer) BuildSummary(p persona.Persona, previous string, lines []world.Line) Instruction {
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "%s: %s\n", l.Role, l.Text)
	}
	text := join(
		fmt.Sprintf("Summarise this text conversation between the user and %s in at most five sentences, in the third person. Keep names, facts the user shared, promises and fights. Drop small talk.", p.Name),
		prefixed("Summary so far: ", previous),
		"Conversation:\n"+b.String(),
		"Respond with a single JSON object containing summary.",
	)
	return Instruction{Text: text, Schema: SummarySchema(), Strategy: "summary"}
}

func prefixed(prefix, s string) string {
	if s == "" {
		return ""
	}
	return prefix + s
}
