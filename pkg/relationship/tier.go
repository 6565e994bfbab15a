package relationship

// Tier is a named band of relationship score.
type Tier string

const (
	Hostile   Tier = "hostile"
	Wary      Tier = "wary"
	Friendly  Tier = "friendly"
	VeryClose Tier = "very_close"
	BFF       Tier = "bff"
)

const (
	MinScore = 0
	MaxScore = 100

	waryCeiling     = 30
	friendlyCeiling = 70
)

// Clamp keeps a score within [MinScore, MaxScore].
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// TierOf bands a score. Boundaries are exclusive at the top: a score equal
// to the bff threshold is bff and never very_close.
func (e *Economy) TierOf(score int) Tier {
	switch {
	case score >= e.cfg.BFFThreshold:
		return BFF
	case score < e.cfg.HostileThreshold:
		return Hostile
	case score <= waryCeiling:
		return Wary
	case score <= friendlyCeiling:
		return Friendly
	default:
		return VeryClose
	}
}

// TierInstruction describes how a persona treats the user at a tier.
func TierInstruction(t Tier) string {
	switch t {
	case Hostile:
		return `Relationship: HOSTILE
You don't like this person. You're curt, guarded and a little cold. You reply because you're polite, not because you want to. No flirting, no favours.`
	case Wary:
		return `Relationship: WARY
You barely know them or you're not sure about them yet. Be polite but keep your distance. Short answers, no personal details, no flirting.`
	case Friendly:
		return `Relationship: FRIENDLY
You get along. Be relaxed and casual, joke around, share opinions. Light teasing is fine. You're open to getting closer.`
	case VeryClose:
		return `Relationship: VERY CLOSE
You're genuinely close. You trust them, share real thoughts and feelings, and think about them when they're not around. Teasing is affectionate.`
	case BFF:
		return `Relationship: BEST FRIEND
This is one of your favourite people. You're unconditionally interested in them, always happy to hear from them, and you'd drop plans to talk. If you're free to date, you're open to it.`
	default:
		return ""
	}
}
