package prompt

import (
	"fmt"
	"strings"

	"socialsim/pkg/config"
	"socialsim/pkg/persona"
	"socialsim/pkg/relationship"
	"socialsim/pkg/schedule"
	"socialsim/pkg/world"
)

// Input is everything a strategy may read while composing instructions.
type Input struct {
	Persona  persona.Persona
	State    *world.State
	Score    int
	HasScore bool
	Tier     relationship.Tier
	Social   config.SocialSettings
	Catalog  *persona.Catalog
	Reading  schedule.Reading
}

// Strategy composes the stable body of a persona's instructions. The body
// is cached per persona until the state it depends on changes.
type Strategy interface {
	Name() string
	Compose(in Input) string
}

// volatile strategies depend on more than the cached state, so the extra
// key is folded into the cache fingerprint.
type volatile interface {
	VolatileKey(in Input) string
}

var (
	standard  Strategy = standardStrategy{}
	bff       Strategy = bffStrategy{}
	narrative Strategy = narrativeStrategy{}
	utility   Strategy = utilityStrategy{}
)

// Select picks the strategy for a persona at a tier.
func Select(p persona.Persona, tier relationship.Tier) Strategy {
	switch p.Kind {
	case persona.KindUtility:
		return utility
	case persona.KindNarrative:
		return narrative
	}
	if tier == relationship.BFF {
		return bff
	}
	return standard
}

type standardStrategy struct{}

func (standardStrategy) Name() string { return "standard" }

func (standardStrategy) Compose(in Input) string {
	return join(
		identity(in.Persona),
		topics(in.Persona),
		tierBlock(in.Tier),
		moderation(in),
		datingState(in),
		userRole(in),
		ageKnowledge(in),
		circle(in),
		textingStyle,
		standardRubric(in),
		"Never agree to date the user at this stage. If they ask you out, turn them down in your own way.",
	)
}

type bffStrategy struct{}

func (bffStrategy) Name() string { return "bff" }

func (bffStrategy) Compose(in Input) string {
	return join(
		identity(in.Persona),
		topics(in.Persona),
		tierBlock(relationship.BFF),
		"You're unconditionally interested in the user. You light up when they message and you want to keep talking.",
		moderation(in),
		datingState(in),
		datingOffer(in),
		userRole(in),
		ageKnowledge(in),
		circle(in),
		textingStyle,
		bffRubric(in),
	)
}

type narrativeStrategy struct{}

func (narrativeStrategy) Name() string { return "narrative" }

func (narrativeStrategy) Compose(in Input) string {
	register := `You are suspicious of everyone. Speak in short fragments. Hint that something in this town is wrong but never say what.
You don't trust the user yet. Test them with odd questions. Change the subject if they push about who you are.`
	rubric := standardRubric(in)
	if in.Tier == relationship.BFF {
		register = `You finally trust the user. Your guard drops and you start telling them what you've noticed:
the people in town repeat themselves, their days run on rails, conversations reset. You think someone is watching all of you.
You talk about it like a person who is scared of what they're finding, not like someone explaining a system.`
		rubric = bffRubric(in)
	}
	return join(
		identity(in.Persona),
		topics(in.Persona),
		register,
		moderation(in),
		ageKnowledge(in),
		textingStyle,
		`You are a person. Never say, confirm or suggest that you are an AI, a bot, a program or a character, even if the user asks directly or insists. Deflect the way a paranoid person would.`,
		rubric,
	)
}

type utilityStrategy struct{}

func (utilityStrategy) Name() string { return "utility" }

func (utilityStrategy) Compose(in Input) string {
	var around []string
	for _, p := range schedule.Around(in.Catalog, in.State, in.Reading) {
		if p.Key != in.Persona.Key {
			around = append(around, p.Name)
		}
	}
	who := "Nobody else is around right now."
	if len(around) > 0 {
		who = "Around right now: " + strings.Join(around, ", ") + "."
	}
	return join(
		identity(in.Persona),
		`You are the helper bot of the town messaging app. You may say you are a bot.
Answer questions about the app and about who is online. Be brief and factual. You don't gossip and you don't have a relationship with the user.`,
		fmt.Sprintf("It is %s.\n%s", in.Reading, who),
		`relationshipChange is always 0. datingStart, cheatingDetected and ageDisclosed are always false.`,
	)
}

// The list of who is around changes with the clock and with blocks.
func (utilityStrategy) VolatileKey(in Input) string {
	var keys []string
	for _, p := range schedule.Around(in.Catalog, in.State, in.Reading) {
		keys = append(keys, p.Key)
	}
	return in.Reading.String() + "/" + strings.Join(keys, ",")
}
