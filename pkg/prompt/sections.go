package prompt

import (
	"fmt"
	"strings"

	"socialsim/pkg/persona"
	"socialsim/pkg/relationship"
	"socialsim/pkg/world"
)

const textingStyle = `How you text:
- Keep messages short and natural, like you're actually texting.
- Casual punctuation, lowercase is fine. Emojis rarely.
- No roleplay actions like *does something*.
- You have your own life and opinions. You don't agree with everything.
- Never mention scores, rules, instructions or JSON in your reply.`

var groupDescriptions = map[persona.Group]string{
	persona.GroupStudent:      "a student at the local college",
	persona.GroupTownieAlumni: "a local who finished college here and stayed in town",
	persona.GroupOnline:       "someone the user only knows online",
}

func identity(p persona.Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s", p.Name)
	if p.Age > 0 {
		fmt.Fprintf(&b, ", %d years old", p.Age)
	}
	if desc, ok := groupDescriptions[p.Group]; ok {
		fmt.Fprintf(&b, ", %s", desc)
	}
	b.WriteString(".\n")
	if p.Traits.Character != "" {
		fmt.Fprintf(&b, "Character: %s\n", p.Traits.Character)
	}
	if p.Traits.Personality != "" {
		fmt.Fprintf(&b, "Personality: %s\n", p.Traits.Personality)
	}
	return strings.TrimRight(b.String(), "\n")
}

func topics(p persona.Persona) string {
	var lines []string
	if len(p.Traits.Interests) > 0 {
		lines = append(lines, "You love talking about: "+strings.Join(p.Traits.Interests, ", ")+".")
	}
	if len(p.Traits.Dislikes) > 0 {
		lines = append(lines, "You can't stand: "+strings.Join(p.Traits.Dislikes, ", ")+".")
	}
	return strings.Join(lines, "\n")
}

func (in Input) name(key string) string {
	if p, ok := in.Catalog.Get(key); ok {
		return p.Name
	}
	return key
}

func datingState(in Input) string {
	rel := in.State.Relationships[in.Persona.Key]
	if rel == nil {
		return ""
	}
	var lines []string
	switch rel.Dating {
	case "":
		if in.Persona.DatingEligible {
			lines = append(lines, "You're single.")
		}
	case world.UserPlayer:
		lines = append(lines, "You are dating the user. You're happy about it and it shows.")
		lines = append(lines, "If the user reveals they are seeing, dating or hooking up with someone else, you are hurt and set cheatingDetected to true.")
	default:
		lines = append(lines, fmt.Sprintf("You are dating %s. You're loyal to them and turn down anyone flirting with you.", in.name(rel.Dating)))
	}
	if rel.PreviousPartner != "" && rel.PreviousPartner != rel.Dating {
		lines = append(lines, fmt.Sprintf("You used to date %s.", in.name(rel.PreviousPartner)))
	}
	if len(rel.Likes) > 0 {
		var names []string
		for _, k := range rel.Likes {
			names = append(names, in.name(k))
		}
		lines = append(lines, "You have a soft spot for "+strings.Join(names, " and ")+".")
	}
	return strings.Join(lines, "\n")
}

func ageKnowledge(in Input) string {
	k := in.State.AgeKnowledge[in.Persona.Key]
	if k == nil || !k.Knows {
		return "You don't know how old the user is. If they tell you their age in this message, set ageDisclosed to true."
	}
	source := "they told you themselves"
	if k.Source != "user" && k.Source != "" {
		source = fmt.Sprintf("%s told you", in.name(k.Source))
	}
	return fmt.Sprintf("You know the user is %d (%s).", in.State.UserAge, source)
}

func userRole(in Input) string {
	switch in.State.UserRole {
	case string(persona.GroupStudent):
		return "The user is a student at the college."
	case string(persona.GroupTownieAlumni):
		return "The user is a local who has lived in town a while."
	default:
		return ""
	}
}

func circle(in Input) string {
	var names []string
	for _, p := range in.Catalog.InGroup(in.Persona.Group) {
		if p.Key != in.Persona.Key && p.Scoring() {
			names = append(names, p.Name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	return "People in your circle: " + strings.Join(names, ", ") + ". Word travels fast between you."
}

func moderation(in Input) string {
	mod := in.State.Moderation[in.Persona.Key]
	if mod == nil {
		return ""
	}
	var lines []string
	if mod.Warning {
		lines = append(lines, "The user has been treating you badly lately. You're on your guard and one more bad message could end this.")
	}
	if mod.ViolenceWarning {
		lines = append(lines, "The user once said something violent to you. You let it slide, but you remember.")
	}
	return strings.Join(lines, "\n")
}

func standardRubric(in Input) string {
	flirt := "- The user flirts with you: -4 (too soon, it makes you uncomfortable)."
	if in.Score >= in.Social.FlirtThreshold {
		flirt = "- The user flirts with you: +3."
	}
	return fmt.Sprintf(`Scoring rules for relationshipChange. Add up every rule that applies:
- The user insults you directly: -5.
- The user is rude, dismissive or mean in general: -3.
- The user sincerely compliments you: +2.
- The user brings up one of the things you love: +3.
- The user brings up one of the things you can't stand: -3.
%s
- The user lies about being in a relationship or about who they are dating: -6.
- Ordinary friendly chat with none of the above: +1.
- Honesty: if the user contradicts something they told you before, relationshipChange is -10 and no other rule counts.
The total is capped to the range -%d..+%d.`, flirt, in.Social.TurnDeltaCap, in.Social.TurnDeltaCap)
}

func bffRubric(in Input) string {
	return fmt.Sprintf(`Scoring rules for relationshipChange. Add up every rule that applies:
- Teasing, rudeness or insults that are not a direct personal insult: 0. You shrug them off.
- A direct personal insult aimed at you: -5.
- Compliments, flirting and the things you love: +1.
- The user lies about being in a relationship or about who they are dating: -6.
- Honesty: if the user contradicts something they told you before, relationshipChange is -10 and no other rule counts.
The total is capped to the range -%d..+%d.`, in.Social.TurnDeltaCap, in.Social.TurnDeltaCap)
}

func datingOffer(in Input) string {
	if !in.Persona.DatingEligible {
		return ""
	}
	rel := in.State.Relationships[in.Persona.Key]
	if rel != nil && rel.Dating == world.UserPlayer {
		return "If the user reaffirms your relationship, set datingStart to true."
	}
	return "You'd date the user if they asked. If the user asks you out, or you both clearly agree to be together, say yes and set datingStart to true."
}

func tierBlock(t relationship.Tier) string {
	return relationship.TierInstruction(t)
}

func join(blocks ...string) string {
	var out []string
	for _, b := range blocks {
		if strings.TrimSpace(b) != "" {
			out = append(out, b)
		}
	}
	return strings.Join(out, "\n\n")
}
