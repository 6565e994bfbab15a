package sim

import (
	"hash/fnv"

	"socialsim/pkg/persona"
)

var defaultFarewells = []string{
	"oh shoot i gotta go, talk later!",
	"sorry, have to run. ttyl",
	"brb... actually no, heading out. later!",
}

var fallbackReplies = []string{
	"ugh my phone is being weird, text me again in a bit?",
	"sorry, signal's terrible here. one sec",
	"wait my app just crashed lol. what were you saying?",
}

var apologyFallbackReplies = []string{
	"i saw your message. i need some time.",
	"not ready to talk yet.",
}

// pick is deterministic per seed so retries of the same message read the same.
func pick(set []string, seed string) string {
	h := fnv.New32a()
	h.Write([]byte(seed))
	return set[h.Sum32()%uint32(len(set))]
}

func farewell(p persona.Persona, seed string) string {
	if len(p.Farewells) > 0 {
		return pick(p.Farewells, seed)
	}
	return pick(defaultFarewells, seed)
}
