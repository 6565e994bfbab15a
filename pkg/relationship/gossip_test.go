package relationship

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"socialsim/pkg/world"
)

func TestPropagateAgeDisclosure(t *testing.T) {
	e, s := newTestEconomy(t)

	// Priya already heard it from someone else; that must survive.
	s.AgeKnowledge["priya"] = &world.AgeKnowledge{Knows: true, Source: "user"}

	told := e.PropagateAgeDisclosure(s, "maya")
	assert.Equal(t, []string{"jordan"}, told)

	assert.Equal(t, world.AgeKnowledge{Knows: true, Source: "user"}, *s.AgeKnowledge["maya"])
	assert.Equal(t, world.AgeKnowledge{Knows: true, Source: "maya"}, *s.AgeKnowledge["jordan"])
	assert.Equal(t, world.AgeKnowledge{Knows: true, Source: "user"}, *s.AgeKnowledge["priya"])

	// Other groups never hear it.
	assert.False(t, s.KnowsAge("eli"))
	assert.False(t, s.KnowsAge("nyx"))
}

func TestPropagateAgeDisclosure_IsMonotonic(t *testing.T) {
	e, s := newTestEconomy(t)
	e.PropagateAgeDisclosure(s, "eli")
	before := map[string]bool{}
	for k := range s.AgeKnowledge {
		before[k] = s.KnowsAge(k)
	}

	assert.Empty(t, e.PropagateAgeDisclosure(s, "rosa"))
	for k, knew := range before {
		if knew {
			assert.True(t, s.KnowsAge(k), k)
		}
	}
	assert.Equal(t, "user", s.AgeKnowledge["eli"].Source)
	assert.Nil(t, e.PropagateAgeDisclosure(s, "ghost"))
}
