package relationship

import (
	"socialsim/pkg/world"
)

// PropagateAgeDisclosure records that the user told source their age, then
// spreads it to everyone in source's group. Propagation is unconditional;
// the gossip chance and scope settings are not consulted. Knowledge is never
// removed. It returns the personas that learned it from source.
func (e *Economy) PropagateAgeDisclosure(s *world.State, source string) []string {
	p, ok := e.catalog.Get(source)
	if !ok {
		return nil
	}
	if !s.KnowsAge(source) {
		s.AgeKnowledge[source] = &world.AgeKnowledge{Knows: true, Source: "user"}
	}

	var told []string
	for _, peer := range e.catalog.InGroup(p.Group) {
		if peer.Key == source || s.KnowsAge(peer.Key) {
			continue
		}
		s.AgeKnowledge[peer.Key] = &world.AgeKnowledge{Knows: true, Source: source}
		told = append(told, peer.Key)
	}
	if len(told) > 0 {
		e.log.Debug("Age gossip spread", "user", s.UserID, "source", source, "told", told)
	}
	return told
}
