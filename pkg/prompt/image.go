package prompt

import (
	"fmt"
	"strings"

	"socialsim/pkg/persona"
)

// ImagePrompt describes a casual selfie of p for the image model.
func ImagePrompt(p persona.Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A casual smartphone selfie of %s, a %d-year-old %s", p.Name, p.Age, p.Gender)
	if len(p.Traits.Interests) > 0 {
		fmt.Fprintf(&b, " who is into %s", strings.Join(p.Traits.Interests[:min(2, len(p.Traits.Interests))], " and "))
	}
	b.WriteString(". Natural lighting, candid, photorealistic, no text or watermarks.")
	return b.String()
}
