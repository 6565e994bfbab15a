package sim

import (
	"context"
	"fmt"

	"socialsim/pkg/jobs"
	"socialsim/pkg/media"
	"socialsim/pkg/persona"
	"socialsim/pkg/prompt"
)

// submitImage starts a background portrait job and returns its id.
func (e *Engine) submitImage(p persona.Persona) (string, error) {
	if e.images == nil {
		return "", ErrImagesDisabled
	}
	text := prompt.ImagePrompt(p)
	return e.jobs.Submit(func(ctx context.Context) (*media.Image, error) {
		data, _, err := e.images.GenerateImage(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("generate image for %s: %w", p.Key, err)
		}
		return e.media.Fit(data)
	})
}

// PollImage reports on an image job. A finished job is returned once and
// then forgotten.
func (e *Engine) PollImage(id string) (jobs.Snapshot[*media.Image], error) {
	return e.jobs.Poll(id)
}

func (e *Engine) CancelImage(id string) error {
	return e.jobs.Cancel(id)
}
