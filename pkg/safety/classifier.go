package safety

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"socialsim/pkg/logger"
)

// Classifier picks one of labels for text with a confidence in [0,1].
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) (string, float64, error)
}

const defaultVerdictCacheSize = 1000

type labelScore struct {
	label string
	score float64
}

// CachedClassifier remembers verdicts per model, message and label set.
// Identical lookups in flight at the same time share one upstream call;
// failures are never remembered.
type CachedClassifier struct {
	next     Classifier
	model    string
	verdicts *lru.Cache[string, labelScore]
	inflight singleflight.Group
}

func NewCachedClassifier(next Classifier, size int, model string, log *logger.Logger) *CachedClassifier {
	if size <= 0 {
		if log != nil {
			log.Warn("Invalid classifier cache size, using default", "size", size, "default", defaultVerdictCacheSize)
		}
		size = defaultVerdictCacheSize
	}
	verdicts, _ := lru.New[string, labelScore](size)
	return &CachedClassifier{next: next, model: model, verdicts: verdicts}
}

func (c *CachedClassifier) Classify(ctx context.Context, text string, labels []string) (string, float64, error) {
	key := verdictKey(c.model, text, labels)
	if v, ok := c.verdicts.Get(key); ok {
		return v.label, v.score, nil
	}

	out, err, _ := c.inflight.Do(key, func() (interface{}, error) {
		label, score, err := c.next.Classify(ctx, text, labels)
		if err != nil {
			return nil, err
		}
		v := labelScore{label: label, score: score}
		c.verdicts.Add(key, v)
		return v, nil
	})
	if err != nil {
		return "", 0, err
	}
	v := out.(labelScore)
	return v.label, v.score, nil
}

// verdictKey separates parts with NUL so ["a","b"] and ["ab"] differ.
func verdictKey(model, text string, labels []string) string {
	sum := sha256.Sum256([]byte(strings.Join(append([]string{text}, labels...), "\x00")))
	return model + ":" + hex.EncodeToString(sum[:])
}
