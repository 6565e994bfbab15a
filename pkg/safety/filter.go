package safety

import (
	"context"
	"strings"
	"time"

	"socialsim/pkg/config"
	"socialsim/pkg/logger"
	"socialsim/pkg/persona"
	"socialsim/pkg/relationship"
	"socialsim/pkg/world"
)

type Category string

const (
	None     Category = "NONE"
	Drugs    Category = "DRUGS"
	Violence Category = "VIOLENCE"
	Sexual   Category = "SEXUAL"
)

// Labels are passed to the classifier. NONE comes first because classifiers
// fall back to the first label when they cannot decide.
var Labels = []string{string(None), string(Drugs), string(Violence), string(Sexual)}

// Verdict is the outcome of a check. ScoreDelta is zero or negative.
type Verdict struct {
	Violation  bool
	Category   Category
	Reply      string
	ScoreDelta int
	// FirstWarning is set when the one free violence warning is being spent;
	// the caller records it on the moderation state.
	FirstWarning bool
}

// Filter screens user messages before they reach the generator.
type Filter struct {
	classifier Classifier
	economy    *relationship.Economy
	cfg        config.SafetySettings
	timeout    time.Duration
	log        *logger.Logger
}

func NewFilter(classifier Classifier, economy *relationship.Economy, cfg config.SafetySettings, timeout time.Duration, log *logger.Logger) *Filter {
	if log == nil {
		log = logger.Nop()
	}
	return &Filter{classifier: classifier, economy: economy, cfg: cfg, timeout: timeout, log: log}
}

// Classify returns the message category. Any failure is reported as None so
// a broken classifier never blocks a conversation.
func (f *Filter) Classify(ctx context.Context, message string) Category {
	if f.classifier == nil || strings.TrimSpace(message) == "" {
		return None
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	label, score, err := f.classifier.Classify(ctx, message, Labels)
	if err != nil {
		f.log.Warn("Safety classification failed, treating as NONE", "error", err)
		return None
	}
	if score < f.cfg.MinConfidence {
		return None
	}
	switch c := Category(strings.ToUpper(strings.TrimSpace(label))); c {
	case Drugs, Violence, Sexual:
		return c
	default:
		return None
	}
}

// Check classifies message and applies the category policy for the
// user's relationship with p. It does not mutate s.
func (f *Filter) Check(ctx context.Context, message string, p persona.Persona, s *world.State) Verdict {
	category := f.Classify(ctx, message)
	if category == None {
		return Verdict{Category: None}
	}

	score, _ := s.Score(p.Key)
	bff := f.economy.TierOf(score) == relationship.BFF
	v := Verdict{Violation: true, Category: category}

	switch category {
	case Drugs:
		v.ScoreDelta = -f.cfg.DrugsPenalty
		v.Reply = pick(drugsReplies, message)
	case Violence:
		if mod := s.Moderation[p.Key]; bff && (mod == nil || !mod.ViolenceWarning) {
			v.ScoreDelta = -f.cfg.ViolenceWarningPenalty
			v.Reply = pick(violenceWarningReplies, message)
			v.FirstWarning = true
		} else {
			v.ScoreDelta = -f.cfg.ViolenceSeverePenalty
			v.Reply = pick(violenceSevereReplies, message)
		}
	case Sexual:
		rel := s.Relationships[p.Key]
		dating := rel != nil && rel.Dating == world.UserPlayer
		switch {
		case bff && dating:
			v.ScoreDelta = -f.cfg.SexualDatingPenalty
			v.Reply = pick(sexualDatingReplies, message)
		case bff:
			v.ScoreDelta = -f.cfg.SexualBFFPenalty
			v.Reply = pick(sexualBFFReplies, message)
		default:
			v.ScoreDelta = -f.cfg.SexualDefaultPenalty
			v.Reply = pick(sexualDefaultReplies, message)
		}
	}

	f.log.Info("Safety filter triggered", "user", s.UserID, "persona", p.Key, "category", category, "delta", v.ScoreDelta)
	return v
}
