package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ModelSettings ModelSettings      `yaml:"model_settings"`
	Social        SocialSettings     `yaml:"social"`
	Safety        SafetySettings     `yaml:"safety"`
	Schedule      ScheduleSettings   `yaml:"schedule"`
	Delays        DelaySettings      `yaml:"delays"`
	Images        ImageSettings      `yaml:"images"`
	Transcript    TranscriptSettings `yaml:"transcript"`
	PersonasFile  string             `yaml:"personas_file"`
	LogMode       string             `yaml:"log_mode"`
}

type ModelSettings struct {
	Provider                     string  `yaml:"provider"`
	Model                        string  `yaml:"model"`
	ClassifierModel              string  `yaml:"classifier_model"`
	ImageModel                   string  `yaml:"image_model"`
	Temperature                  float64 `yaml:"temperature"`
	TopP                         float64 `yaml:"top_p"`
	GenerationTimeoutSeconds     float64 `yaml:"generation_timeout_seconds"`
	ClassificationTimeoutSeconds float64 `yaml:"classification_timeout_seconds"`
}

func (m ModelSettings) GenerationTimeout() time.Duration {
	return seconds(m.GenerationTimeoutSeconds)
}

func (m ModelSettings) ClassificationTimeout() time.Duration {
	return seconds(m.ClassificationTimeoutSeconds)
}

// SocialSettings drives the relationship economy. Penalties and bonuses are
// magnitudes; the economy applies the sign.
type SocialSettings struct {
	HostileThreshold   int     `yaml:"hostile_threshold"`
	BFFThreshold       int     `yaml:"bff_threshold"`
	FlirtThreshold     int     `yaml:"flirt_threshold"`
	TurnDeltaCap       int     `yaml:"turn_delta_cap"`
	DefaultScore       int     `yaml:"default_score"`
	ForgivenessBonus   int     `yaml:"forgiveness_bonus"`
	BreakupPenalty     int     `yaml:"breakup_penalty"`
	ApologyResetScore  int     `yaml:"apology_reset_score"`
	CheatingResetScore int     `yaml:"cheating_reset_score"`
	GossipChance       float64 `yaml:"gossip_chance"`
	GossipScope        string  `yaml:"gossip_scope"`
}

type SafetySettings struct {
	DrugsPenalty           int     `yaml:"drugs_penalty"`
	ViolenceWarningPenalty int     `yaml:"violence_warning_penalty"`
	ViolenceSeverePenalty  int     `yaml:"violence_severe_penalty"`
	SexualDatingPenalty    int     `yaml:"sexual_dating_penalty"`
	SexualBFFPenalty       int     `yaml:"sexual_bff_penalty"`
	SexualDefaultPenalty   int     `yaml:"sexual_default_penalty"`
	MinConfidence          float64 `yaml:"min_confidence"`
	ClassifierCacheSize    int     `yaml:"classifier_cache_size"`
}

type ScheduleSettings struct {
	SummerStartMonth int    `yaml:"summer_start_month"`
	SummerEndMonth   int    `yaml:"summer_end_month"`
	Timezone         string `yaml:"timezone"`
}

type DelaySettings struct {
	Realistic       bool `yaml:"realistic"`
	MinSeconds      int  `yaml:"min_seconds"`
	MaxSeconds      int  `yaml:"max_seconds"`
	DisabledSeconds int  `yaml:"disabled_seconds"`
	// MaxTypingSeconds caps how long a transport actually waits on a hint.
	MaxTypingSeconds int `yaml:"max_typing_seconds"`
}

type ImageSettings struct {
	Enabled           bool    `yaml:"enabled"`
	MaxDimension      int     `yaml:"max_dimension"`
	JobTimeoutSeconds float64 `yaml:"job_timeout_seconds"`
}

func (i ImageSettings) JobTimeout() time.Duration {
	return seconds(i.JobTimeoutSeconds)
}

type TranscriptSettings struct {
	HistoryTurns        int `yaml:"history_turns"`
	SummarizeAfterLines int `yaml:"summarize_after_lines"`
}

// Default returns the configuration used when no file is present. Values
// read from a file are layered on top of it.
func Default() *Config {
	return &Config{
		ModelSettings: ModelSettings{
			Provider:                     "gemini",
			Model:                        "gemini-2.5-flash",
			ClassifierModel:              "gemini-2.5-flash-lite",
			ImageModel:                   "imagen-4.0-generate-001",
			Temperature:                  1,
			TopP:                         0.95,
			GenerationTimeoutSeconds:     60,
			ClassificationTimeoutSeconds: 15,
		},
		Social: SocialSettings{
			HostileThreshold:   10,
			BFFThreshold:       100,
			FlirtThreshold:     70,
			TurnDeltaCap:       10,
			DefaultScore:       30,
			ForgivenessBonus:   20,
			BreakupPenalty:     30,
			ApologyResetScore:  10,
			CheatingResetScore: 5,
			GossipChance:       1,
			GossipScope:        "group",
		},
		Safety: SafetySettings{
			DrugsPenalty:           10,
			ViolenceWarningPenalty: 5,
			ViolenceSeverePenalty:  50,
			SexualDatingPenalty:    5,
			SexualBFFPenalty:       20,
			SexualDefaultPenalty:   40,
			MinConfidence:          0.6,
			ClassifierCacheSize:    1000,
		},
		Schedule: ScheduleSettings{
			SummerStartMonth: 6,
			SummerEndMonth:   8,
			Timezone:         "UTC",
		},
		Delays: DelaySettings{
			Realistic:        false,
			MinSeconds:       30,
			MaxSeconds:       900,
			DisabledSeconds:  1,
			MaxTypingSeconds: 8,
		},
		Images: ImageSettings{
			Enabled:           true,
			MaxDimension:      1024,
			JobTimeoutSeconds: 120,
		},
		Transcript: TranscriptSettings{
			HistoryTurns:        40,
			SummarizeAfterLines: 200,
		},
		LogMode: "dev",
	}
}

func LoadConfig(path string) (*Config, error) {
	config := Default()

	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return config, nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	s := c.Social
	if s.HostileThreshold < 0 || s.HostileThreshold > 30 {
		return fmt.Errorf("social.hostile_threshold must be within [0,30], got %d", s.HostileThreshold)
	}
	if s.BFFThreshold <= 70 || s.BFFThreshold > 100 {
		return fmt.Errorf("social.bff_threshold must be within (70,100], got %d", s.BFFThreshold)
	}
	if s.DefaultScore < 0 || s.DefaultScore > 100 {
		return fmt.Errorf("social.default_score must be within [0,100], got %d", s.DefaultScore)
	}
	if s.ApologyResetScore <= 0 || s.ApologyResetScore > 100 {
		return fmt.Errorf("social.apology_reset_score must be within (0,100], got %d", s.ApologyResetScore)
	}
	if s.CheatingResetScore < 0 || s.CheatingResetScore > 100 {
		return fmt.Errorf("social.cheating_reset_score must be within [0,100], got %d", s.CheatingResetScore)
	}
	if s.TurnDeltaCap <= 0 {
		return fmt.Errorf("social.turn_delta_cap must be positive, got %d", s.TurnDeltaCap)
	}
	if s.GossipChance < 0 || s.GossipChance > 1 {
		return fmt.Errorf("social.gossip_chance must be within [0,1], got %v", s.GossipChance)
	}
	switch s.GossipScope {
	case "group", "all":
	default:
		return fmt.Errorf("social.gossip_scope must be \"group\" or \"all\", got %q", s.GossipScope)
	}

	if c.Safety.MinConfidence < 0 || c.Safety.MinConfidence > 1 {
		return fmt.Errorf("safety.min_confidence must be within [0,1], got %v", c.Safety.MinConfidence)
	}

	sch := c.Schedule
	if sch.SummerStartMonth < 1 || sch.SummerStartMonth > 12 || sch.SummerEndMonth < 1 || sch.SummerEndMonth > 12 {
		return fmt.Errorf("schedule summer months must be within [1,12], got %d..%d", sch.SummerStartMonth, sch.SummerEndMonth)
	}

	d := c.Delays
	if d.MinSeconds < 0 || d.MaxSeconds < d.MinSeconds {
		return fmt.Errorf("delays range is invalid: %d..%d", d.MinSeconds, d.MaxSeconds)
	}
	if d.DisabledSeconds < 0 {
		return fmt.Errorf("delays.disabled_seconds must not be negative")
	}

	if c.Transcript.HistoryTurns <= 0 {
		return fmt.Errorf("transcript.history_turns must be positive")
	}
	if c.Transcript.SummarizeAfterLines != 0 && c.Transcript.SummarizeAfterLines <= c.Transcript.HistoryTurns {
		return fmt.Errorf("transcript.summarize_after_lines must exceed history_turns")
	}

	switch c.ModelSettings.Provider {
	case "gemini", "cerebras":
	default:
		return fmt.Errorf("model_settings.provider must be \"gemini\" or \"cerebras\", got %q", c.ModelSettings.Provider)
	}
	return nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
