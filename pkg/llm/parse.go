package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// StripCodeFence removes a surrounding markdown fence such as ```json ... ```.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl != -1 {
		// Drop the language tag line.
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractObject trims any chatter around the outermost JSON object.
func extractObject(raw string) (string, error) {
	s := StripCodeFence(raw)
	if s == "" {
		return "", ErrEmptyResponse
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end < start {
		return "", fmt.Errorf("%w: no JSON object in %q", ErrMalformed, truncate(s, 80))
	}
	return s[start : end+1], nil
}

// Result is a parsed conversational turn.
type Result struct {
	Reply                string
	RelationshipChange   int
	ResponseDelaySeconds int
	IsImageRequest       bool
	DatingStart          *bool
	CheatingDetected     *bool
	AgeDisclosed         *bool
}

func (r *Result) WantsDating() bool    { return r.DatingStart != nil && *r.DatingStart }
func (r *Result) CaughtCheating() bool { return r.CheatingDetected != nil && *r.CheatingDetected }
func (r *Result) DisclosedAge() bool   { return r.AgeDisclosed != nil && *r.AgeDisclosed }

type rawResult struct {
	Reply                *string  `json:"reply"`
	RelationshipChange   *float64 `json:"relationshipChange"`
	ResponseDelaySeconds *float64 `json:"responseDelaySeconds"`
	IsImageRequest       *bool    `json:"isImageRequest"`
	DatingStart          *bool    `json:"datingStart"`
	CheatingDetected     *bool    `json:"cheatingDetected"`
	AgeDisclosed         *bool    `json:"ageDisclosed"`
}

// ParseResult parses a turn. The four required fields must be present;
// numbers may arrive as floats and are rounded.
func ParseResult(raw string) (*Result, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return nil, err
	}
	var r rawResult
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var missing []string
	if r.Reply == nil {
		missing = append(missing, "reply")
	}
	if r.RelationshipChange == nil {
		missing = append(missing, "relationshipChange")
	}
	if r.ResponseDelaySeconds == nil {
		missing = append(missing, "responseDelaySeconds")
	}
	if r.IsImageRequest == nil {
		missing = append(missing, "isImageRequest")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformed, strings.Join(missing, ", "))
	}
	if strings.TrimSpace(*r.Reply) == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformed)
	}

	change, err := wholeNumber("relationshipChange", *r.RelationshipChange)
	if err != nil {
		return nil, err
	}
	delay, err := wholeNumber("responseDelaySeconds", *r.ResponseDelaySeconds)
	if err != nil {
		return nil, err
	}

	return &Result{
		Reply:                strings.TrimSpace(*r.Reply),
		RelationshipChange:   change,
		ResponseDelaySeconds: max(0, delay),
		IsImageRequest:       *r.IsImageRequest,
		DatingStart:          r.DatingStart,
		CheatingDetected:     r.CheatingDetected,
		AgeDisclosed:         r.AgeDisclosed,
	}, nil
}

// maxMagnitude bounds numeric fields; anything larger is not a score change
// or a delay a model meant to send.
const maxMagnitude = 1e6

func wholeNumber(field string, v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > maxMagnitude {
		return 0, fmt.Errorf("%w: %s out of range", ErrMalformed, field)
	}
	return int(math.Round(v)), nil
}

type ApologyVerdict struct {
	Unblocked bool
	Reply     string
}

func ParseApology(raw string) (*ApologyVerdict, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return nil, err
	}
	var r struct {
		Unblocked *bool   `json:"unblocked"`
		Reply     *string `json:"reply"`
	}
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if r.Unblocked == nil || r.Reply == nil {
		return nil, fmt.Errorf("%w: apology verdict needs unblocked and reply", ErrMalformed)
	}
	return &ApologyVerdict{Unblocked: *r.Unblocked, Reply: strings.TrimSpace(*r.Reply)}, nil
}

func ParseSummary(raw string) (string, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return "", err
	}
	var r struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if strings.TrimSpace(r.Summary) == "" {
		return "", fmt.Errorf("%w: empty summary", ErrMalformed)
	}
	return strings.TrimSpace(r.Summary), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
