package world

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

type Line struct {
	Role Role
	Text string
}

// AppendLine adds one "role: text" line to a persona's transcript. Embedded
// newlines are flattened so a line always parses back to a single entry.
func (s *State) AppendLine(key string, role Role, text string) {
	text = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", " "), "\n", " "))
	s.ChatHistories[key] += string(role) + ": " + text + "\n"
	s.UpdatedAt = time.Now().UTC()
}

// Lines parses the full transcript for a persona.
func (s *State) Lines(key string) []Line {
	raw := s.ChatHistories[key]
	if raw == "" {
		return nil
	}
	var out []Line
	for _, l := range strings.Split(strings.TrimRight(raw, "\n"), "\n") {
		role, text, ok := strings.Cut(l, ": ")
		if !ok {
			out = append(out, Line{Role: RoleSystem, Text: l})
			continue
		}
		switch Role(role) {
		case RoleUser, RoleModel, RoleSystem:
			out = append(out, Line{Role: Role(role), Text: text})
		default:
			out = append(out, Line{Role: RoleSystem, Text: l})
		}
	}
	return out
}

// Turns returns the last limit user/model lines, skipping system lines.
// limit <= 0 returns all of them.
func (s *State) Turns(key string, limit int) []Line {
	var turns []Line
	for _, l := range s.Lines(key) {
		if l.Role != RoleSystem {
			turns = append(turns, l)
		}
	}
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns
}

// RecentTurns is Turns restricted to lines not yet folded into the
// persona's summary.
func (s *State) RecentTurns(key string, limit int) []Line {
	lines := s.Lines(key)
	if from := s.SummarizedThrough[key]; from > 0 && from <= len(lines) {
		lines = lines[from:]
	}
	var turns []Line
	for _, l := range lines {
		if l.Role != RoleSystem {
			turns = append(turns, l)
		}
	}
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns
}

func (s *State) LastLine(key string) (Line, bool) {
	lines := s.Lines(key)
	if len(lines) == 0 {
		return Line{}, false
	}
	return lines[len(lines)-1], true
}
