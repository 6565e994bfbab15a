// Package llm defines the contract between the simulation and a text
// generation backend.
package llm

import (
	"context"
	"errors"
)

var (
	ErrEmptyResponse = errors.New("llm: empty response")
	ErrMalformed     = errors.New("llm: malformed structured output")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type Turn struct {
	Role Role
	Text string
}

type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
)

type Field struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
}

// Schema describes a flat JSON object the backend must return.
type Schema struct {
	Fields []Field
}

func (s Schema) Required() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// SafetySetting uses the Gemini category and threshold names; backends
// without an equivalent ignore it.
type SafetySetting struct {
	Category  string
	Threshold string
}

type Request struct {
	History     []Turn
	Instruction string
	Schema      Schema
	Safety      []SafetySetting
}

// Generator returns the raw structured text for a request. Callers parse it
// with ParseResult or a sibling.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
