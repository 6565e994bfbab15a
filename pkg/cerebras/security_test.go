package cerebras

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIErrorTruncation(t *testing.T) {
	err := &APIError{StatusCode: 400, Body: strings.Repeat("A", 5000)}

	msg := err.Error()
	assert.Less(t, len(msg), 1000)
	assert.Contains(t, msg, "(truncated)")
	assert.True(t, strings.HasPrefix(msg, "api status 400: "))
}

func TestAPIErrorShortBodyUntouched(t *testing.T) {
	err := &APIError{StatusCode: 429, Body: "slow down"}
	assert.Equal(t, "api status 429: slow down", err.Error())
}
