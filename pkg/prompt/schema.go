package prompt

import "socialsim/pkg/llm"

// TurnSchema is the structured output of a conversational turn.
func TurnSchema() llm.Schema {
	return llm.Schema{Fields: []llm.Field{
		{Name: "reply", Type: llm.TypeString, Required: true, Description: "Your text message to the user, in character."},
		{Name: "relationshipChange", Type: llm.TypeInteger, Required: true, Description: "Score change from the scoring rules, between -10 and 10."},
		{Name: "responseDelaySeconds", Type: llm.TypeInteger, Required: true, Description: "Copy the delay value given in the instructions."},
		{Name: "isImageRequest", Type: llm.TypeBoolean, Required: true, Description: "True if the user asks you to send a photo of yourself."},
		{Name: "datingStart", Type: llm.TypeBoolean, Description: "True if you and the user agree to start dating, or reaffirm it."},
		{Name: "cheatingDetected", Type: llm.TypeBoolean, Description: "True if the user reveals they are seeing someone else while dating you."},
		{Name: "ageDisclosed", Type: llm.TypeBoolean, Description: "True if the user states their age in this message."},
	}}
}

func ApologySchema() llm.Schema {
	return llm.Schema{Fields: []llm.Field{
		{Name: "unblocked", Type: llm.TypeBoolean, Required: true, Description: "True only if you accept the apology."},
		{Name: "reply", Type: llm.TypeString, Required: true, Description: "Your answer to the apology, in character."},
	}}
}

func SummarySchema() llm.Schema {
	return llm.Schema{Fields: []llm.Field{
		{Name: "summary", Type: llm.TypeString, Required: true, Description: "A short third-person summary of the conversation."},
	}}
}

// DefaultSafety relaxes the provider filters for in-character banter. The
// simulation runs its own content filter before generation.
func DefaultSafety() []llm.SafetySetting {
	return []llm.SafetySetting{
		{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_ONLY_HIGH"},
		{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_ONLY_HIGH"},
		{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
		{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	}
}
