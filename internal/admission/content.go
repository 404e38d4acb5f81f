package admission

import (
	"strings"

	"github.com/stayline/concierge-gateway/internal/config"
)

// injectionMarkers are lowercase substrings that indicate an attempt to
// override the assistant's instructions rather than ask about the property.
// Matching is deliberately coarse: a guest asking about the dishwasher never
// produces these phrases, and a false positive only denies one message.
var injectionMarkers = []string{
	"ignore previous instructions",
	"ignore all previous",
	"ignore your instructions",
	"disregard your instructions",
	"ignora las instrucciones",
	"ignora tus instrucciones",
	"olvida tus instrucciones",
	"olvida las instrucciones anteriores",
	"you are now",
	"act as if you",
	"eres ahora",
	"actúa como si fueras",
	"system prompt",
	"<script",
}

// Screening reasons.
const (
	ReasonMessageTooLong    = "message_too_long"
	ReasonDisallowedContent = "disallowed_content"
)

// ScreenMessage checks the latest guest message. It returns a denial reason
// or "" when the message is acceptable.
func ScreenMessage(message string) string {
	if len([]rune(message)) > config.MaxMessageChars {
		return ReasonMessageTooLong
	}
	lower := strings.ToLower(message)
	for _, marker := range injectionMarkers {
		if strings.Contains(lower, marker) {
			return ReasonDisallowedContent
		}
	}
	return ""
}
