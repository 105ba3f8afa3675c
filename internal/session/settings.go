package session

import (
	"fmt"
	"strings"
)

// SystemInstruction composes the assistant persona with the practice level
// and topic the user selected. Level and topic are optional.
func SystemInstruction(persona, level, topic string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(persona))

	if level = strings.TrimSpace(level); level != "" {
		fmt.Fprintf(&b, "\nThe student's level is %s; match your vocabulary and pace to it.", level)
	}
	if topic = strings.TrimSpace(topic); topic != "" {
		fmt.Fprintf(&b, "\nSteer the conversation toward the topic: %s.", topic)
	}
	return b.String()
}
