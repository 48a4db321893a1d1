package room

import "strings"

// DirectiveMarker is the reserved token that requests AI participation in
// a chat message.
const DirectiveMarker = "@ai"

// DetectDirective scans a human message body for the directive marker.
// The first occurrence of the marker is stripped and the remainder
// trimmed to form the prompt. A marker with an empty remainder returns
// ok=false: the message is still relayed as normal chat, but no
// invocation occurs.
func DetectDirective(body string) (prompt string, ok bool) {
	if !strings.Contains(body, DirectiveMarker) {
		return "", false
	}
	prompt = strings.TrimSpace(strings.Replace(body, DirectiveMarker, "", 1))
	if prompt == "" {
		return "", false
	}
	return prompt, true
}
