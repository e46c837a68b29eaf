package compose

import "strings"

// Response framing the model is instructed to follow.
const (
	Marker     = "SUBJECT:"
	Terminator = "---END---"
)

// ParseResponse extracts subject and body from a framed completion. The first
// line after the marker is the subject; everything up to the terminator is the
// body. Anything else is a malformed response and yields no partial message.
func ParseResponse(raw string) (Message, error) {
	_, afterMarker, found := strings.Cut(raw, Marker)
	if !found {
		return Message{}, malformed("response has no %q marker", Marker)
	}

	content, _, _ := strings.Cut(afterMarker, Terminator)
	content = strings.TrimSpace(content)

	subject, body, found := strings.Cut(content, "\n")
	if !found {
		return Message{}, malformed("response has no line break after the subject")
	}

	msg := Message{
		Subject: strings.TrimSpace(subject),
		Body:    strings.TrimSpace(body),
	}
	if msg.Subject == "" {
		return Message{}, malformed("response subject is empty")
	}
	if msg.Body == "" {
		return Message{}, malformed("response body is empty")
	}

	return msg, nil
}
