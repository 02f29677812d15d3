package turn

import "strings"

// collectSegments appends a valid trailing interim segment when needed.
func collectSegments(committedSegments []string, interimTail string) []string {
	segments := append([]string(nil), committedSegments...)
	if interim := cleanSegment(interimTail); interim != "" {
		segments = appendSegment(segments, interim)
	}
	return segments
}

// appendSegment merges continuation segments to avoid duplicate answer growth.
func appendSegment(segments []string, text string) []string {
	text = cleanSegment(text)
	if text == "" {
		return segments
	}
	if len(segments) == 0 {
		return append(segments, text)
	}

	last := cleanSegment(segments[len(segments)-1])
	switch {
	case text == last:
		return segments
	case strings.HasPrefix(text, last):
		segments[len(segments)-1] = text
		return segments
	case strings.HasPrefix(last, text):
		return segments
	default:
		return append(segments, text)
	}
}

// assemble joins committed segments into the externally observable answer.
func assemble(segments []string) string {
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		segment = cleanSegment(segment)
		if segment == "" {
			continue
		}
		parts = append(parts, segment)
	}
	return strings.Join(parts, " ")
}

// cleanSegment normalizes transcript whitespace.
func cleanSegment(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return strings.Join(strings.Fields(raw), " ")
}
