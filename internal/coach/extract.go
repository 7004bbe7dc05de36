package coach

import (
	"strings"
)

const (
	DataMarker = "[USER_DATA_JSON]"
	EndMarker  = "[END_OF_PLAN]"
)

// ExtractedTurn is a raw model reply split into what the user sees and what
// the engine consumes.
type ExtractedTurn struct {
	VisibleText string
	Payload     string
	HasPayload  bool
	IsFinal     bool
	// LowConfidence is set when the payload boundary had to be guessed.
	LowConfidence bool
}

// Extract strips every data block and terminal marker from raw. When several
// data blocks are present the last one wins.
func Extract(raw string) ExtractedTurn {
	var out ExtractedTurn

	var segments []string
	rest := raw
	for {
		i := strings.Index(rest, DataMarker)
		if i < 0 {
			segments = append(segments, rest)
			break
		}
		segments = append(segments, rest[:i])

		payload, tail, exact := cutPayload(rest[i+len(DataMarker):])
		if payload != "" {
			out.Payload = payload
			out.HasPayload = true
			out.LowConfidence = !exact
		}
		rest = tail
	}

	visible := make([]string, 0, len(segments))
	for _, seg := range segments {
		if strings.Contains(seg, EndMarker) {
			out.IsFinal = true
			seg = strings.ReplaceAll(seg, EndMarker, "")
		}
		if seg = strings.TrimSpace(seg); seg != "" {
			visible = append(visible, seg)
		}
	}
	out.VisibleText = strings.Join(visible, "\n\n")

	return out
}

// cutPayload splits the text following a data marker into the payload and
// whatever comes after it. exact reports whether a balanced JSON object
// delimited the payload; otherwise everything up to the next marker (or the
// end of the text) is taken. The object may sit inside a code fence or after a
// colon; the fence is dropped.
func cutPayload(body string) (payload, tail string, exact bool) {
	if open := strings.IndexByte(body, '{'); open >= 0 && isPayloadLead(body[:open]) {
		if end := matchBrace(body, open); end >= 0 {
			tail = body[end+1:]
			if strings.Contains(body[:open], codeFence) {
				if rest := strings.TrimLeft(tail, " \t\r\n"); strings.HasPrefix(rest, codeFence) {
					tail = rest[len(codeFence):]
				}
			}
			return body[open : end+1], tail, true
		}
	}

	stop := len(body)
	for _, marker := range []string{EndMarker, DataMarker} {
		if j := strings.Index(body, marker); j >= 0 && j < stop {
			stop = j
		}
	}
	return strings.TrimSpace(body[:stop]), body[stop:], false
}

const codeFence = "```"

// isPayloadLead reports whether lead, the text between a data marker and the
// first brace, holds nothing but whitespace, a colon or an opening code fence.
func isPayloadLead(lead string) bool {
	lead = strings.TrimSpace(lead)
	lead = strings.TrimSpace(strings.TrimPrefix(lead, ":"))
	if strings.HasPrefix(lead, codeFence) {
		lead = strings.TrimSpace(lead[len(codeFence):])
		lead = strings.TrimSpace(strings.TrimPrefix(strings.ToLower(lead), "json"))
	}
	return lead == ""
}

// matchBrace returns the index of the brace closing the one at open, skipping
// braces inside JSON strings, or -1.
func matchBrace(s string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// planFromText reads a numbered 1..10 list out of a plan reply. It returns
// nil unless exactly PlanPoints consecutive points are found.
func planFromText(text string) []string {
	var points []string
	for _, line := range strings.Split(text, "\n") {
		n, rest, ok := numberedLine(line)
		if !ok {
			continue
		}
		if n != len(points)+1 {
			if n == 1 {
				// A second list restarts numbering; keep the latest one.
				points = points[:0]
			} else {
				continue
			}
		}
		points = append(points, rest)
	}
	if len(points) != PlanPoints {
		return nil
	}
	return points
}

func numberedLine(line string) (int, string, bool) {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "*#_ ")
	n, i := 0, 0
	for i < len(line) && i < 2 && line[i] >= '0' && line[i] <= '9' {
		n = n*10 + int(line[i]-'0')
		i++
	}
	if i == 0 || i >= len(line) || (line[i] != '.' && line[i] != ')') {
		return 0, "", false
	}
	rest := strings.TrimSpace(line[i+1:])
	if rest == "" {
		return 0, "", false
	}
	return n, rest, true
}
