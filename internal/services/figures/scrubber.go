package figures

import "strings"

var tagPrefixes = []string{"<figure", "</figure"}

type fragmentKind int

const (
	kindText fragmentKind = iota
	kindPartial
	kindTag
)

// Scrubber removes figure markup from a stream of text fragments. Text that
// might be the start of a tag is held back until the next fragment decides it.
// A Scrubber serves a single stream and is not safe for concurrent use.
type Scrubber struct {
	pending string
}

// NewScrubber creates a scrubber for one streamed message
func NewScrubber() *Scrubber {
	return &Scrubber{}
}

// Push consumes a fragment and returns the text that is safe to display
func (s *Scrubber) Push(fragment string) string {
	buf := s.pending + fragment
	s.pending = ""

	var out strings.Builder
	for len(buf) > 0 {
		i := strings.IndexByte(buf, '<')
		if i < 0 {
			out.WriteString(buf)
			break
		}
		out.WriteString(buf[:i])
		buf = buf[i:]

		switch classify(buf) {
		case kindPartial:
			s.pending = buf
			return out.String()
		case kindTag:
			end := strings.IndexByte(buf, '>')
			if end < 0 {
				s.pending = buf
				return out.String()
			}
			buf = buf[end+1:]
		default:
			out.WriteByte('<')
			buf = buf[1:]
		}
	}
	return out.String()
}

// Flush returns held-back text once the stream ends. An unterminated figure
// tag is dropped.
func (s *Scrubber) Flush() string {
	pending := s.pending
	s.pending = ""
	if classify(pending) == kindTag {
		return ""
	}
	return pending
}

func classify(s string) fragmentKind {
	lower := strings.ToLower(s)
	for _, prefix := range tagPrefixes {
		if len(lower) <= len(prefix) {
			if strings.HasPrefix(prefix, lower) {
				return kindPartial
			}
			continue
		}
		if strings.HasPrefix(lower, prefix) {
			switch lower[len(prefix)] {
			case ' ', '\t', '\n', '\r', '>', '/':
				return kindTag
			}
		}
	}
	return kindText
}
