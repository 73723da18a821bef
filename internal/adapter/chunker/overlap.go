package chunker

import (
	"strings"
	"unicode/utf8"
)

// window is a half-open byte range [start, end).
type window struct {
	start int
	end   int
}

// ChunkWithOverlap slides a chunkBytes window over text. Each window after
// the first starts min(overlapBytes, chunkBytes, previous window length)
// bytes before the previous end. Windows are byte oriented and may split a
// multi-byte character; invalid sequences at the edges are replaced with
// U+FFFD. chunkBytes <= 0 yields no chunks.
func ChunkWithOverlap(text string, chunkBytes, overlapBytes int) []string {
	data := []byte(text)
	ws := overlapWindows(len(data), chunkBytes, overlapBytes)
	if len(ws) == 0 {
		return nil
	}

	chunks := make([]string, 0, len(ws))
	for _, w := range ws {
		chunks = append(chunks, DecodeLossy(data[w.start:w.end]))
	}
	return chunks
}

func overlapWindows(n, chunkBytes, overlapBytes int) []window {
	if chunkBytes <= 0 || n == 0 {
		return nil
	}
	if overlapBytes < 0 {
		overlapBytes = 0
	}

	var windows []window
	start := 0
	for start < n {
		end := min(start+chunkBytes, n)
		windows = append(windows, window{start: start, end: end})
		if end == n {
			break
		}

		next := end - min(overlapBytes, chunkBytes, end-start)
		if next <= start {
			// overlap >= chunk would never advance
			next = end
		}
		start = next
	}
	return windows
}

// DecodeLossy converts data to a string, replacing each maximal invalid
// subpart with U+FFFD: a stray continuation byte or bad lead byte yields one
// replacement, and a truncated but well-formed prefix yields one in total.
func DecodeLossy(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}

	var b strings.Builder
	b.Grow(len(data) + 8)
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r != utf8.RuneError || size > 1 {
			b.Write(data[i : i+size])
			i += size
			continue
		}
		b.WriteRune(utf8.RuneError)
		i += invalidPrefixLen(data[i:])
	}
	return b.String()
}

// invalidPrefixLen returns the length of the maximal subpart starting at
// p[0]: the lead byte plus every following byte that could still extend it
// into a well-formed sequence. p must not start with a valid sequence.
func invalidPrefixLen(p []byte) int {
	lo, hi := byte(0x80), byte(0xBF)
	var need int
	switch b := p[0]; {
	case b >= 0xC2 && b <= 0xDF:
		need = 1
	case b == 0xE0:
		need, lo = 2, 0xA0
	case b >= 0xE1 && b <= 0xEC, b == 0xEE, b == 0xEF:
		need = 2
	case b == 0xED:
		need, hi = 2, 0x9F
	case b == 0xF0:
		need, lo = 3, 0x90
	case b >= 0xF1 && b <= 0xF3:
		need = 3
	case b == 0xF4:
		need, hi = 3, 0x8F
	default:
		return 1
	}

	n := 1
	for n <= need && n < len(p) {
		if c := p[n]; c < lo || c > hi {
			break
		}
		n++
		lo, hi = 0x80, 0xBF
	}
	return n
}
