package analyzer

import "bytes"

// DefaultBinaryThreshold is the non-printable ratio at which content is
// treated as binary when no policy overrides it.
const DefaultBinaryThreshold = 0.33

// IsBinary reports whether data looks like binary content. Any NUL byte is
// conclusive. Otherwise the share of bytes outside TAB, CR, LF and printable
// ASCII is compared against threshold, which is clamped to [0,1].
// Non-ASCII UTF-8 text counts as non-printable, so this is a coarse check.
func IsBinary(data []byte, threshold float64) bool {
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}
	if len(data) == 0 {
		return false
	}

	nonPrintable := 0
	for _, b := range data {
		if b == '\n' || b == '\r' || b == '\t' || (b >= 0x20 && b <= 0x7E) {
			continue
		}
		nonPrintable++
	}

	ratio := float64(nonPrintable) / float64(len(data))
	return ratio >= clamp(threshold)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
