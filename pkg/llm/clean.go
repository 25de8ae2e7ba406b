package llm

import "strings"

// Clean normalizes a raw model completion into the answer shown to users.
//
// Rules, applied in order:
//  1. Trim surrounding whitespace.
//  2. If the text contains an "Answer:" marker, keep only the content after
//     the last occurrence. Models occasionally echo the prompt's own cue.
//  3. If the text does not end in terminal punctuation and splits into more
//     than one ". "-separated sentence, drop the trailing fragment and
//     restore the terminal period. This is truncation repair, not a grammar
//     guarantee.
//
// Clean is idempotent: Clean(Clean(s)) == Clean(s).
func Clean(raw string) string {
	cleaned := strings.TrimSpace(raw)

	if strings.Contains(cleaned, "Answer:") {
		idx := strings.LastIndex(cleaned, "Answer:")
		cleaned = strings.TrimSpace(cleaned[idx+len("Answer:"):])
	}

	if cleaned != "" && !hasTerminalPunctuation(cleaned) {
		sentences := strings.Split(cleaned, ". ")
		if len(sentences) > 1 {
			cleaned = strings.Join(sentences[:len(sentences)-1], ". ") + "."
		}
	}

	return cleaned
}

func hasTerminalPunctuation(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}
