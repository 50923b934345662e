package assembly

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// BuildCues segments the script into readable fragments and distributes
// them across the narration duration proportionally to fragment length.
// The cue list is contiguous: each cue starts where the previous one ends,
// the first starts at 0, and the last ends exactly at totalSec.
func BuildCues(scriptBody string, totalSec float64, maxChars int) []Cue {
	fragments := FragmentScript(scriptBody, maxChars)
	if len(fragments) == 0 {
		return nil
	}

	totalLen := 0
	for _, f := range fragments {
		totalLen += utf8.RuneCountInString(f)
	}

	cues := make([]Cue, len(fragments))
	cumLen := 0
	prevEnd := 0.0
	for i, f := range fragments {
		cumLen += utf8.RuneCountInString(f)
		end := totalSec * float64(cumLen) / float64(totalLen)
		if i == len(fragments)-1 {
			end = totalSec
		}
		cues[i] = Cue{
			Index:    i + 1,
			Text:     f,
			StartSec: prevEnd,
			EndSec:   end,
		}
		prevEnd = end
	}
	return cues
}

// FragmentScript splits the script body into caption-sized fragments.
// Sentences are the primary boundary; a sentence over the character budget
// splits on clause commas, and a clause still over budget wraps on word
// boundaries.
func FragmentScript(body string, maxChars int) []string {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	if maxChars <= 0 {
		return []string{body}
	}

	var fragments []string
	for _, sentence := range splitSentences(body) {
		if utf8.RuneCountInString(sentence) <= maxChars {
			fragments = append(fragments, sentence)
			continue
		}
		for _, clause := range splitClauses(sentence) {
			if utf8.RuneCountInString(clause) <= maxChars {
				fragments = append(fragments, clause)
				continue
			}
			fragments = append(fragments, wrapWords(clause, maxChars)...)
		}
	}
	return fragments
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func splitClauses(sentence string) []string {
	parts := strings.Split(sentence, ",")
	var clauses []string
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if i < len(parts)-1 {
			p += ","
		}
		clauses = append(clauses, p)
	}
	return clauses
}

func wrapWords(text string, maxChars int) []string {
	var pieces []string
	var current strings.Builder
	for _, w := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+1+len(w) > maxChars {
			pieces = append(pieces, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(w)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}

// WriteSRT writes the cue list as a SubRip subtitle file.
func WriteSRT(cues []Cue, path string) error {
	var b strings.Builder
	for _, cue := range cues {
		b.WriteString(fmt.Sprintf("%d\n", cue.Index))
		b.WriteString(fmt.Sprintf("%s --> %s\n", formatSRTTime(cue.StartSec), formatSRTTime(cue.EndSec)))
		b.WriteString(cue.Text)
		b.WriteString("\n\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

func formatSRTTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	totalMillis := int(sec*1000 + 0.5)
	h := totalMillis / 3600000
	m := totalMillis % 3600000 / 60000
	s := totalMillis % 60000 / 1000
	ms := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
