package engines

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

// maxVisemesPerWord caps the mouth shapes estimated for one word.
const maxVisemesPerWord = 4

// Script is text split into spoken words and inline [marker] tokens.
type Script struct {
	Words   []string
	Markers []ScriptMarker
}

// ScriptMarker is a marker placed before the word at index Before.
type ScriptMarker struct {
	Name   string
	Before int
}

// ParseScript splits text into words and [marker] tokens. Markup tags such
// as <break/> are dropped.
func ParseScript(text string) Script {
	var s Script
	var word strings.Builder

	flush := func() {
		if w := strings.TrimFunc(word.String(), isEdgePunct); w != "" {
			s.Words = append(s.Words, w)
		}
		word.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '[' || r == '<':
			closer := ']'
			if r == '<' {
				closer = '>'
			}
			end := indexRune(runes[i+1:], closer)
			if end < 0 {
				word.WriteRune(r)
				continue
			}
			flush()
			if r == '[' {
				if name := strings.TrimSpace(string(runes[i+1 : i+1+end])); name != "" {
					s.Markers = append(s.Markers, ScriptMarker{Name: name, Before: len(s.Words)})
				}
			}
			i += end + 1
		case unicode.IsSpace(r):
			flush()
		default:
			word.WriteRune(r)
		}
	}
	flush()
	return s
}

// Spoken returns the words joined by spaces, without markers or tags.
func (s Script) Spoken() string {
	return strings.Join(s.Words, " ")
}

// Letters returns the number of letters and digits across all words, with
// every word counting at least one.
func (s Script) Letters() int {
	n := 0
	for _, w := range s.Words {
		n += weight(w)
	}
	return n
}

// Timings spreads the words over speaking seconds in proportion to their
// length and derives markers and visemes from them.
func (s Script) Timings(speaking float64) (markers, words, visemes []ttypes.Event) {
	total := s.Letters()
	starts := make([]float64, len(s.Words)+1)

	t := 0.0
	for i, w := range s.Words {
		d := 0.0
		if total > 0 {
			d = speaking * float64(weight(w)) / float64(total)
		}
		starts[i] = t
		words = append(words, ttypes.Event{Kind: ttypes.KindWord, Name: w, Start: t, End: t + d, Duration: d})
		visemes = append(visemes, wordVisemes(w, t, d)...)
		t += d
	}
	starts[len(s.Words)] = t

	for _, m := range s.Markers {
		at := starts[m.Before]
		markers = append(markers, ttypes.Event{Kind: ttypes.KindMarker, Name: m.Name, Start: at, End: at})
	}
	return markers, words, visemes
}

// wordVisemes splits a word's time slot between the mouth shapes of its letters.
func wordVisemes(word string, start, duration float64) []ttypes.Event {
	var names []string
	for _, r := range strings.ToLower(word) {
		name, ok := letterViseme(r)
		if !ok {
			continue
		}
		if len(names) > 0 && names[len(names)-1] == name {
			continue
		}
		names = append(names, name)
		if len(names) == maxVisemesPerWord {
			break
		}
	}
	if len(names) == 0 {
		return nil
	}

	step := duration / float64(len(names))
	out := make([]ttypes.Event, len(names))
	for i, name := range names {
		s := start + float64(i)*step
		out[i] = ttypes.Event{Kind: ttypes.KindViseme, Name: name, Start: s, End: s + step, Duration: step}
	}
	return out
}

func letterViseme(r rune) (string, bool) {
	switch r {
	case 'a', 'i', 'y':
		return "A-I", true
	case 'e':
		return "E", true
	case 'o':
		return "O", true
	case 'u':
		return "U", true
	case 'm', 'b', 'p':
		return "M", true
	case 'f', 'v':
		return "F-V", true
	case 'q', 'w':
		return "Q-W", true
	case 'l':
		return "L", true
	}
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return "C-D-G-K-N-S-TH", true
	}
	return "", false
}

func weight(w string) int {
	n := 0
	for _, r := range w {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return max(n, 1)
}

func isEdgePunct(r rune) bool {
	return unicode.IsPunct(r) && r != '\''
}

func indexRune(rs []rune, target rune) int {
	for i, r := range rs {
		if r == target {
			return i
		}
	}
	return -1
}

// rate reads the speaking rate from vendor params. Missing or invalid
// values mean normal speed.
func rate(params map[string]any) float64 {
	var r float64
	switch v := params["rate"].(type) {
	case float64:
		r = v
	case int:
		r = float64(v)
	case string:
		r, _ = strconv.ParseFloat(v, 64)
	}
	if r <= 0 {
		return 1.0
	}
	return r
}
