package segment

import (
	"regexp"
	"slices"
	"strings"
)

// Detector names the boundary detector that produced a segmentation.
type Detector string

// Boundary detectors, in order of preference.
const (
	// DetectorWhole means the document was small enough to stay whole.
	DetectorWhole Detector = "whole"
	// DetectorPageBreak splits on form feeds.
	DetectorPageBreak Detector = "page_break"
	// DetectorHeading splits before numbered article and section headings.
	DetectorHeading Detector = "heading"
	// DetectorParagraph splits on blank lines.
	DetectorParagraph Detector = "paragraph"
	// DetectorSentence splits after sentence-ending punctuation.
	DetectorSentence Detector = "sentence"
	// DetectorNone means no boundary was found and only forced splits apply.
	DetectorNone Detector = "none"
)

var (
	// headingPattern matches the newline in front of "ARTICLE 4", "Section 12", "Part 2" or "7. Term".
	headingPattern = regexp.MustCompile(`(?i)\n(?:(?:article|section|part)\s+\d+|\d+\.\s+[a-z])`)

	paragraphPattern = regexp.MustCompile(`\n\n+`)

	// sentencePattern consumes the capital letter that Go's RE2 cannot look ahead for;
	// the boundary is placed right after the punctuation.
	sentencePattern = regexp.MustCompile(`[.!?]\s+[A-Z]`)
)

type detector struct {
	name Detector
	find func(text string) []int
}

var cascade = []detector{
	{name: DetectorPageBreak, find: pageBreaks},
	{name: DetectorHeading, find: matchStarts(headingPattern, 0)},
	{name: DetectorParagraph, find: matchStarts(paragraphPattern, 0)},
	{name: DetectorSentence, find: matchStarts(sentencePattern, 1)},
}

func pageBreaks(text string) []int {
	var points []int

	for offset := 0; ; {
		idx := strings.IndexByte(text[offset:], '\f')
		if idx < 0 {
			return points
		}

		points = append(points, offset+idx)
		offset += idx + 1
	}
}

func matchStarts(pattern *regexp.Regexp, shift int) func(string) []int {
	return func(text string) []int {
		matches := pattern.FindAllStringIndex(text, -1)
		points := make([]int, 0, len(matches))

		for _, match := range matches {
			points = append(points, match[0]+shift)
		}

		return points
	}
}

// candidates returns the sorted split points of text, always starting at 0
// and ending at len(text), from the first detector that finds an internal point.
func candidates(text string) ([]int, Detector) {
	size := len(text)

	for _, det := range cascade {
		internal := slices.DeleteFunc(det.find(text), func(p int) bool {
			return p <= 0 || p >= size
		})

		if len(internal) == 0 {
			continue
		}

		points := make([]int, 0, len(internal)+2)
		points = append(points, 0)
		points = append(points, internal...)
		points = append(points, size)
		slices.Sort(points)

		return slices.Compact(points), det.name
	}

	return []int{0, size}, DetectorNone
}
