// Package segment splits long documents into bounded, slightly overlapping
// segments aligned to the strongest structural boundary the text offers.
//
// Boundaries are tried in order of preference: page breaks, numbered
// headings, blank lines and finally sentence ends. Documents at or below the
// small-document threshold are never split.
package segment

import (
	"fmt"
	"unicode/utf8"
)

// Segment is a contiguous slice of a document. Start and End are byte
// offsets into the document, End exclusive.
type Segment struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Len returns the segment size in bytes.
func (s Segment) Len() int {
	return s.End - s.Start
}

// Segmenter splits documents with fixed, validated options.
type Segmenter struct {
	opts Options
}

// New creates a Segmenter. It returns ErrInvalidOptions for inconsistent sizing.
func New(opts Options) (*Segmenter, error) {
	err := opts.Validate()
	if err != nil {
		return nil, err
	}

	return &Segmenter{opts: opts}, nil
}

// Split segments text with the default options.
func Split(text string) []Segment {
	return (&Segmenter{opts: DefaultOptions()}).Split(text)
}

// Split returns the ordered segments of text. It never fails: text with no
// usable boundary is cut at MaxSize.
func (s *Segmenter) Split(text string) []Segment {
	segments, _ := s.split(text)

	return segments
}

// Plan describes how a document would be segmented.
type Plan struct {
	Detector  Detector  `json:"detector"`
	Segments  []Segment `json:"segments"`
	Bytes     int       `json:"bytes"`
	MinBytes  int       `json:"min_bytes"`
	MaxBytes  int       `json:"max_bytes"`
	MeanBytes int       `json:"mean_bytes"`
}

// Plan segments text and summarizes the result.
func (s *Segmenter) Plan(text string) Plan {
	segments, det := s.split(text)

	plan := Plan{
		Detector: det,
		Segments: segments,
		Bytes:    len(text),
		MinBytes: segments[0].Len(),
	}

	total := 0

	for _, seg := range segments {
		total += seg.Len()
		plan.MinBytes = min(plan.MinBytes, seg.Len())
		plan.MaxBytes = max(plan.MaxBytes, seg.Len())
	}

	plan.MeanBytes = total / len(segments)

	return plan
}

// String renders a one-line summary of the plan.
func (p Plan) String() string {
	return fmt.Sprintf("%d segments via %s (min %d, mean %d, max %d bytes)",
		len(p.Segments), p.Detector, p.MinBytes, p.MeanBytes, p.MaxBytes)
}

func (s *Segmenter) split(text string) ([]Segment, Detector) {
	if len(text) <= s.opts.SmallDocumentThreshold {
		return []Segment{{Text: text, End: len(text)}}, DetectorWhole
	}

	points, det := candidates(text)

	acc := accumulator{text: text, opts: s.opts}
	for _, point := range points[1:] {
		acc.advance(point)
	}

	acc.finish()

	for idx := range acc.segments {
		acc.segments[idx].Index = idx
	}

	return acc.segments, det
}

// accumulator grows one open segment across candidate points and closes it
// once it reaches the target size.
type accumulator struct {
	text     string
	opts     Options
	segments []Segment

	start   int // start of the open segment
	last    int // last candidate point inside the open segment; equal to start when none
	covered int // end of the last emitted segment
}

func (a *accumulator) advance(point int) {
	for point-a.start >= a.opts.TargetSize {
		if a.last > a.start && a.last-a.start >= a.opts.MinSize {
			a.emit(a.last)

			continue
		}

		if point-a.start <= a.opts.MaxSize {
			a.emit(point)

			return
		}

		a.emit(a.forcedEnd())
	}

	a.last = point
}

// forcedEnd cuts an oversized span at MaxSize, backing off to a rune start.
func (a *accumulator) forcedEnd() int {
	end := a.start + a.opts.MaxSize
	for end > a.start+1 && !utf8.RuneStart(a.text[end]) {
		end--
	}

	return end
}

func (a *accumulator) emit(end int) {
	a.segments = append(a.segments, Segment{
		Text:  a.text[a.start:end],
		Start: a.start,
		End:   end,
	})
	a.covered = end

	next := end - a.opts.Overlap
	for next > a.start && !utf8.RuneStart(a.text[next]) {
		next--
	}

	if next <= a.start {
		next = end
	}

	a.start = next
	a.last = next
}

// finish emits the remainder. A remainder below MinSize is folded into the
// previous segment when that stays within MaxSize.
func (a *accumulator) finish() {
	size := len(a.text)
	if a.covered >= size {
		return
	}

	if size-a.start < a.opts.MinSize && len(a.segments) > 0 {
		prev := &a.segments[len(a.segments)-1]
		if size-prev.Start <= a.opts.MaxSize {
			prev.End = size
			prev.Text = a.text[prev.Start:size]
			a.covered = size

			return
		}
	}

	a.segments = append(a.segments, Segment{
		Text:  a.text[a.start:size],
		Start: a.start,
		End:   size,
	})
	a.covered = size
}
