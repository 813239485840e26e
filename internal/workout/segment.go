package workout

import (
	"regexp"

	"workoutcal/internal/model"
)

// markerRe matches a line-leading day marker such as "3. TAG" or
// "14. TAG: ENJOY". Group 1 is the marker text: indentation before it and the
// line terminator (LF or CRLF) after it are left to the surrounding filler.
var markerRe = regexp.MustCompile(`(?m)^[ \t]*(\d{1,2}\.[ \t]*TAG[^\r\n]*)`)

// Segment splits text into alternating marker and filler chunks in document
// order. Filler before the first marker is dropped, empty filler is never
// emitted, and a document without markers yields no chunks.
func Segment(text string) []model.Chunk {
	matches := markerRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	chunks := make([]model.Chunk, 0, 2*len(matches))
	prev := matches[0][2]
	for _, m := range matches {
		start, end := m[2], m[3]
		if start > prev {
			chunks = append(chunks, model.Chunk{Text: text[prev:start]})
		}
		chunks = append(chunks, model.Chunk{Text: text[start:end], Marker: true})
		prev = end
	}
	if prev < len(text) {
		chunks = append(chunks, model.Chunk{Text: text[prev:]})
	}
	return chunks
}
