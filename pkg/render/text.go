package render

import (
	"bytes"
	"encoding/xml"
)

const (
	titleFontSize = 20.0
	bodyFontSize  = 13.0
	labelFontSize = 11.0
	fontCharWidth = 0.55
	cardInset     = 16.0
)

// EscapeXML escapes s for use in SVG text and attribute values.
func EscapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// Truncate shortens label so that it fits width at fontSize, marking the cut
// with "..".
func Truncate(label string, width, fontSize float64) string {
	maxChars := max(3, int(width/(fontSize*fontCharWidth)))
	r := []rune(label)
	if len(r) <= maxChars {
		return label
	}
	return string(r[:maxChars-2]) + ".."
}
