package textwrap

import "strings"

// Wrap reflows text so that no line is longer than maxWidth characters.
// Existing line breaks are kept and each paragraph is wrapped on its own.
// Lines are cut at the last space that fits, and that space is dropped.
// A word longer than maxWidth is split at exactly maxWidth.
func Wrap(text string, maxWidth int) string {
	if text == "" {
		return ""
	}
	if maxWidth < 1 {
		maxWidth = 1
	}

	segments := strings.Split(text, "\n")
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		lines = append(lines, wrapSegment([]rune(seg), maxWidth)...)
	}
	return strings.Join(lines, "\n")
}

func wrapSegment(seg []rune, width int) []string {
	var out []string
	for len(seg) > width {
		cut := lastSpace(seg, width)
		if cut <= 0 {
			out = append(out, string(seg[:width]))
			seg = seg[width:]
			continue
		}
		out = append(out, string(seg[:cut]))
		seg = seg[cut+1:]
	}
	return append(out, string(seg))
}

// lastSpace returns the index of the last space in seg[0:width+1], or -1.
// Callers guarantee len(seg) > width.
func lastSpace(seg []rune, width int) int {
	for i := width; i >= 0; i-- {
		if seg[i] == ' ' {
			return i
		}
	}
	return -1
}
