package layout

import (
	"regexp"
	"strconv"
	"strings"
)

var fontSizePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// Style holds the CSS-like properties of a page style entry.
type Style map[string]string

// ParseStyle parses "font-weight: bold; font-size: 14pt" into a Style.
// Entries without a key or value are dropped.
func ParseStyle(s string) Style {
	style := Style{}
	for _, part := range strings.Split(s, ";") {
		key, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if key != "" && val != "" {
			style[key] = val
		}
	}
	return style
}

// Bold reports a bold font weight.
func (s Style) Bold() bool {
	return strings.Contains(strings.ToLower(s["font-weight"]), "bold")
}

// Italic reports an italic font style.
func (s Style) Italic() bool {
	return strings.Contains(strings.ToLower(s["font-style"]), "italic")
}

// FontSize returns the numeric font size. Styles without a size count as
// 8pt; sizes that carry no number count as 10pt.
func (s Style) FontSize() float64 {
	raw, ok := s["font-size"]
	if !ok {
		raw = "8pt"
	}
	m := fontSizePattern.FindString(raw)
	if m == "" {
		return 10.0
	}
	size, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 10.0
	}
	return size
}
