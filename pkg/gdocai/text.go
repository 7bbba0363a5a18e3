package gdocai

import (
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

// textFromLayout extracts text from a layout's text anchor segments.
// Indexes count runes of the document text.
func textFromLayout(layout *documentaipb.Document_Page_Layout, fullText string) string {
	segments := layout.GetTextAnchor().GetTextSegments()
	if len(segments) == 0 {
		return ""
	}
	runes := []rune(fullText)
	total := int64(len(runes))

	var sb strings.Builder
	for _, seg := range segments {
		start, end := seg.GetStartIndex(), seg.GetEndIndex()
		start = max(0, min(start, total))
		end = max(start, min(end, total))
		sb.WriteString(string(runes[start:end]))
	}
	return sb.String()
}

// anchorRange returns the first start and last end index of a layout's text
// anchor, or (-1, -1) when it has none.
func anchorRange(layout *documentaipb.Document_Page_Layout) (int64, int64) {
	segments := layout.GetTextAnchor().GetTextSegments()
	if len(segments) == 0 {
		return -1, -1
	}
	return segments[0].GetStartIndex(), segments[len(segments)-1].GetEndIndex()
}
