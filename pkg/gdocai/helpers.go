package gdocai

import (
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// ErrNoImage is returned for pages that carry no rendered image.
var ErrNoImage = errors.New("no image found in documentai page")

// ToJSON converts various types to a JSON string. Protocol buffer messages
// use protojson, everything else is indented with encoding/json.
func ToJSON(data any) (string, error) {
	switch v := data.(type) {
	case proto.Message:
		b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// DocumentFromJSON reads a Document AI response saved as JSON (for example
// with ToJSON or by a batch process writing to Cloud Storage).
func DocumentFromJSON(data []byte) (*documentaipb.Document, error) {
	doc := &documentaipb.Document{}
	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse Document AI JSON: %w", err)
	}
	return doc, nil
}

// ExtractImages returns the rendered image of every page, in page order.
func ExtractImages(doc *documentaipb.Document) ([][]byte, error) {
	images := make([][]byte, 0, len(doc.GetPages()))
	for i, page := range doc.GetPages() {
		content := page.GetImage().GetContent()
		if len(content) == 0 {
			return nil, fmt.Errorf("page %d: %w", i+1, ErrNoImage)
		}
		images = append(images, content)
	}
	return images, nil
}
