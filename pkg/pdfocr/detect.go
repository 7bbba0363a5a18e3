package pdfocr

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// ErrEmptyPDF is returned when layer detection is given no data.
var ErrEmptyPDF = errors.New("empty PDF data")

// pdfString matches a literal string body, honouring backslash escapes.
const pdfString = `\(((?:\\.|[^\\)])*)\)`

var ocgPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/Type\s*/OCG\s*/Name\s*` + pdfString),
	regexp.MustCompile(`/OCG\s*<<[^>]*?/Name\s*` + pdfString),
	regexp.MustCompile(`/Name\s*` + pdfString + `[\s\S]{1,50}?/Type\s*/OCG`),
}

var pdfEscapes = strings.NewReplacer(
	`\(`, "(", `\)`, ")", `\\`, `\`, `\r`, "\r", `\n`, "\n", `\t`, "\t",
)

var utf16BOM = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)

// detectPDFLayers finds optional content group names in the raw PDF data.
func detectPDFLayers(pdfData []byte) ([]string, error) {
	if len(pdfData) == 0 {
		return nil, ErrEmptyPDF
	}

	content := string(pdfData)
	seen := make(map[string]bool)
	var layers []string
	for _, re := range ocgPatterns {
		for _, match := range re.FindAllStringSubmatch(content, -1) {
			name := decodeLayerName(pdfEscapes.Replace(match[1]))
			if !seen[name] {
				seen[name] = true
				layers = append(layers, name)
			}
		}
	}
	return layers, nil
}

// decodeLayerName decodes UTF-16BE names carrying a byte order mark.
func decodeLayerName(s string) string {
	if !strings.HasPrefix(s, "\xfe\xff") {
		return s
	}
	decoded, err := utf16BOM.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return decoded
}

// LayerCheckResult contains the results of checking for OCR layers
type LayerCheckResult struct {
	Layers       []string // All detected layers
	HasOCRLayer  bool     // True if the specified OCR layer exists
	OCRLayerName string   // Name of the detected OCR layer (if any)
	Warnings     []string // Any warnings about potential OCR layers
}

// CheckExistingOCRLayers checks for existing OCR layers in a PDF
func CheckExistingOCRLayers(pdfData []byte, ocrLayerName string) (LayerCheckResult, error) {
	result := LayerCheckResult{}

	layers, err := detectPDFLayers(pdfData)
	if err != nil {
		return result, fmt.Errorf("cannot analyze layers: %w", err)
	}
	result.Layers = layers

	pageLayerPattern := regexp.MustCompile(fmt.Sprintf(`^%s\s*\(Page\s*\d+`, regexp.QuoteMeta(ocrLayerName)))

	for _, layer := range layers {
		if layer == ocrLayerName || pageLayerPattern.MatchString(layer) {
			result.HasOCRLayer = true
			result.OCRLayerName = layer
			break
		}

		if strings.Contains(strings.ToLower(layer), "ocr") {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Existing layer detected that might contain OCR: %s", layer))
		}
	}

	return result, nil
}
