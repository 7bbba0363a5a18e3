package pdfocr

import (
	"log/slog"
)

// Config holds options for drawing OCR text layers into a PDF.
type Config struct {
	Debug     bool   // Draw the layer in red with word boxes instead of invisible
	Force     bool   // Reapply OCR even if a layer already exists
	LayerName string // Base name of OCR layer (page number will be appended)
	StartPage int    // First PDF page the OCR pages apply to
	Font      FontConfig
	Logger    *slog.Logger
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() Config {
	return Config{
		LayerName: "OCR Text", // Will be formatted as "OCR Text (Page X)" in the final PDF
		StartPage: 1,
		Font:      DefaultFont,
	}
}

func (c *Config) defaults() {
	if c.LayerName == "" {
		c.LayerName = "OCR Text"
	}
	if c.Font.Name == "" {
		c.Font = DefaultFont
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// FontConfig contains font settings for OCR text rendering
type FontConfig struct {
	Name        string  // Font name (e.g., "Helvetica")
	Style       string  // Font style ("", "B", "I", "BI")
	Size        float64 // Default font size
	AscentRatio float64 // Vertical positioning ratio
}

// DefaultFont sets the default font to Helvetica which is tried and tested for the OCR layer
var DefaultFont = FontConfig{
	Name:        "Helvetica",
	Style:       "",
	Size:        10,
	AscentRatio: 0.718,
}
