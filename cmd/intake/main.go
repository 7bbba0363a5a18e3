// intake is a command-line tool that renders OCR'd shipping documents as page
// text and flattens their extracted fields into a single record.
//
// Input is either a batch JSON file produced by the upstream OCR service, an
// hOCR file from Tesseract, or a PDF sent to Google Document AI.
//
// Usage:
//
//	intake [-config config.yml] (-batches batches.json | -hocr doc.hocr | -pdf doc.pdf) [options]
//
// Input options (one required):
//
//	-batches string   Path to a JSON list of batches (or a single batch object)
//	-hocr string      Path to an hOCR file
//	-pdf string       Path to a PDF processed with Google Document AI (needs document_ai in the config)
//
// Output options (at least one required):
//
//	-text string      Path to save the rendered page text ("-" for stdout)
//	-result string    Path to save the flattened result JSON ("-" for stdout)
//	-output string    Path to save a searchable PDF (with -pdf, or -hocr and -image-dir)
//	-debug-api string Path to save the raw Document AI response as JSON
//
// Processing options:
//
//	-markdown         Render markdown instead of plain text
//	-doctype string   Doc type assigned to hOCR / Document AI input (default "unknown")
//	-image-dir string Page images used with -hocr to build a searchable PDF
//	-force            Reapply OCR to a PDF that already has an OCR layer
//
// Authentication:
//
// Document AI requests use the GOOGLE_APPLICATION_CREDENTIALS environment
// variable for authentication with Google Cloud.
//
// Example:
//
//	intake -config config.yml -batches batches.json -text pages.txt -result result.json
//	intake -config config.yml -pdf awb.pdf -doctype hawb -result - -output awb_ocr.pdf
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/gardar/cargointake/pkg/auditlog"
	"github.com/gardar/cargointake/pkg/config"
	"github.com/gardar/cargointake/pkg/doctree"
	"github.com/gardar/cargointake/pkg/gdocai"
	"github.com/gardar/cargointake/pkg/hocr"
	"github.com/gardar/cargointake/pkg/intake"
	"github.com/gardar/cargointake/pkg/pdfocr"
)

// progress receives user-facing status lines. It moves to stderr when an
// output is written to stdout.
var progress io.Writer = os.Stdout

func main() {
	configPath := flag.String("config", "", "Path to the config YAML file")

	// Input flags
	batchesPath := flag.String("batches", "", "Path to a batch JSON file")
	hocrPath := flag.String("hocr", "", "Path to an hOCR file")
	pdfPath := flag.String("pdf", "", "Path to a PDF to process with Document AI")

	// Output flags
	textPath := flag.String("text", "", "Path to save rendered page text (- for stdout)")
	resultPath := flag.String("result", "", "Path to save the flattened result JSON (- for stdout)")
	pdfOcrPath := flag.String("output", "", "Path to save a searchable PDF")
	debugAPIPath := flag.String("debug-api", "", "Path to save the Document AI response as JSON")

	// Processing flags
	markdown := flag.Bool("markdown", false, "Render markdown instead of plain text")
	docType := flag.String("doctype", "unknown", "Doc type for hOCR and Document AI input")
	imageDir := flag.String("image-dir", "", "Directory of page images for -hocr searchable PDF output")
	force := flag.Bool("force", false, "Reapply OCR even if an OCR layer is already detected")
	flag.Parse()

	inputs := 0
	for _, p := range []string{*batchesPath, *hocrPath, *pdfPath} {
		if p != "" {
			inputs++
		}
	}
	if inputs != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one of -batches, -hocr or -pdf must be provided")
		fmt.Fprintln(os.Stderr, "Usage:")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *textPath == "" && *resultPath == "" && *pdfOcrPath == "" && *debugAPIPath == "" {
		fmt.Fprintln(os.Stderr, "Error: At least one output flag must be provided (-text, -result, -output or -debug-api)")
		fmt.Fprintln(os.Stderr, "Usage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *textPath == "-" || *resultPath == "-" {
		progress = os.Stderr
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *markdown {
		cfg.Render.Markdown = true
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx := context.Background()

	// Build batches from the selected input
	var batches []doctree.Batch
	var ocrPages []*doctree.PageNode
	var pageImages [][]byte
	switch {
	case *batchesPath != "":
		data, err := os.ReadFile(*batchesPath)
		if err != nil {
			log.Fatalf("Failed to read batch file: %v", err)
		}
		batches, err = doctree.DecodeBatches(data)
		if err != nil {
			log.Fatalf("Failed to decode batches: %v", err)
		}
		fmt.Fprintf(progress, "Loaded %d batches from %s\n", len(batches), *batchesPath)
		for _, b := range batches {
			ocrPages = append(ocrPages, b.Pages()...)
		}

	case *hocrPath != "":
		data, err := os.ReadFile(*hocrPath)
		if err != nil {
			log.Fatalf("Failed to read hOCR file: %v", err)
		}
		ocrPages, err = hocr.Parse(data)
		if err != nil {
			log.Fatalf("Failed to parse hOCR data: %v", err)
		}
		doc := &doctree.Document{DocType: *docType, ID: filepath.Base(*hocrPath), FilePath: *hocrPath}
		for _, p := range ocrPages {
			doc.Children = append(doc.Children, p)
		}
		batches = []doctree.Batch{{Nodes: []*doctree.Document{doc}}}
		fmt.Fprintf(progress, "Parsed %d hOCR pages from %s\n", len(ocrPages), *hocrPath)

		if *imageDir != "" {
			pageImages = readImages(*imageDir)
		}

	case *pdfPath != "":
		daiCfg := cfg.GoogleDocumentAI()
		if err := daiCfg.Validate(); err != nil {
			log.Fatalf("Document AI is not configured: %v", err)
		}
		pdfBytes, err := os.ReadFile(*pdfPath)
		if err != nil {
			log.Fatalf("Failed to read PDF file: %v", err)
		}
		fmt.Fprintln(progress, "Processing PDF with Document AI:", *pdfPath)
		raw, err := gdocai.ProcessDocument(ctx, pdfBytes, daiCfg)
		if err != nil {
			log.Fatalf("Error processing document: %v", err)
		}
		if *debugAPIPath != "" {
			apiJSON, err := gdocai.ToJSON(raw)
			if err != nil {
				log.Fatalf("Failed to convert API response to JSON: %v", err)
			}
			writeOutput(*debugAPIPath, []byte(apiJSON), "API response JSON")
		}
		doc := gdocai.DocumentFromProto(raw, *docType, filepath.Base(*pdfPath))
		doc.FilePath = *pdfPath
		batches = []doctree.Batch{{Nodes: []*doctree.Document{doc}}}
		ocrPages = doc.Pages()
	}

	// Audit sinks
	sinks := auditlog.Multi{auditlog.NewSlogSink(logger)}
	if cfg.Audit.SQLitePath != "" {
		store, err := auditlog.OpenSQLite(cfg.Audit.SQLitePath, logger)
		if err != nil {
			log.Fatalf("Failed to open audit database: %v", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	pipeline := intake.New(intake.Config{
		Workers:  cfg.Render.Workers,
		Renderer: cfg.RendererConfig(logger),
		Flatten:  cfg.FlattenConfig(logger),
		Sink:     sinks,
		Logger:   logger,
	})

	res := pipeline.Process(ctx, intake.Job{Batches: batches, Keys: cfg.ProcessKeys})
	if res.Err != nil {
		log.Fatalf("Failed to process batch %s: %v", res.ID, res.Err)
	}
	fmt.Fprintf(progress, "Processed batch %s (%d warnings)\n", res.ID, len(res.Warnings))

	if *textPath != "" {
		writeOutput(*textPath, []byte(res.Text+"\n"), "Page text")
	}

	if *resultPath != "" {
		resultJSON, err := json.MarshalIndent(res.Result, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode result: %v", err)
		}
		writeOutput(*resultPath, append(resultJSON, '\n'), "Flattened result")
	}

	if *pdfOcrPath != "" {
		ocrConfig := pdfocr.DefaultConfig()
		ocrConfig.Force = *force
		ocrConfig.Logger = logger

		var out []byte
		var err error
		switch {
		case *pdfPath != "":
			fmt.Fprintln(progress, "Creating searchable PDF by applying OCR to existing PDF...")
			pdfBytes, readErr := os.ReadFile(*pdfPath)
			if readErr != nil {
				log.Fatalf("Failed to read PDF file: %v", readErr)
			}
			out, err = pdfocr.ApplyOCR(pdfBytes, ocrPages, ocrConfig)
		case len(pageImages) > 0:
			fmt.Fprintf(progress, "Assembling PDF with %d pages...\n", len(pageImages))
			out, err = pdfocr.AssembleWithOCR(ocrPages, pageImages, ocrConfig)
		default:
			log.Fatalf("Searchable PDF output needs -pdf, or -hocr with -image-dir")
		}
		if err != nil {
			log.Fatalf("Failed to create searchable PDF: %v", err)
		}
		writeOutput(*pdfOcrPath, out, "OCR'ed PDF")
	}
}

// readImages loads every file of dir in name order.
func readImages(dir string) [][]byte {
	paths, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		log.Fatalf("Error accessing image directory: %v", err)
	}
	sort.Strings(paths)
	fmt.Fprintf(progress, "Found %d image files in %s\n", len(paths), dir)

	var images [][]byte
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			log.Fatalf("Failed to read image %s: %v", p, err)
		}
		images = append(images, data)
	}
	return images
}

// writeOutput writes data to path, or to stdout when path is "-".
func writeOutput(path string, data []byte, what string) {
	if path == "-" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Fatalf("Failed to write %s: %v", what, err)
	}
	fmt.Fprintln(progress, what, "saved to:", path)
}
