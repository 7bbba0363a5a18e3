// Package doctree models the document trees exchanged with the intake
// pipeline: per-batch document lists whose documents carry a key-value
// section, table sections and OCR page trees made of positioned words.
//
// The wire format is the loosely typed JSON produced by the extraction
// service (every node has a "type" and a "children" list). This package turns
// it into a closed set of node types so that walkers can switch over every
// kind explicitly:
//
// - PageNode: one OCR page, with an optional style table
// - WordNode: a positioned word ("v", "pos", "s", "cn")
// - ContainerNode: any other grouping node (blocks, lines, ...)
// - KeySection: the key-value section of a document
// - TableNode: a table section of a document, made of rows of cells
//
// Main Functions:
//
// - DecodeBatches: Parses a list of batches
// - DecodeBatch: Parses a single batch
// - DecodePage: Parses a single page node
package doctree

import "errors"

// Kind identifies a node variant.
type Kind string

const (
	KindWord      Kind = "word"
	KindPage      Kind = "page"
	KindKey       Kind = "key"
	KindTable     Kind = "table"
	KindContainer Kind = "container"
)

var (
	// ErrNoKeySection is returned when a document carries no "key" node.
	ErrNoKeySection = errors.New("document has no key section")
	// ErrMalformedNode is returned when a node cannot be decoded.
	ErrMalformedNode = errors.New("malformed node")
)

// Node is implemented by every node variant.
type Node interface {
	Kind() Kind
}

// Batch is one batch of documents.
type Batch struct {
	Nodes []*Document
}

// Empty reports whether the batch holds no documents.
func (b Batch) Empty() bool { return len(b.Nodes) == 0 }

// Document is one classified document inside a batch.
type Document struct {
	DocType  string
	ID       string
	FilePath string
	Children []Node
}

// KeySection returns the document's key-value section.
func (d *Document) KeySection() (*KeySection, error) {
	for _, child := range d.Children {
		if ks, ok := child.(*KeySection); ok {
			return ks, nil
		}
	}
	return nil, ErrNoKeySection
}

// Tables returns the document's table sections in source order.
func (d *Document) Tables() []*TableNode {
	var tables []*TableNode
	for _, child := range d.Children {
		if t, ok := child.(*TableNode); ok {
			tables = append(tables, t)
		}
	}
	return tables
}

// Pages returns the document's OCR pages in source order.
func (d *Document) Pages() []*PageNode {
	var pages []*PageNode
	for _, child := range d.Children {
		if p, ok := child.(*PageNode); ok {
			pages = append(pages, p)
		}
	}
	return pages
}

// Pages returns every page of every document of the batch, in order.
func (b Batch) Pages() []*PageNode {
	var pages []*PageNode
	for _, doc := range b.Nodes {
		pages = append(pages, doc.Pages()...)
	}
	return pages
}

// StyleDef is one entry of a page style table, e.g.
// {id: 3, v: "font-weight: bold; font-size: 14pt"}.
type StyleDef struct {
	ID    int
	Value string
}

// PageNode is one OCR page.
type PageNode struct {
	ID       string
	Width    float64 // Page width in source pixels (0 when unknown)
	Height   float64 // Page height in source pixels (0 when unknown)
	Styles   []StyleDef
	Children []Node
}

func (*PageNode) Kind() Kind { return KindPage }

// WordNode is a single positioned word.
type WordNode struct {
	Text       string  // "v"
	Pos        string  // "left,top,right,bottom"
	Style      int     // "s", index into the page style table
	Confidence float64 // "cn"
	Err        error   // Attributes that failed to decode and were zeroed
}

func (*WordNode) Kind() Kind { return KindWord }

// ContainerNode groups other nodes (blocks, paragraphs, lines, ...).
type ContainerNode struct {
	Type     string
	ID       string
	Children []Node
}

func (*ContainerNode) Kind() Kind { return KindContainer }

// KeyValue is one labelled field. Compound fields carry children and no value.
type KeyValue struct {
	Label    string
	Value    string
	Children []KeyValue
}

// Compound reports whether the field is a compound (party) field.
func (kv KeyValue) Compound() bool { return len(kv.Children) > 0 }

// KeySection holds the key-value fields of a document.
type KeySection struct {
	Items []KeyValue
}

func (*KeySection) Kind() Kind { return KindKey }

// Cell is one labelled table cell.
type Cell struct {
	Label string
	Value string
}

// TableRow is an ordered list of cells.
type TableRow struct {
	Cells []Cell
}

// TableNode is a table section of a document.
type TableNode struct {
	Name string
	Rows []TableRow
}

func (*TableNode) Kind() Kind { return KindTable }

// Words collects the word nodes of a subtree depth-first, in source order.
func Words(n Node) []*WordNode {
	var words []*WordNode
	var visit func(Node)
	visit = func(n Node) {
		switch n := n.(type) {
		case *WordNode:
			words = append(words, n)
		case *PageNode:
			for _, c := range n.Children {
				visit(c)
			}
		case *ContainerNode:
			for _, c := range n.Children {
				visit(c)
			}
		case *KeySection, *TableNode:
			// no positioned words
		}
	}
	visit(n)
	return words
}
