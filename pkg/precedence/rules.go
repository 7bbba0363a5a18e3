package precedence

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/gardar/cargointake/pkg/fields"
)

// Path identifies which selection policy is running.
type Path int

const (
	// ByPrecedence walks the configured doc-type order.
	ByPrecedence Path = iota
	// ByLastOccurrence scans candidates from the last one backwards.
	ByLastOccurrence
)

// Annotation records why an exception rule suppressed a candidate.
type Annotation struct {
	Rule    string
	DocType string
	DocID   string
	Reason  string
}

// ExceptionRule can suppress an otherwise eligible candidate.
type ExceptionRule interface {
	Check(label string, c fields.Candidate) (Annotation, bool)
}

var tokenPattern = regexp.MustCompile(`\b[A-Za-z0-9]+\b`)

// AccountNumberRule suppresses party candidates of one doc type whose
// address block holds several account-number-shaped tokens. Such blocks come
// from pre-alerts listing multiple accounts and cannot be trusted for the
// party.
type AccountNumberRule struct {
	Label      string // Party label, compared lowercased and trimmed
	DocType    string // Doc type, compared lowercased without spaces
	AddressKey string
	MinTokens  int
	MinLen     int
	MaxLen     int
}

// DefaultExceptionRules returns the rules applied when none are configured.
func DefaultExceptionRules() []ExceptionRule {
	return []ExceptionRule{
		AccountNumberRule{
			Label:      "importer",
			DocType:    "prealert",
			AddressKey: "block",
			MinTokens:  2,
			MinLen:     7,
			MaxLen:     20,
		},
	}
}

func (r AccountNumberRule) Check(label string, c fields.Candidate) (Annotation, bool) {
	if strings.ToLower(strings.TrimSpace(label)) != strings.ToLower(r.Label) {
		return Annotation{}, false
	}
	if compactDocType(c.DocType) != compactDocType(r.DocType) {
		return Annotation{}, false
	}
	if !c.Value.IsCompound() {
		return Annotation{}, false
	}
	n := r.Count(c.Value.Party.AddressLine(r.AddressKey))
	if n < r.MinTokens {
		return Annotation{}, false
	}
	return Annotation{
		Rule:    "account-number",
		DocType: c.DocType,
		DocID:   c.DocID,
		Reason: fmt.Sprintf("either multiple account numbers are present or the account number contains more than 8 characters in %s, hence it is being ignored.",
			c.DocType),
	}, true
}

// Count returns the number of tokens in text that look like account numbers:
// mixed letters and digits, MinLen to MaxLen long, with an upper-case letter.
func (r AccountNumberRule) Count(text string) int {
	n := 0
	for _, tok := range tokenPattern.FindAllString(text, -1) {
		if len(tok) < r.MinLen || len(tok) > r.MaxLen {
			continue
		}
		var digit, upper bool
		for _, c := range tok {
			digit = digit || unicode.IsDigit(c)
			upper = upper || unicode.IsUpper(c)
		}
		if digit && upper {
			n++
		}
	}
	return n
}

// CountAccountNumbers counts account-number-shaped tokens with the default
// rule bounds.
func CountAccountNumbers(text string) int {
	return AccountNumberRule{MinLen: 7, MaxLen: 20}.Count(text)
}

func compactDocType(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "")
}
