// Package extract classifies chat message bodies and parses payment records
// out of them using a layered grammar of named pattern rules.
package extract

import (
	"regexp"
	"strings"
)

// Rule is one named pattern for a field. Rules are tried in slice order and
// the first match wins, so new transcript formats are supported by appending
// rules rather than nesting conditionals.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// RuleSet is an ordered list of rules for a single field.
type RuleSet []Rule

// Find returns the first capture group of the first matching rule.
func (rs RuleSet) Find(text string) (value string, rule string, ok bool) {
	for _, r := range rs {
		if m := r.Pattern.FindStringSubmatch(text); m != nil {
			return m[1], r.Name, true
		}
	}
	return "", "", false
}

// Senders wrap labels in WhatsApp emphasis markers (*bold*, _italic_), so
// every label pattern tolerates them. Label terminators are consumed, not
// looked ahead at: RE2 has no lookahead.
const em = `[*_]*`

// sep follows a label: it absorbs the optional colon plus any mix of
// emphasis markers and whitespace on either side of it.
const sep = `[\s*_]*:?[\s*_]*`

var (
	// groupHeaderRe locates each group block: marker, multi-word name, and
	// identifier. A message may contain several blocks; field values are
	// parsed from the window between one header and the next.
	groupHeaderRe = regexp.MustCompile(`(?i)` + em + `GRUPO` + sep + `([\p{L}][\p{L}\d ]*?)` + em + `(?:\s+0*\d{6})?\s+` + em + `ID` + sep + `0*(\d{1,6})`)

	// groupMarkerRe is the cheap group detector used for classification.
	groupMarkerRe = regexp.MustCompile(`(?i)\bGRUPO\b`)

	// clientMarkerRe is the individual-payment detector.
	clientMarkerRe = regexp.MustCompile(`(?i)\bCLIENTE\b`)

	// bareIndividualRe matches the markerless variant: a line holding only a
	// 6-digit code and an uppercase name.
	bareIndividualRe = regexp.MustCompile(`(?m)^\s*0*(\d{6})\s+([A-ZÁÉÍÓÚÑÜ][A-ZÁÉÍÓÚÑÜ .]+?)\s*$`)

	// paymentTokenRe rescues bodies that look like system notices but still
	// carry payment-indicating tokens.
	paymentTokenRe = regexp.MustCompile(`(?i)\b(?:Pago|Ahorro|CLIENTE)\b`)
)

// System notices WhatsApp injects into exports.
var systemNotices = []string{
	"Creaste el grupo",
	"cifrados de extremo a extremo",
}

var identifierRules = RuleSet{
	{Name: "id-labeled", Pattern: regexp.MustCompile(`(?i)` + em + `\bID\b` + sep + `0*(\d{1,6})`)},
}

var clientNameRules = RuleSet{
	// Name runs up to the next field marker or end of line; the terminator
	// alternatives are consumed so multi-word names survive.
	{Name: "cliente-inline", Pattern: regexp.MustCompile(`(?i)` + em + `CLIENTE` + sep + `([\p{L}][\p{L}\d ]*?)` + em + `\s*(?:\n|$|` + em + `(?:ID|Pago|Sucursal|Ciclo)\b)`)},
}

var amountRules = RuleSet{
	{Name: "pago-labeled", Pattern: regexp.MustCompile(`(?i)` + em + `Pago` + sep + `\$?\s*([\d,]+(?:\.\d+)?)`)},
}

var savingsRules = RuleSet{
	{Name: "ahorro-labeled", Pattern: regexp.MustCompile(`(?i)` + em + `Ahorro` + sep + `\$?\s*([\d,]+(?:\.\d+)?)`)},
}

var explicitTotalRules = RuleSet{
	{Name: "total-labeled", Pattern: regexp.MustCompile(`(?i)` + em + `Total` + sep + `\$?\s*([\d,]+(?:\.\d+)?)`)},
}

var branchRules = RuleSet{
	{Name: "sucursal-line", Pattern: regexp.MustCompile(`(?im)` + em + `Sucursal` + sep + `([\p{L}][\p{L}\d .]*?)` + em + `\s*$`)},
	{Name: "sucursal-inline", Pattern: regexp.MustCompile(`(?i)` + em + `Sucursal` + sep + `([\p{L}][\p{L}\d .]*?)\s+` + em + `(?:N[úu]mero|N\s?pago|Ciclo|Total|Pago|Ahorro)\b`)},
}

var sequenceRules = RuleSet{
	{Name: "numero-de-pago", Pattern: regexp.MustCompile(`(?i)N[úu]mero\s+de\s+pago` + sep + `(\d+)`)},
	{Name: "n-pago", Pattern: regexp.MustCompile(`(?i)\bN\.?\s?Pago` + sep + `(\d+)`)},
}

var cycleRules = RuleSet{
	{Name: "ciclo-labeled", Pattern: regexp.MustCompile(`(?i)` + em + `Ciclo` + sep + `(0?[0-9]{1,2})\b`)},
}

var conceptRules = RuleSet{
	{Name: "parenthetical", Pattern: regexp.MustCompile(`\(([^)]+)\)`)},
}

// isSystemNotice reports whether a body is a known WhatsApp notice carrying
// no payment tokens.
func isSystemNotice(body string) bool {
	for _, notice := range systemNotices {
		if strings.Contains(body, notice) {
			return !paymentTokenRe.MatchString(body)
		}
	}
	return false
}
