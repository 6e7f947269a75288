// Package normalize holds the pure text-normalization helpers shared by the
// extraction pipeline and the ledger store.
package normalize

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/hramos/chatledger/internal/model"
)

// TimeSlotCutHour is the boundary between the morning and evening slots.
const TimeSlotCutHour = 12

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// ParseAmount converts a currency string to a float. Currency symbols,
// thousands separators and whitespace are stripped. Any failure yields 0.0;
// the caller never sees an error.
func ParseAmount(text string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', ',':
			return -1
		}
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	if cleaned == "" {
		return 0.0
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0.0
	}
	return value
}

// StripAccents removes diacritics from text so branch names compare stably.
// Blank input yields the "unspecified" sentinel.
func StripAccents(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.BranchUnspecified
	}

	stripped, _, err := transform.String(accentStripper, text)
	if err != nil {
		return text
	}
	return stripped
}

// ZeroPad left-pads an identifier with zeros to the given width. A trailing
// ".0" left behind by numeric cells in older ledgers is trimmed first.
func ZeroPad(id string, width int) string {
	id = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(id), ".0"))
	for len(id) < width {
		id = "0" + id
	}
	return id
}

// DepositCode synthesizes the 9-character deposit code from the type tag,
// 6-digit identifier and 2-digit cycle. Pure concatenation; leading zeros
// are significant.
func DepositCode(typeTag, id6, cycle2 string) string {
	return typeTag + id6 + cycle2
}

// TimeSlot classifies a message hour into the morning or evening slot.
func TimeSlot(hour int) string {
	if hour < TimeSlotCutHour {
		return model.SlotMorning
	}
	return model.SlotEvening
}

// Cycle validates and zero-pads a cycle token. Only "01" and "02" (or their
// unpadded forms) are valid.
func Cycle(text string) (string, bool) {
	padded := ZeroPad(text, 2)
	if padded == "01" || padded == "02" {
		return padded, true
	}
	return "", false
}
