// gate.go - Receipt plausibility gate applied before extraction cost is spent

package ocr

import (
	"strings"
	"unicode"
)

// Gate rejection reasons, also used as human-readable failure messages.
const (
	ReasonEmpty            = "empty"
	ReasonTooFewLines      = "too few lines"
	ReasonNoNumericValues  = "no numeric values"
	ReasonInsufficientText = "insufficient meaningful text"
)

const (
	minLines            = 2
	minMeaningfulTokens = 2
	meaningfulTokenLen  = 3 // tokens must be longer than this
)

// PlausibleReceipt decides whether raw OCR text can structurally be a receipt.
// Rules are applied in order and the first failure wins:
//
//  1. blank text (or the NoTextFound sentinel) → "empty"
//  2. fewer than 2 non-blank lines → "too few lines"
//  3. no digit anywhere → "no numeric values"
//  4. fewer than 2 tokens longer than 3 characters → "insufficient meaningful text"
//
// A rejection short-circuits the pipeline to a terminal FAILED state.
func PlausibleReceipt(text string) (bool, string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == NoTextFound {
		return false, ReasonEmpty
	}

	// A genuine receipt is inherently multi-line: merchant header plus at
	// least one priced line.
	lines := 0
	for _, line := range strings.Split(trimmed, "\n") {
		if strings.TrimSpace(line) != "" {
			lines++
		}
	}
	if lines < minLines {
		return false, ReasonTooFewLines
	}

	if !strings.ContainsFunc(trimmed, unicode.IsDigit) {
		return false, ReasonNoNumericValues
	}

	// Filters OCR noise consisting of isolated glyphs.
	tokens := 0
	for _, token := range strings.Fields(trimmed) {
		if len([]rune(token)) > meaningfulTokenLen {
			tokens++
		}
	}
	if tokens < minMeaningfulTokens {
		return false, ReasonInsufficientText
	}

	return true, ""
}
