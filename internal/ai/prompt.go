// prompt.go - Extraction prompt construction

package ai

import (
	"strings"

	"github.com/rezapratama/strukparse/internal/category"
)

// Mode selects the extraction field shape for the whole pipeline.
type Mode string

const (
	// ModePlain emits bare values per field.
	ModePlain Mode = "plain"
	// ModeScored emits {value, confidence} pairs per field.
	ModeScored Mode = "scored"
)

const promptHeader = `You are a professional data extraction system.
Task: convert this messy OCR text from a retail receipt into valid JSON.
Languages: support Indonesian, English, and Japanese receipts.`

// extractionRules is the fixed rule set. The total-amount rules matter most:
// tendered cash and change are the two classic traps on Indonesian receipts.
const extractionRules = `RULES:
1. merchant_name: the store or brand name, usually one of the first non-address
   lines at the top of the receipt. Never use a slogan, address, phone number,
   NPWP line, or cashier name.
2. Prices: strip thousands separators ("3.000" and "3,000 " both mean 3000) and
   output integers in the minor currency unit. Never output decimals for money.
3. total_amount: use the line labeled TOTAL, GRAND TOTAL, SUBTOTAL, or
   TOTAL BELANJA. NEVER use lines labeled TUNAI, CASH, JUMLAH UANG, AMOUNT
   TENDERED, BAYAR, KEMBALI, KEMBALIAN, or CHANGE - those are the cash handed
   over and the change returned, not the purchase total. total_amount must
   equal the sum of the item total_price values.
4. For each item: total_price = qty * price minus any discount or voucher on
   that line. If a discount or voucher line follows an item, attach it to that
   item via discount_type/discount_value/voucher_amount.
5. date: input may be DD/MM/YYYY, DD-MM-YYYY, YYYY-MM-DD, or use month names
   ("02 Jan 2026"). Always output ISO-8601 (YYYY-MM-DD). If no date is
   printed, output null - do not guess.
6. time: always output 24-hour "HH:MM". If no time is printed, output null.
7. category: pick exactly one per item from this set:
   ` + "{CATEGORIES}" + `
   If nothing fits, use "Others".`

// confidenceRubric is appended in scored mode only.
const confidenceRubric = `CONFIDENCE SCORING:
Attach a confidence in [0,1] to every field:
- 0.9-1.0: the text is unambiguous and clearly printed
- 0.7-0.9: minor doubt (slight blur, partial glyph)
- 0.5-0.7: partially unclear or multiple plausible readings
- below 0.5: best guess
Lower the score when the text is truncated, when glyphs are visually ambiguous
(0 vs O, 1 vs I), or when you inferred a value instead of reading it.`

const plainFormat = `OUTPUT JSON FORMAT:
{
  "merchant_name": "string",
  "date": "YYYY-MM-DD" or null,
  "time": "HH:MM" or null,
  "items": [
    {"name": "string", "qty": int, "price": int, "total_price": int,
     "category": "string",
     "discount_type": "string" or null, "discount_value": number or null,
     "voucher_amount": number or null}
  ],
  "total_amount": int
}`

const scoredFormat = `OUTPUT JSON FORMAT:
Every field is an object {"value": ..., "confidence": float}.
{
  "merchant_name": {"value": "string", "confidence": float},
  "date": {"value": "YYYY-MM-DD" or null, "confidence": float},
  "time": {"value": "HH:MM" or null, "confidence": float},
  "items": [
    {"name": {"value": "string", "confidence": float},
     "qty": {"value": int, "confidence": float},
     "price": {"value": int, "confidence": float},
     "total_price": {"value": int, "confidence": float},
     "category": {"value": "string", "confidence": float},
     "discount_type": {"value": "string" or null, "confidence": float},
     "discount_value": {"value": number or null, "confidence": float},
     "voucher_amount": {"value": number or null, "confidence": float}}
  ],
  "total_amount": {"value": int, "confidence": float}
}`

// BuildExtractionPrompt assembles the full instruction prompt around the raw
// OCR text and the pre-computed category hint fragment.
func BuildExtractionPrompt(rawText, categoryHints string, mode Mode) string {
	rules := strings.Replace(extractionRules, "{CATEGORIES}",
		strings.Join(category.Categories, ", "), 1)

	parts := []string{
		promptHeader,
		"",
		"OCR DATA:",
		rawText,
		"",
		rules,
	}

	if categoryHints != "" {
		parts = append(parts, "", strings.TrimRight(categoryHints, "\n"))
	}

	if mode == ModeScored {
		parts = append(parts, "", confidenceRubric, "", scoredFormat)
	} else {
		parts = append(parts, "", plainFormat)
	}

	parts = append(parts, "", "Only output raw JSON with no explanation.")

	return strings.Join(parts, "\n")
}
