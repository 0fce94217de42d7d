// keywords.go - Keyword-based category detection for prompt hinting
//
// This is a heuristic relevance filter, not a classifier. Its only job is to
// keep the extraction prompt short and on-topic; the generation model makes
// the final category call.

package category

import "strings"

// Categories is the fixed enumerated set the extractor may assign.
var Categories = []string{
	"Food & Beverage",
	"Shopping",
	"Transport",
	"Bills",
	"Health",
	"Entertainment",
	"Electronics",
	"Others",
}

// DefaultCategory is included whenever nothing else is detected; groceries
// and minimarket receipts dominate the input mix.
const DefaultCategory = "Food & Beverage"

// keywordTable maps category → keywords whose presence (as a case-insensitive
// substring) marks the category as relevant. Read-only after process start.
var keywordTable = map[string][]string{
	"Food & Beverage": {
		"indomie", "nasi", "ayam", "mie ", "kopi", "teh ", "susu", "roti",
		"burger", "pizza", "sate", "bakso", "gorengan", "snack", "minum",
		"resto", "cafe", "kfc", "mcd", "coffee", "juice", "es ",
	},
	"Shopping": {
		"shampoo", "sabun", "pasta gigi", "deterjen", "tissue", "baju",
		"celana", "sepatu", "tas ", "kaos", "detergent", "lotion", "parfum",
	},
	"Transport": {
		"grab", "gojek", "bensin", "pertamax", "pertalite", "solar", "parkir",
		"tol ", "busway", "kereta", "taxi", "ojek", "spbu",
	},
	"Bills": {
		"pulsa", "token", "listrik", "pln", "pdam", "wifi", "internet",
		"telkom", "indihome", "bpjs", "tagihan",
	},
	"Health": {
		"apotek", "obat", "panadol", "paracetamol", "vitamin", "klinik",
		"masker", "betadine", "pharmacy",
	},
	"Entertainment": {
		"tiket", "cinema", "bioskop", "xxi", "cgv", "karaoke", "game",
		"wahana", "konser",
	},
	"Electronics": {
		"kabel", "charger", "baterai", "headset", "mouse", "keyboard",
		"laptop", "powerbank", "adaptor", "usb",
	},
}

// hintExamples holds the canned few-shot lines emitted per detected category.
var hintExamples = map[string][]string{
	"Food & Beverage": {
		`"INDOMIE GORENG" → "Food & Beverage"`,
		`"ES TEH MANIS" → "Food & Beverage"`,
		`"AYAM GEPREK" → "Food & Beverage"`,
	},
	"Shopping": {
		`"CLEAR SHAMPOO 170ML" → "Shopping"`,
		`"SABUN LIFEBUOY" → "Shopping"`,
	},
	"Transport": {
		`"PERTAMAX 92 10L" → "Transport"`,
		`"GRAB TRIP 12KM" → "Transport"`,
	},
	"Bills": {
		`"TOKEN PLN 20RB" → "Bills"`,
		`"PULSA TELKOMSEL 50K" → "Bills"`,
	},
	"Health": {
		`"PANADOL EXTRA 10 KAPLET" → "Health"`,
		`"VITAMIN C IPI" → "Health"`,
	},
	"Entertainment": {
		`"TIKET XXI STUDIO 2" → "Entertainment"`,
	},
	"Electronics": {
		`"KABEL DATA TYPE-C" → "Electronics"`,
		`"CHARGER 33W" → "Electronics"`,
	},
}

// genericFallback is emitted when not even the default block applies.
const genericFallback = `"ITEM" → "Others"`

// Detect returns the categories whose keyword set matches the raw text, in
// the fixed priority order of Categories.
func Detect(rawText string) []string {
	lower := strings.ToLower(rawText)

	var detected []string
	for _, cat := range Categories {
		for _, kw := range keywordTable[cat] {
			if strings.Contains(lower, kw) {
				detected = append(detected, cat)
				break
			}
		}
	}
	return detected
}

// HintExamples scans the raw text and returns a prompt fragment with labeled
// classification examples for the detected categories only. When nothing is
// detected the Food & Beverage block is used as the fallback domain.
func HintExamples(rawText string) string {
	detected := Detect(rawText)
	if len(detected) == 0 {
		detected = []string{DefaultCategory}
	}

	var sb strings.Builder
	sb.WriteString("Category examples:\n")
	wrote := false
	for _, cat := range detected {
		for _, example := range hintExamples[cat] {
			sb.WriteString(example)
			sb.WriteString("\n")
			wrote = true
		}
	}
	if !wrote {
		sb.WriteString(genericFallback)
		sb.WriteString("\n")
	}
	return sb.String()
}
