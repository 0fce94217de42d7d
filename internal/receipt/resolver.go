// resolver.go - Confidence-based review status determination

package receipt

import "fmt"

// Thresholds maps field names to the confidence level at or below which the
// field is flagged for review. "items" acts as the shared threshold for all
// item sub-fields. Read-only after construction.
type Thresholds struct {
	Default float64
	Fields  map[string]float64
}

// DefaultThreshold is used when neither a field override nor a configured
// default is present.
const DefaultThreshold = 0.70

// NewThresholds builds a threshold table from a default plus per-field
// overrides (nil is fine).
func NewThresholds(def float64, overrides map[string]float64) Thresholds {
	if def <= 0 || def > 1 {
		def = DefaultThreshold
	}
	fields := make(map[string]float64, len(overrides))
	for k, v := range overrides {
		fields[k] = v
	}
	return Thresholds{Default: def, Fields: fields}
}

// For returns the threshold for a header field.
func (t Thresholds) For(field string) float64 {
	if v, ok := t.Fields[field]; ok {
		return v
	}
	return t.Default
}

// ForItems returns the threshold shared by item sub-fields.
func (t Thresholds) ForItems() float64 {
	if v, ok := t.Fields["items"]; ok {
		return v
	}
	return t.Default
}

// Resolution is the outcome of status determination.
type Resolution struct {
	Status              Status
	LowConfidenceFields []LowConfidenceField
	RequiresReview      bool
}

// ResolveStatus compares every scored field against its threshold. The
// comparison is inclusive: a confidence exactly at the threshold counts as
// low, not passing. Fields parsed in plain mode carry no confidence and are
// skipped. Status is VERIFIED iff nothing is flagged.
func ResolveStatus(ex *Extraction, thresholds Thresholds) Resolution {
	var flagged []LowConfidenceField

	check := func(path string, f Field, threshold float64) {
		if f.Scored && f.Confidence <= threshold {
			flagged = append(flagged, LowConfidenceField{
				Field:      path,
				Confidence: f.Confidence,
				Value:      f.Value,
			})
		}
	}

	check("merchant_name", ex.MerchantName, thresholds.For("merchant_name"))
	check("date", ex.Date, thresholds.For("date"))
	check("time", ex.Time, thresholds.For("time"))
	check("total_amount", ex.TotalAmount, thresholds.For("total_amount"))

	itemThreshold := thresholds.ForItems()
	for i, item := range ex.Items {
		check(fmt.Sprintf("items[%d].name", i), item.Name, itemThreshold)
		check(fmt.Sprintf("items[%d].price", i), item.Price, itemThreshold)
		check(fmt.Sprintf("items[%d].qty", i), item.Qty, itemThreshold)
	}

	status := StatusVerified
	if len(flagged) > 0 {
		status = StatusActionRequired
	}

	return Resolution{
		Status:              status,
		LowConfidenceFields: flagged,
		RequiresReview:      len(flagged) > 0,
	}
}
