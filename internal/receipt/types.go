// types.go - Canonical receipt record and the extraction field union

package receipt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the terminal review state of a processed receipt.
type Status string

const (
	StatusVerified       Status = "VERIFIED"
	StatusActionRequired Status = "ACTION_REQUIRED"
	StatusFailed         Status = "FAILED"
)

// Field is the tagged union over the two extraction shapes: a bare value
// ("plain" mode) or a {value, confidence} pair ("scored" mode). The shape is
// chosen once per pipeline configuration, never mixed within one record.
type Field struct {
	Value      any
	Confidence float64 // meaningful only when Scored
	Scored     bool
}

// UnmarshalJSON accepts both shapes. An object carrying a "confidence" key is
// the scored form; anything else is taken as a bare value.
func (f *Field) UnmarshalJSON(data []byte) error {
	var scored struct {
		Value      any      `json:"value"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal(data, &scored); err == nil && scored.Confidence != nil {
		f.Value = scored.Value
		f.Confidence = *scored.Confidence
		f.Scored = true
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Value = raw
	f.Confidence = 0
	f.Scored = false
	return nil
}

// IsNull reports whether the model emitted null (or nothing) for this field.
func (f Field) IsNull() bool {
	if f.Value == nil {
		return true
	}
	if s, ok := f.Value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// String returns the flattened string value, "" for null.
func (f Field) String() string {
	if f.Value == nil {
		return ""
	}
	if s, ok := f.Value.(string); ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprintf("%v", f.Value)
}

// Int returns the flattened integer value. JSON numbers arrive as float64;
// strings are parsed leniently, stripping thousands separators the model
// occasionally leaves in ("28.000", "28,000").
func (f Field) Int() int64 {
	switch v := f.Value.(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case string:
		cleaned := strings.NewReplacer(".", "", ",", "", " ", "").Replace(strings.TrimSpace(v))
		if n, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// Float returns the flattened numeric value, 0 when absent.
func (f Field) Float() float64 {
	switch v := f.Value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return n
		}
	}
	return 0
}

// ItemExtraction is one line item as returned by the extraction model.
type ItemExtraction struct {
	Name          Field `json:"name"`
	Qty           Field `json:"qty"`
	Price         Field `json:"price"`
	TotalPrice    Field `json:"total_price"`
	Category      Field `json:"category"`
	DiscountType  Field `json:"discount_type"`
	DiscountValue Field `json:"discount_value"`
	VoucherAmount Field `json:"voucher_amount"`
}

// Extraction is the parsed model output before flattening. ReceiptID is
// injected by the extractor, never trusted from model output.
type Extraction struct {
	ReceiptID    string           `json:"receipt_id"`
	MerchantName Field            `json:"merchant_name"`
	Date         Field            `json:"date"`
	Time         Field            `json:"time"`
	Items        []ItemExtraction `json:"items"`
	TotalAmount  Field            `json:"total_amount"`
}

// Item is a flattened line item. Prices are in the minor currency unit.
type Item struct {
	Name          string   `json:"name" bson:"name"`
	Qty           int      `json:"qty" bson:"qty"`
	Price         int64    `json:"price" bson:"price"`
	TotalPrice    int64    `json:"total_price" bson:"total_price"`
	Category      string   `json:"category" bson:"category"`
	DiscountType  *string  `json:"discount_type,omitempty" bson:"discount_type,omitempty"`
	DiscountValue *float64 `json:"discount_value,omitempty" bson:"discount_value,omitempty"`
	VoucherAmount *float64 `json:"voucher_amount,omitempty" bson:"voucher_amount,omitempty"`
}

// LowConfidenceField addresses one flagged field for downstream review
// tooling. Item sub-fields use the indexed path notation items[<i>].<field>.
type LowConfidenceField struct {
	Field      string  `json:"field" bson:"field"`
	Confidence float64 `json:"confidence" bson:"confidence"`
	Value      any     `json:"value" bson:"value"`
}

// Record is the canonical receipt record handed to the delivery/storage
// collaborator. It is terminal: this pipeline never mutates it afterwards.
type Record struct {
	ReceiptID           string               `json:"receipt_id" bson:"receipt_id"`
	MerchantName        string               `json:"merchant_name" bson:"merchant_name"`
	Date                *string              `json:"date" bson:"date"`
	Time                *string              `json:"time" bson:"time"`
	Items               []Item               `json:"items" bson:"items"`
	TotalAmount         int64                `json:"total_amount" bson:"total_amount"`
	Status              Status               `json:"status" bson:"status"`
	LowConfidenceFields []LowConfidenceField `json:"low_confidence_fields" bson:"low_confidence_fields"`
	CreatedAt           time.Time            `json:"created_at" bson:"created_at"`
}
