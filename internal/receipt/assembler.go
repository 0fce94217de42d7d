// assembler.go - Flattens an extraction into the canonical record

package receipt

import (
	"time"
)

// Assemble normalizes an extraction (either field shape) plus its resolution
// into the final Record, reconciling item totals against the header total.
//
// A mismatch between total_amount and the sum of item totals is surfaced as
// a flagged total_amount field and forces ACTION_REQUIRED; the extracted
// header value is kept as-is, never silently corrected. Receipts frequently
// show "amount tendered" or "change" lines near the total, so a disagreement
// here is a review signal, not something to paper over.
func Assemble(ex *Extraction, res Resolution) *Record {
	items := make([]Item, 0, len(ex.Items))
	var itemSum int64
	for _, it := range ex.Items {
		item := Item{
			Name:       it.Name.String(),
			Qty:        int(it.Qty.Int()),
			Price:      it.Price.Int(),
			TotalPrice: it.TotalPrice.Int(),
			Category:   it.Category.String(),
		}
		if !it.DiscountType.IsNull() {
			s := it.DiscountType.String()
			item.DiscountType = &s
		}
		if !it.DiscountValue.IsNull() {
			v := it.DiscountValue.Float()
			item.DiscountValue = &v
		}
		if !it.VoucherAmount.IsNull() {
			v := it.VoucherAmount.Float()
			item.VoucherAmount = &v
		}
		itemSum += item.TotalPrice
		items = append(items, item)
	}

	record := &Record{
		ReceiptID:           ex.ReceiptID,
		MerchantName:        ex.MerchantName.String(),
		Date:                optionalString(ex.Date),
		Time:                optionalString(ex.Time),
		Items:               items,
		TotalAmount:         ex.TotalAmount.Int(),
		Status:              res.Status,
		LowConfidenceFields: res.LowConfidenceFields,
		CreatedAt:           time.Now().UTC(),
	}

	if len(items) > 0 && itemSum != record.TotalAmount {
		record.LowConfidenceFields = append(record.LowConfidenceFields, LowConfidenceField{
			Field:      "total_amount",
			Confidence: ex.TotalAmount.Confidence,
			Value:      record.TotalAmount,
		})
		record.Status = StatusActionRequired
	}

	return record
}

func optionalString(f Field) *string {
	if f.IsNull() {
		return nil
	}
	s := f.String()
	return &s
}
