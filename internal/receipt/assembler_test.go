package receipt

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Assemble", func() {
	var (
		ex     *Extraction
		res    Resolution
		record *Record
	)

	BeforeEach(func() {
		ex = &Extraction{
			ReceiptID:    "r-42",
			MerchantName: scored("ALFAMART", 0.95),
			Date:         scored("2026-01-02", 0.92),
			Time:         scored("18:23", 0.90),
			Items: []ItemExtraction{
				{
					Name:       scored("INDOMIE GORENG", 0.97),
					Qty:        scored(float64(4), 0.99),
					Price:      scored(float64(3500), 0.95),
					TotalPrice: scored(float64(14000), 0.95),
					Category:   scored("Food & Beverage", 0.90),
				},
				{
					Name:       scored("TEH BOTOL", 0.96),
					Qty:        scored(float64(2), 0.99),
					Price:      scored(float64(5000), 0.95),
					TotalPrice: scored(float64(10000), 0.95),
					Category:   scored("Food & Beverage", 0.90),
				},
			},
			TotalAmount: scored(float64(24000), 0.96),
		}
		res = Resolution{Status: StatusVerified}
	})

	JustBeforeEach(func() {
		record = Assemble(ex, res)
	})

	It("should carry the receipt ID through", func() {
		Expect(record.ReceiptID).To(Equal("r-42"))
	})

	It("should flatten header fields", func() {
		Expect(record.MerchantName).To(Equal("ALFAMART"))
		Expect(*record.Date).To(Equal("2026-01-02"))
		Expect(*record.Time).To(Equal("18:23"))
		Expect(record.TotalAmount).To(Equal(int64(24000)))
	})

	It("should flatten items with integer amounts", func() {
		Expect(record.Items).To(HaveLen(2))
		Expect(record.Items[0].Name).To(Equal("INDOMIE GORENG"))
		Expect(record.Items[0].Qty).To(Equal(4))
		Expect(record.Items[0].Price).To(Equal(int64(3500)))
		Expect(record.Items[0].TotalPrice).To(Equal(int64(14000)))
	})

	It("should keep VERIFIED when item totals reconcile", func() {
		Expect(record.Status).To(Equal(StatusVerified))
		Expect(record.LowConfidenceFields).To(BeEmpty())
	})

	It("should set the creation timestamp", func() {
		Expect(record.CreatedAt).NotTo(BeZero())
	})

	When("date and time are null", func() {
		BeforeEach(func() {
			ex.Date = scored(nil, 0.95)
			ex.Time = scored(nil, 0.95)
		})

		It("should leave them nil instead of empty strings", func() {
			Expect(record.Date).To(BeNil())
			Expect(record.Time).To(BeNil())
		})
	})

	When("the header total disagrees with the item sum", func() {
		BeforeEach(func() {
			// Tendered cash picked up instead of the purchase total.
			ex.TotalAmount = scored(float64(50000), 0.96)
		})

		It("should keep the extracted total untouched", func() {
			Expect(record.TotalAmount).To(Equal(int64(50000)))
		})

		It("should flag total_amount and force ACTION_REQUIRED", func() {
			Expect(record.Status).To(Equal(StatusActionRequired))
			Expect(record.LowConfidenceFields).To(HaveLen(1))
			Expect(record.LowConfidenceFields[0].Field).To(Equal("total_amount"))
			Expect(record.LowConfidenceFields[0].Value).To(Equal(int64(50000)))
		})
	})

	When("there are no items", func() {
		BeforeEach(func() {
			ex.Items = nil
		})

		It("should not treat the zero item sum as a mismatch", func() {
			Expect(record.Status).To(Equal(StatusVerified))
			Expect(record.LowConfidenceFields).To(BeEmpty())
		})
	})

	When("an item carries a discount", func() {
		BeforeEach(func() {
			ex.Items[0].DiscountType = scored("percent", 0.9)
			ex.Items[0].DiscountValue = scored(float64(10), 0.9)
			ex.Items[0].TotalPrice = scored(float64(12600), 0.95)
			ex.TotalAmount = scored(float64(22600), 0.96)
		})

		It("should flatten the discount fields", func() {
			Expect(record.Items[0].DiscountType).NotTo(BeNil())
			Expect(*record.Items[0].DiscountType).To(Equal("percent"))
			Expect(*record.Items[0].DiscountValue).To(Equal(10.0))
			Expect(record.Items[0].VoucherAmount).To(BeNil())
		})
	})
})

var _ = Describe("field shape equivalence", func() {
	const scoredJSON = `{
		"merchant_name": {"value": "ALFAMART", "confidence": 0.95},
		"date": {"value": "2026-01-02", "confidence": 0.92},
		"time": {"value": null, "confidence": 0.5},
		"items": [
			{"name": {"value": "INDOMIE GORENG", "confidence": 0.97},
			 "qty": {"value": 4, "confidence": 0.99},
			 "price": {"value": 3500, "confidence": 0.95},
			 "total_price": {"value": 14000, "confidence": 0.95},
			 "category": {"value": "Food & Beverage", "confidence": 0.9},
			 "discount_type": {"value": null, "confidence": 1},
			 "discount_value": {"value": null, "confidence": 1},
			 "voucher_amount": {"value": null, "confidence": 1}}
		],
		"total_amount": {"value": 14000, "confidence": 0.96}
	}`

	const plainJSON = `{
		"merchant_name": "ALFAMART",
		"date": "2026-01-02",
		"time": null,
		"items": [
			{"name": "INDOMIE GORENG", "qty": 4, "price": 3500,
			 "total_price": 14000, "category": "Food & Beverage",
			 "discount_type": null, "discount_value": null, "voucher_amount": null}
		],
		"total_amount": 14000
	}`

	It("should assemble identical records from both shapes", func() {
		var scoredEx, plainEx Extraction
		Expect(json.Unmarshal([]byte(scoredJSON), &scoredEx)).To(Succeed())
		Expect(json.Unmarshal([]byte(plainJSON), &plainEx)).To(Succeed())
		scoredEx.ReceiptID = "r-1"
		plainEx.ReceiptID = "r-1"

		a := Assemble(&scoredEx, Resolution{Status: StatusVerified})
		b := Assemble(&plainEx, Resolution{Status: StatusVerified})

		// CreatedAt differs between the two calls.
		b.CreatedAt = a.CreatedAt
		Expect(b).To(Equal(a))
	})
})
