package receipt

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Field", func() {
	Describe("UnmarshalJSON", func() {
		It("should read the scored shape", func() {
			var f Field
			Expect(json.Unmarshal([]byte(`{"value": "ALFAMART", "confidence": 0.95}`), &f)).To(Succeed())
			Expect(f.Scored).To(BeTrue())
			Expect(f.Confidence).To(Equal(0.95))
			Expect(f.String()).To(Equal("ALFAMART"))
		})

		It("should read a bare string", func() {
			var f Field
			Expect(json.Unmarshal([]byte(`"ALFAMART"`), &f)).To(Succeed())
			Expect(f.Scored).To(BeFalse())
			Expect(f.String()).To(Equal("ALFAMART"))
		})

		It("should read a bare number", func() {
			var f Field
			Expect(json.Unmarshal([]byte(`14000`), &f)).To(Succeed())
			Expect(f.Scored).To(BeFalse())
			Expect(f.Int()).To(Equal(int64(14000)))
		})

		It("should treat an object without confidence as a bare value", func() {
			var f Field
			Expect(json.Unmarshal([]byte(`{"value": 5}`), &f)).To(Succeed())
			Expect(f.Scored).To(BeFalse())
		})

		It("should read null", func() {
			var f Field
			Expect(json.Unmarshal([]byte(`null`), &f)).To(Succeed())
			Expect(f.IsNull()).To(BeTrue())
		})
	})

	Describe("Int", func() {
		It("should strip thousands separators from string amounts", func() {
			Expect(Field{Value: "28.000"}.Int()).To(Equal(int64(28000)))
			Expect(Field{Value: "28,000"}.Int()).To(Equal(int64(28000)))
			Expect(Field{Value: " 28 000 "}.Int()).To(Equal(int64(28000)))
		})

		It("should truncate float values", func() {
			Expect(Field{Value: float64(3500)}.Int()).To(Equal(int64(3500)))
		})

		It("should return zero for unparseable values", func() {
			Expect(Field{Value: "abc"}.Int()).To(Equal(int64(0)))
			Expect(Field{Value: nil}.Int()).To(Equal(int64(0)))
		})
	})

	Describe("IsNull", func() {
		It("should treat blank strings as null", func() {
			Expect(Field{Value: "  "}.IsNull()).To(BeTrue())
		})

		It("should not treat zero as null", func() {
			Expect(Field{Value: float64(0)}.IsNull()).To(BeFalse())
		})
	})
})
