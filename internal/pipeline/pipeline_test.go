package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rezapratama/strukparse/internal/ai"
	"github.com/rezapratama/strukparse/internal/common"
	"github.com/rezapratama/strukparse/internal/ocr"
	"github.com/rezapratama/strukparse/internal/receipt"
)

func TestPipeline(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pipeline Suite")
}

type fakePreprocessor struct {
	img *image.Gray
}

func (f *fakePreprocessor) Preprocess(data []byte) *image.Gray {
	return f.img
}

type fakeEngine struct {
	lines []string
	err   error
}

func (f *fakeEngine) Recognize(ctx context.Context, imageData []byte, mimeType string) ([]ocr.Span, error) {
	if f.err != nil {
		return nil, f.err
	}
	spans := make([]ocr.Span, 0, len(f.lines))
	for _, line := range f.lines {
		spans = append(spans, ocr.Span{Text: line})
	}
	return spans, nil
}

func (f *fakeEngine) Name() string { return "fake" }

type fakeGenerator struct {
	response string
	err      error
}

func (f *fakeGenerator) GenerateJSON(ctx context.Context, prompt string) (string, *common.TokenUsage, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.response, &common.TokenUsage{InputTokens: 100, OutputTokens: 50, TotalTokens: 150}, nil
}

func (f *fakeGenerator) Close() error { return nil }

func whiteImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

const extractionJSON = `{
	"merchant_name": {"value": "ALFAMART", "confidence": 0.95},
	"date": {"value": "2026-01-02", "confidence": 0.92},
	"time": {"value": "18:23", "confidence": 0.9},
	"items": [
		{"name": {"value": "INDOMIE GORENG", "confidence": 0.97},
		 "qty": {"value": 4, "confidence": 0.99},
		 "price": {"value": 3500, "confidence": 0.95},
		 "total_price": {"value": 14000, "confidence": 0.95},
		 "category": {"value": "Food & Beverage", "confidence": 0.9}}
	],
	"total_amount": {"value": 14000, "confidence": 0.96}
}`

var _ = Describe("Pipeline", func() {
	var (
		pre    *fakePreprocessor
		engine *fakeEngine
		gen    *fakeGenerator
		pipe   *Pipeline
		reqCtx *common.RequestContext

		record  *receipt.Record
		procErr error
	)

	BeforeEach(func() {
		pre = &fakePreprocessor{img: whiteImage()}
		engine = &fakeEngine{lines: []string{
			"ALFAMART KARANG TENGAH",
			"INDOMIE GORENG 4 x 3.500",
			"TOTAL 14.000",
		}}
		gen = &fakeGenerator{response: extractionJSON}
		reqCtx = common.NewRequestContext("test")
	})

	JustBeforeEach(func() {
		pipe = New(
			pre,
			ocr.NewAdapter(engine, 2, time.Second),
			ai.NewExtractor(gen, ai.ModeScored, 0),
			receipt.NewThresholds(0.70, nil),
		)
		record, procErr = pipe.Process(context.Background(), []byte("image bytes"), reqCtx)
	})

	When("every stage succeeds", func() {
		It("should return a VERIFIED record", func() {
			Expect(procErr).NotTo(HaveOccurred())
			Expect(record.Status).To(Equal(receipt.StatusVerified))
			Expect(record.MerchantName).To(Equal("ALFAMART"))
			Expect(record.TotalAmount).To(Equal(int64(14000)))
			Expect(record.ReceiptID).NotTo(BeEmpty())
		})

		It("should accumulate token usage on the request context", func() {
			Expect(procErr).NotTo(HaveOccurred())
			Expect(reqCtx.TotalTokens.TotalTokens).To(Equal(150))
		})
	})

	When("a scored field is below its threshold", func() {
		BeforeEach(func() {
			gen.response = `{
				"merchant_name": {"value": "ALF4M4RT", "confidence": 0.40},
				"date": {"value": "2026-01-02", "confidence": 0.92},
				"time": {"value": null, "confidence": 0.9},
				"items": [],
				"total_amount": {"value": 14000, "confidence": 0.96}
			}`
		})

		It("should return an ACTION_REQUIRED record with the flagged field", func() {
			Expect(procErr).NotTo(HaveOccurred())
			Expect(record.Status).To(Equal(receipt.StatusActionRequired))
			Expect(record.LowConfidenceFields).To(HaveLen(1))
			Expect(record.LowConfidenceFields[0].Field).To(Equal("merchant_name"))
		})
	})

	When("the image does not decode", func() {
		BeforeEach(func() {
			pre.img = nil
		})

		It("should fail at the gate with the empty reason", func() {
			Expect(record).To(BeNil())
			var pipeErr *Error
			Expect(errors.As(procErr, &pipeErr)).To(BeTrue())
			Expect(pipeErr.Kind).To(Equal(FailureOCR))
			Expect(pipeErr.Reason).To(Equal(ocr.ReasonEmpty))
		})
	})

	When("the OCR engine fails", func() {
		BeforeEach(func() {
			engine.err = errors.New("engine exploded")
		})

		It("should return an OCR failure", func() {
			var pipeErr *Error
			Expect(errors.As(procErr, &pipeErr)).To(BeTrue())
			Expect(pipeErr.Kind).To(Equal(FailureOCR))
			Expect(pipeErr.Err).To(MatchError(ContainSubstring("engine exploded")))
		})
	})

	When("the OCR text is not plausibly a receipt", func() {
		BeforeEach(func() {
			engine.lines = []string{"hello there friend"}
		})

		It("should reject with the gate reason", func() {
			var pipeErr *Error
			Expect(errors.As(procErr, &pipeErr)).To(BeTrue())
			Expect(pipeErr.Kind).To(Equal(FailureOCR))
			Expect(pipeErr.Reason).To(Equal(ocr.ReasonTooFewLines))
		})
	})

	When("the generation backend is down", func() {
		BeforeEach(func() {
			gen.err = errors.New("connection refused")
		})

		It("should return an extraction failure with a receipt ID", func() {
			var pipeErr *Error
			Expect(errors.As(procErr, &pipeErr)).To(BeTrue())
			Expect(pipeErr.Kind).To(Equal(FailureExtraction))
			Expect(pipeErr.ReceiptID).NotTo(BeEmpty())
		})
	})

	When("the model returns garbage", func() {
		BeforeEach(func() {
			gen.response = "sorry, I cannot help with that"
		})

		It("should return a parse failure with a receipt ID", func() {
			var pipeErr *Error
			Expect(errors.As(procErr, &pipeErr)).To(BeTrue())
			Expect(pipeErr.Kind).To(Equal(FailureParse))
			Expect(pipeErr.ReceiptID).NotTo(BeEmpty())
		})
	})
})
