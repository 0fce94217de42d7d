package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rezapratama/strukparse/internal/ai"
	"github.com/rezapratama/strukparse/internal/common"
	"github.com/rezapratama/strukparse/internal/ocr"
	"github.com/rezapratama/strukparse/internal/pipeline"
	"github.com/rezapratama/strukparse/internal/receipt"
)

func TestAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "API Suite")
}

type fakePreprocessor struct{ img *image.Gray }

func (f *fakePreprocessor) Preprocess(data []byte) *image.Gray { return f.img }

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
	return f.response, nil, f.err
}

func (f *fakeGenerator) Close() error { return nil }

const extractionJSON = `{
	"merchant_name": {"value": "ALFAMART", "confidence": 0.95},
	"date": {"value": "2026-01-02", "confidence": 0.92},
	"time": {"value": "18:23", "confidence": 0.9},
	"items": [],
	"total_amount": {"value": 14000, "confidence": 0.96}
}`

var _ = Describe("AnalyzeReceipt", func() {
	var (
		engine *fakeEngine
		gen    *fakeGenerator
		router *gin.Engine

		resp *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)

		img := image.NewGray(image.Rect(0, 0, 8, 8))
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}

		engine = &fakeEngine{lines: []string{
			"ALFAMART KARANG TENGAH",
			"TOTAL 14.000",
		}}
		gen = &fakeGenerator{response: extractionJSON}

		pipe := pipeline.New(
			&fakePreprocessor{img: img},
			ocr.NewAdapter(engine, 2, time.Second),
			ai.NewExtractor(gen, ai.ModeScored, 0),
			receipt.NewThresholds(0.70, nil),
		)

		handler := NewHandler(pipe, false)
		router = gin.New()
		router.POST("/api/v1/analyze-receipt", handler.AnalyzeReceipt)
	})

	upload := func(field string, content []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		part, err := writer.CreateFormFile(field, "receipt.jpg")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(content)
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze-receipt", &body)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	When("a valid photo is uploaded", func() {
		JustBeforeEach(func() {
			resp = upload("image", []byte("fake image bytes"))
		})

		It("should return the processed record", func() {
			Expect(resp.Code).To(Equal(http.StatusOK))

			var body map[string]any
			Expect(json.Unmarshal(resp.Body.Bytes(), &body)).To(Succeed())
			Expect(body["status"]).To(Equal("success"))

			rec := body["receipt"].(map[string]any)
			Expect(rec["merchant_name"]).To(Equal("ALFAMART"))
			Expect(rec["status"]).To(Equal("VERIFIED"))
			Expect(rec["receipt_id"]).NotTo(BeEmpty())
		})
	})

	When("the form file is missing", func() {
		JustBeforeEach(func() {
			resp = upload("wrong_field", []byte("bytes"))
		})

		It("should return 400", func() {
			Expect(resp.Code).To(Equal(http.StatusBadRequest))
		})
	})

	When("the OCR text fails the plausibility gate", func() {
		BeforeEach(func() {
			engine.lines = []string{"just one line"}
		})

		JustBeforeEach(func() {
			resp = upload("image", []byte("bytes"))
		})

		It("should return 422 with the failure taxonomy", func() {
			Expect(resp.Code).To(Equal(http.StatusUnprocessableEntity))

			var body map[string]any
			Expect(json.Unmarshal(resp.Body.Bytes(), &body)).To(Succeed())
			Expect(body["status"]).To(Equal("FAILED"))
			Expect(body["error_type"]).To(Equal("OCR_FAILED"))
			Expect(body["reason"]).To(Equal(ocr.ReasonTooFewLines))
		})
	})

	When("the generation backend is down", func() {
		BeforeEach(func() {
			gen.err = errors.New("connection refused")
		})

		JustBeforeEach(func() {
			resp = upload("image", []byte("bytes"))
		})

		It("should return 502 with a receipt ID", func() {
			Expect(resp.Code).To(Equal(http.StatusBadGateway))

			var body map[string]any
			Expect(json.Unmarshal(resp.Body.Bytes(), &body)).To(Succeed())
			Expect(body["error_type"]).To(Equal("EXTRACTION_FAILED"))
			Expect(body["receipt_id"]).NotTo(BeEmpty())
		})
	})
})
