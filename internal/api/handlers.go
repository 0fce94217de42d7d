// handlers.go - HTTP handlers for receipt analysis

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rezapratama/strukparse/internal/common"
	"github.com/rezapratama/strukparse/internal/pipeline"
	"github.com/rezapratama/strukparse/internal/storage"
)

// Max accepted upload size. Phone photos stay well under this.
const maxUploadBytes = 10 << 20

// Handler exposes the receipt pipeline over HTTP.
type Handler struct {
	pipe    *pipeline.Pipeline
	persist bool
}

// NewHandler creates a handler. persist controls whether successful records
// are written to MongoDB.
func NewHandler(pipe *pipeline.Pipeline, persist bool) *Handler {
	return &Handler{pipe: pipe, persist: persist}
}

// AnalyzeReceipt handles POST /api/v1/analyze-receipt. It expects a multipart
// form with an "image" file and returns the processed record.
func (h *Handler) AnalyzeReceipt(c *gin.Context) {
	reqCtx := common.NewRequestContext("api")

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":     "FAILED",
			"error":      "missing 'image' form file",
			"request_id": reqCtx.RequestID,
		})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"status":     "FAILED",
			"error":      "image exceeds 10MB limit",
			"request_id": reqCtx.RequestID,
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":     "FAILED",
			"error":      "could not open uploaded file",
			"request_id": reqCtx.RequestID,
		})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":     "FAILED",
			"error":      "could not read uploaded file",
			"request_id": reqCtx.RequestID,
		})
		return
	}

	record, err := h.pipe.Process(c.Request.Context(), imageData, reqCtx)
	if err != nil {
		h.writeFailure(c, reqCtx, err)
		return
	}

	if h.persist {
		if err := storage.SaveRecord(record); err != nil {
			reqCtx.LogError("persisting record %s: %v", record.ReceiptID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"receipt":    record,
		"request_id": reqCtx.RequestID,
		"summary":    reqCtx.Summary(),
	})
}

// writeFailure maps pipeline failures to HTTP responses. Gate rejections and
// unreadable images are client problems (422); backend trouble is 502.
func (h *Handler) writeFailure(c *gin.Context, reqCtx *common.RequestContext, err error) {
	var pipeErr *pipeline.Error
	if !errors.As(err, &pipeErr) {
		reqCtx.LogError("unexpected pipeline failure: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":     "FAILED",
			"error":      "internal error",
			"request_id": reqCtx.RequestID,
		})
		return
	}

	httpStatus := http.StatusBadGateway
	if pipeErr.Kind == pipeline.FailureOCR {
		httpStatus = http.StatusUnprocessableEntity
	}

	resp := gin.H{
		"status":     "FAILED",
		"error_type": pipeErr.Kind,
		"reason":     pipeErr.Reason,
		"request_id": reqCtx.RequestID,
	}
	if pipeErr.ReceiptID != "" {
		resp["receipt_id"] = pipeErr.ReceiptID
	}

	c.JSON(httpStatus, resp)
}

// Health handles GET /health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "strukparse",
		"version": "1.0.0",
	})
}
