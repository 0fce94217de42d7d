// main.go - HTTP server entry point and router setup.

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rezapratama/strukparse/configs"
	"github.com/rezapratama/strukparse/internal/ai"
	"github.com/rezapratama/strukparse/internal/api"
	"github.com/rezapratama/strukparse/internal/ocr"
	"github.com/rezapratama/strukparse/internal/pipeline"
	"github.com/rezapratama/strukparse/internal/processor"
	"github.com/rezapratama/strukparse/internal/receipt"
	"github.com/rezapratama/strukparse/internal/storage"
)

func main() {
	configs.LoadConfig()

	if ginMode := os.Getenv("GIN_MODE"); ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := storage.InitMongoDB(); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer storage.CloseMongoDB()

	ctx := context.Background()

	engine, err := ocr.NewEngine(ctx)
	if err != nil {
		log.Fatalf("Failed to create OCR engine: %v", err)
	}

	generator, err := ai.NewGeminiGenerator(ctx, configs.GEMINI_API_KEY, configs.MODEL_NAME)
	if err != nil {
		log.Fatalf("Failed to create generation client: %v", err)
	}
	defer generator.Close()

	pipe := pipeline.New(
		processor.NewPreprocessor(configs.MAX_IMAGE_DIMENSION, configs.ENABLE_IMAGE_PREPROCESSING),
		ocr.NewAdapter(engine, configs.OCR_WORKERS, time.Duration(configs.OCR_TIMEOUT)*time.Second),
		ai.NewExtractor(generator, ai.Mode(configs.EXTRACTION_MODE), time.Duration(configs.GENERATION_TIMEOUT)*time.Second),
		receipt.NewThresholds(configs.CONFIDENCE_DEFAULT_THRESHOLD, configs.CONFIDENCE_FIELD_THRESHOLDS),
	)

	handler := api.NewHandler(pipe, true)

	router := gin.Default()

	router.GET("/", func(c *gin.Context) {
		c.String(200, "ok")
	})
	router.GET("/health", api.Health)
	router.POST("/api/v1/analyze-receipt", handler.AnalyzeReceipt)

	srv := &http.Server{
		Addr:           ":" + configs.PORT,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   3 * time.Minute, // Allow the full OCR + extraction round trip
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("Starting server on :%s", configs.PORT)
		log.Println("API Endpoints:")
		log.Println("  POST /api/v1/analyze-receipt")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
