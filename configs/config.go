// config.go - Configuration loaded from environment variables

package configs

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var (
	// Gemini AI Configuration
	GEMINI_API_KEY string
	MODEL_NAME     string

	// OCR engine configuration
	OCR_PROVIDER       string // "gemini" or "mistral"
	OCR_MODEL_NAME     string
	MISTRAL_API_KEY    string
	MISTRAL_MODEL_NAME string

	// Extraction mode: "scored" (value + confidence) or "plain" (bare values)
	EXTRACTION_MODE string

	// Server Configuration
	PORT       string
	UPLOAD_DIR string

	// Telegram Configuration
	TELEGRAM_BOT_TOKEN string

	// MongoDB Configuration
	MONGO_URI     string
	MONGO_DB_NAME string

	// Image preprocessing settings
	ENABLE_IMAGE_PREPROCESSING bool
	MAX_IMAGE_DIMENSION        int

	// Timeouts in seconds
	OCR_TIMEOUT        int
	GENERATION_TIMEOUT int

	// Number of concurrent preprocess+OCR workers
	OCR_WORKERS int

	// Confidence thresholds: default plus per-field overrides
	CONFIDENCE_DEFAULT_THRESHOLD float64
	CONFIDENCE_FIELD_THRESHOLDS  map[string]float64
)

// Fields that accept a CONFIDENCE_<FIELD>_THRESHOLD override.
var thresholdFields = []string{"merchant_name", "date", "time", "total_amount", "items"}

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Required: Gemini API Key
	GEMINI_API_KEY = getEnv("GEMINI_API_KEY", "")
	if GEMINI_API_KEY == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}

	// Optional with defaults
	MODEL_NAME = getEnv("MODEL_NAME", "gemini-2.5-flash")

	OCR_PROVIDER = getEnv("OCR_PROVIDER", "gemini")
	OCR_MODEL_NAME = getEnv("OCR_MODEL_NAME", "gemini-2.5-flash-lite")
	MISTRAL_API_KEY = getEnv("MISTRAL_API_KEY", "")
	MISTRAL_MODEL_NAME = getEnv("MISTRAL_MODEL_NAME", "mistral-ocr-latest")

	EXTRACTION_MODE = getEnv("EXTRACTION_MODE", "scored")
	if EXTRACTION_MODE != "scored" && EXTRACTION_MODE != "plain" {
		log.Fatalf("EXTRACTION_MODE must be \"scored\" or \"plain\", got %q", EXTRACTION_MODE)
	}

	PORT = getEnv("PORT", "8080")
	UPLOAD_DIR = getEnv("UPLOAD_DIR", "uploads")

	TELEGRAM_BOT_TOKEN = getEnv("TELEGRAM_BOT_TOKEN", "")

	// MongoDB Configuration
	MONGO_URI = getEnv("MONGO_URI", "mongodb://localhost:27017")
	MONGO_DB_NAME = getEnv("MONGO_DB_NAME", "strukparse")

	// Image Processing
	ENABLE_IMAGE_PREPROCESSING = getEnvBool("ENABLE_IMAGE_PREPROCESSING", true)
	MAX_IMAGE_DIMENSION = getEnvInt("MAX_IMAGE_DIMENSION", 2000)

	// Timeouts
	OCR_TIMEOUT = getEnvInt("OCR_TIMEOUT", 30)
	GENERATION_TIMEOUT = getEnvInt("GENERATION_TIMEOUT", 45)

	OCR_WORKERS = getEnvInt("OCR_WORKERS", 4)

	// Confidence thresholds
	CONFIDENCE_DEFAULT_THRESHOLD = getEnvFloat("CONFIDENCE_DEFAULT_THRESHOLD", 0.70)
	CONFIDENCE_FIELD_THRESHOLDS = map[string]float64{}
	for _, field := range thresholdFields {
		key := "CONFIDENCE_" + strings.ToUpper(field) + "_THRESHOLD"
		if value := os.Getenv(key); value != "" {
			if parsed, err := strconv.ParseFloat(value, 64); err == nil {
				CONFIDENCE_FIELD_THRESHOLDS[field] = parsed
			}
		}
	}

	log.Println("✓ Configuration loaded successfully")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
