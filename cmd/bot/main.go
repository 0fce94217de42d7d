// main.go - Telegram bot entry point: long polling, photo download, pipeline.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rezapratama/strukparse/configs"
	"github.com/rezapratama/strukparse/internal/ai"
	"github.com/rezapratama/strukparse/internal/common"
	"github.com/rezapratama/strukparse/internal/delivery"
	"github.com/rezapratama/strukparse/internal/ocr"
	"github.com/rezapratama/strukparse/internal/pipeline"
	"github.com/rezapratama/strukparse/internal/processor"
	"github.com/rezapratama/strukparse/internal/receipt"
	"github.com/rezapratama/strukparse/internal/storage"
)

const welcomeMessage = `Halo! Kirim foto struk belanja dan saya akan membaca isinya:
merchant, tanggal, daftar item, dan total.`

func main() {
	configs.LoadConfig()

	if configs.TELEGRAM_BOT_TOKEN == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable is required")
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

	bot, err := tgbotapi.NewBotAPI(configs.TELEGRAM_BOT_TOKEN)
	if err != nil {
		log.Fatalf("Failed to create Telegram bot: %v", err)
	}
	log.Printf("Authorized on account %s", bot.Self.UserName)

	deliverer := delivery.NewDeliverer(bot)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := bot.GetUpdatesChan(updateConfig)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			msg := update.Message

			switch {
			case msg.IsCommand():
				handleCommand(bot, msg)
			case len(msg.Photo) > 0:
				// Concurrency is capped downstream by the OCR worker pool.
				go handlePhoto(ctx, bot, pipe, deliverer, msg)
			default:
				reply := tgbotapi.NewMessage(msg.Chat.ID, "Kirim foto struk untuk diproses.")
				bot.Send(reply)
			}

		case <-quit:
			log.Println("Shutting down bot...")
			bot.StopReceivingUpdates()
			return
		}
	}
}

func handleCommand(bot *tgbotapi.BotAPI, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		bot.Send(tgbotapi.NewMessage(msg.Chat.ID, welcomeMessage))
	}
}

// handlePhoto downloads the largest resolution of the photo, runs it through
// the pipeline, persists the record, and delivers the result to the chat.
func handlePhoto(ctx context.Context, bot *tgbotapi.BotAPI, pipe *pipeline.Pipeline, deliverer *delivery.Deliverer, msg *tgbotapi.Message) {
	reqCtx := common.NewRequestContext("telegram")
	chatID := msg.Chat.ID

	bot.Send(tgbotapi.NewMessage(chatID, "⏳ Memproses struk..."))

	photo := msg.Photo[len(msg.Photo)-1]
	imageData, err := downloadPhoto(bot, photo.FileID)
	if err != nil {
		reqCtx.LogError("downloading photo: %v", err)
		deliverer.DeliverFailure(chatID, "gagal mengunduh foto")
		return
	}

	record, err := pipe.Process(ctx, imageData, reqCtx)
	if err != nil {
		reqCtx.LogError("processing photo: %v", err)
		deliverer.DeliverFailure(chatID, failureReason(err))
		return
	}

	if err := storage.SaveRecord(record); err != nil {
		reqCtx.LogError("persisting record %s: %v", record.ReceiptID, err)
	}

	if err := deliverer.Deliver(chatID, record); err != nil {
		reqCtx.LogError("%v", err)
	}

	reqCtx.Summary()
}

func downloadPhoto(bot *tgbotapi.BotAPI, fileID string) ([]byte, error) {
	url, err := bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolving file URL: %w", err)
	}

	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching file: status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// failureReason picks a user-facing reason for a pipeline failure.
func failureReason(err error) string {
	var pipeErr *pipeline.Error
	if !errors.As(err, &pipeErr) {
		return ""
	}

	switch pipeErr.Kind {
	case pipeline.FailureOCR:
		return "teks tidak terbaca (" + pipeErr.Reason + ")"
	case pipeline.FailureParse:
		return "hasil ekstraksi tidak valid"
	default:
		return "layanan ekstraksi sedang bermasalah"
	}
}
