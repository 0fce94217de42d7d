// telegram.go - Formats and delivers processed records back to the chat

package delivery

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rezapratama/strukparse/internal/receipt"
)

// FailedError marks a record that was processed successfully but could not
// be delivered to the user. The record itself is intact.
type FailedError struct {
	ReceiptID string
	Err       error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("delivery failed for receipt %s: %v", e.ReceiptID, e.Err)
}

func (e *FailedError) Unwrap() error {
	return e.Err
}

// Deliverer sends processed records to Telegram chats.
type Deliverer struct {
	bot *tgbotapi.BotAPI
}

// NewDeliverer wraps a bot client.
func NewDeliverer(bot *tgbotapi.BotAPI) *Deliverer {
	return &Deliverer{bot: bot}
}

// Deliver sends the formatted record to the chat it came from.
func (d *Deliverer) Deliver(chatID int64, record *receipt.Record) error {
	msg := tgbotapi.NewMessage(chatID, FormatRecord(record))
	if _, err := d.bot.Send(msg); err != nil {
		return &FailedError{ReceiptID: record.ReceiptID, Err: err}
	}
	return nil
}

// DeliverFailure tells the user their photo could not be processed.
func (d *Deliverer) DeliverFailure(chatID int64, reason string) error {
	text := "❌ Struk tidak bisa diproses"
	if reason != "" {
		text += ": " + reason
	}
	text += "\nCoba foto ulang dengan pencahayaan yang lebih baik."

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := d.bot.Send(msg); err != nil {
		return &FailedError{Err: err}
	}
	return nil
}

// FormatRecord renders a record as a chat message.
func FormatRecord(r *receipt.Record) string {
	var sb strings.Builder

	sb.WriteString("🧾 ")
	if r.MerchantName != "" {
		sb.WriteString(r.MerchantName)
	} else {
		sb.WriteString("(merchant tidak terbaca)")
	}
	sb.WriteString("\n")

	if r.Date != nil {
		sb.WriteString("📅 " + *r.Date)
		if r.Time != nil {
			sb.WriteString("  🕐 " + *r.Time)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("──────────────\n")
	for _, item := range r.Items {
		sb.WriteString(fmt.Sprintf("%dx %s — Rp %s\n", item.Qty, item.Name, formatRupiah(item.TotalPrice)))
	}
	sb.WriteString("──────────────\n")
	sb.WriteString("💰 Total: Rp " + formatRupiah(r.TotalAmount) + "\n")

	switch r.Status {
	case receipt.StatusVerified:
		sb.WriteString("✅ Status: VERIFIED")
	case receipt.StatusActionRequired:
		sb.WriteString("⚠️ Status: ACTION_REQUIRED\n")
		sb.WriteString("Periksa kembali:\n")
		for _, f := range r.LowConfidenceFields {
			sb.WriteString(fmt.Sprintf("  • %s (%v)\n", f.Field, f.Value))
		}
	default:
		sb.WriteString("Status: " + string(r.Status))
	}

	return strings.TrimRight(sb.String(), "\n")
}

// formatRupiah renders an amount in minor units with dot thousands
// separators, the way Indonesian receipts print them.
func formatRupiah(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}

	s := strconv.FormatInt(amount, 10)
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)

	out := strings.Join(parts, ".")
	if neg {
		out = "-" + out
	}
	return out
}
