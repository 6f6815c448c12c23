package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/stockkeep/stockkeep/internal/reports"
)

// LowStockPort exposes the single report the sweep needs.
type LowStockPort interface {
	LowStock(ctx context.Context) ([]reports.LowStockItem, error)
}

// LowStockScanJob sweeps stock balances and emails an alert listing
// every product at or below its threshold. Runs nightly; a sweep that
// finds nothing sends nothing.
type LowStockScanJob struct {
	Reports LowStockPort
	Client  *Client
	Logger  *slog.Logger
}

// NewLowStockScanJob initialises the sweep handler.
func NewLowStockScanJob(reportsRepo LowStockPort, client *Client, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{Reports: reportsRepo, Client: client, Logger: logger}
}

// Handle executes one sweep.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Recipient == "" {
		return asynq.SkipRetry
	}

	items, err := j.Reports.LowStock(ctx)
	if err != nil {
		if j.Logger != nil {
			j.Logger.Error("low stock scan", slog.Any("error", err))
		}
		return err
	}
	if len(items) == 0 {
		if j.Logger != nil {
			j.Logger.Info("low stock scan clean")
		}
		return nil
	}

	if j.Logger != nil {
		j.Logger.Warn("low stock detected", slog.Int("products", len(items)))
	}
	if j.Client == nil {
		return nil
	}
	_, err = j.Client.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      payload.Recipient,
		Subject: formatAlertSubject(len(items)),
		Body:    formatAlertBody(items),
	})
	return err
}

func formatAlertSubject(count int) string {
	p := message.NewPrinter(language.English)
	if count == 1 {
		return "Low stock alert: 1 product below threshold"
	}
	return p.Sprintf("Low stock alert: %d products below threshold", count)
}

func formatAlertBody(items []reports.LowStockItem) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder
	b.WriteString("The following products are at or below their low stock threshold:\n\n")
	for _, item := range items {
		p.Fprintf(&b, "  %s (%s): %d in stock, threshold %d\n", item.Name, item.SKU, item.TotalStock, item.Threshold)
	}
	b.WriteString("\nRestock or adjust thresholds as needed.\n")
	return b.String()
}
