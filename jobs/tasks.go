package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeLowStockScan is the task type for the periodic low stock sweep.
	TaskTypeLowStockScan = "stock:low_scan"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// LowStockScanPayload configures one sweep run.
type LowStockScanPayload struct {
	Recipient string `json:"recipient"`
}

// NewLowStockScanTask constructs an Asynq task.
func NewLowStockScanTask(recipient string) (*asynq.Task, error) {
	data, err := json.Marshal(LowStockScanPayload{Recipient: recipient})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLowStockScan, data), nil
}
