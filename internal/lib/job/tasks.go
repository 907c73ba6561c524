package job

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskWelcome is the job type for the post-signup welcome email.
	TaskWelcome = "email:welcome"

	// TaskReceiptRender is the job type that pre-renders a freshly created
	// receipt into the Redis cache so the first public view is a cache hit.
	TaskReceiptRender = "receipt:render"
)

// WelcomeEmailPayload is the JSON payload for the welcome email task.
type WelcomeEmailPayload struct {
	To   string `json:"to"`
	Name string `json:"name"`
}

// NewWelcomeEmailTask constructs an Asynq task for sending a welcome email.
func NewWelcomeEmailTask(to, name string) (*asynq.Task, error) {
	payload, err := json.Marshal(WelcomeEmailPayload{
		To:   to,
		Name: name,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskWelcome,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue("default"),
		asynq.Timeout(30*time.Second),
	), nil
}

// ReceiptRenderPayload carries the pre-rendered text view and the public URL
// of a receipt. Rendering happens at enqueue time in the service layer; the
// worker only encodes the QR image and writes both views to the cache.
type ReceiptRenderPayload struct {
	ReceiptID string `json:"receipt_id"`
	Width     int    `json:"width"`
	Text      string `json:"text"`
	PublicURL string `json:"public_url"`
}

// NewReceiptRenderTask constructs an Asynq task that warms the render cache
// for one receipt.
func NewReceiptRenderTask(receiptID string, width int, text, publicURL string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReceiptRenderPayload{
		ReceiptID: receiptID,
		Width:     width,
		Text:      text,
		PublicURL: publicURL,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskReceiptRender,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue("low"),
		asynq.Timeout(15*time.Second),
	), nil
}
