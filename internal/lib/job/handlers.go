package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/checkbill/receipts-api/internal/config"
	"github.com/checkbill/receipts-api/internal/lib/email"
	"github.com/checkbill/receipts-api/internal/lib/render"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Handler dependencies are package-level and set once at startup via
// InitHandlers, before the worker server starts pulling tasks.
var (
	emailClient *email.Client
	cacheClient *redis.Client
)

// InitHandlers initializes dependencies required by job handlers. It must be
// called before Start.
func (j *JobService) InitHandlers(cfg *config.Config, logger *zerolog.Logger, rdb *redis.Client) {
	emailClient = email.NewClient(cfg, logger)
	cacheClient = rdb
}

// handleWelcomeEmailTask sends the welcome email for a new signup.
func (j *JobService) handleWelcomeEmailTask(ctx context.Context, t *asynq.Task) error {
	var p WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal welcome email payload: %w", err)
	}

	j.logger.Info().
		Str("type", "welcome").
		Str("to", p.To).
		Msg("Processing welcome email task")

	if err := emailClient.SendWelcomeEmail(p.To, p.Name); err != nil {
		j.logger.Error().
			Str("type", "welcome").
			Str("to", p.To).
			Err(err).
			Msg("Failed to send welcome email")
		return err
	}

	j.logger.Info().
		Str("type", "welcome").
		Str("to", p.To).
		Msg("Successfully sent welcome email")

	return nil
}

// handleReceiptRenderTask warms the render cache: the text view arrives
// pre-rendered in the payload, the QR image is encoded here.
func (j *JobService) handleReceiptRenderTask(ctx context.Context, t *asynq.Task) error {
	var p ReceiptRenderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal receipt render payload: %w", err)
	}

	j.logger.Info().
		Str("type", "receipt_render").
		Str("receipt_id", p.ReceiptID).
		Msg("Processing receipt render task")

	textKey := render.TextCacheKey(p.ReceiptID, p.Width)
	if err := cacheClient.Set(ctx, textKey, p.Text, render.CacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache receipt text: %w", err)
	}

	png, err := render.QRPNG(p.PublicURL)
	if err != nil {
		return fmt.Errorf("failed to render receipt qr: %w", err)
	}

	qrKey := render.QRCacheKey(p.ReceiptID)
	if err := cacheClient.Set(ctx, qrKey, png, render.CacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache receipt qr: %w", err)
	}

	j.logger.Info().
		Str("type", "receipt_render").
		Str("receipt_id", p.ReceiptID).
		Msg("Receipt views cached")

	return nil
}
