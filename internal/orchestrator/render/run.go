package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"piktor/internal/config"
	"piktor/internal/model"
	"piktor/internal/pgmq"
	"piktor/internal/prompt"
	"piktor/internal/storage"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

// job is the render payload enqueued when a generation batch completes.
type job struct {
	VisualID      string   `json:"visual_id"`
	UserID        string   `json:"user_id"`
	ContextPreset string   `json:"context_preset"`
	ImageKeys     []string `json:"image_keys"`
}

// Run starts the render orchestrator. It resizes each finished variation to
// the exact pixel size of its context preset and stores the rendition next
// to the original.
func Run(ctx context.Context, logger zerolog.Logger, client *pgmq.Client, store *storage.Store, cfg *config.Config) error {
	queue := cfg.RenderQueueName
	logger.Info().Str("queue", queue).Msg("Starting render orchestrator")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down render orchestrator")
			return nil
		default:
		}

		msgs, err := client.ReadWithPoll(ctx, queue, cfg.RenderPollTimeoutSec, cfg.RenderPollMaxMsg)
		if err != nil {
			logger.Error().Err(err).Msg("Error reading render queue")
			time.Sleep(time.Second)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		msg := msgs[0]
		logger.Info().Int64("msg_id", msg.ID).Msgf("Received render job: %s", string(msg.Data))

		var payload job
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			logger.Error().Err(err).Msg("Failed to unmarshal render payload; deleting message")
			client.Delete(ctx, queue, []int64{msg.ID})
			continue
		}

		if err := setRenditionStatus(ctx, client, payload.VisualID, "rendering"); err != nil {
			logger.Error().Err(err).Str("visual_id", payload.VisualID).Msg("Failed to mark visual as rendering; will retry")
			time.Sleep(time.Second)
			continue
		}

		backoff := time.Duration(cfg.RenderBackoffInitialSec) * time.Second
		var renderErr error
		for attempt := 1; attempt <= cfg.RenderMaxRetries; attempt++ {
			renderErr = renderAll(ctx, store, &payload)
			if renderErr == nil {
				break
			}
			logger.Error().Err(renderErr).Int("attempt", attempt).Msg("Render pass failed, retrying")
			time.Sleep(backoff)
			backoff *= 2
			if backoff > time.Duration(cfg.RenderBackoffMaxSec)*time.Second {
				backoff = time.Duration(cfg.RenderBackoffMaxSec) * time.Second
			}
		}
		if renderErr != nil {
			if err := setRenditionStatus(ctx, client, payload.VisualID, "failed"); err != nil {
				logger.Error().Err(err).Str("visual_id", payload.VisualID).Msg("Failed to mark visual rendition as failed")
			}
			dlq := cfg.RenderDeadLetterQueueName
			if msgBytes, err := json.Marshal(payload); err == nil {
				if err := client.Send(ctx, dlq, msgBytes); err != nil {
					logger.Error().Err(err).Str("dlq", dlq).Msg("Failed to send message to dead-letter queue")
				}
			}
			if err := client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
				logger.Error().Err(err).Msg("Error deleting render message after failure")
			}
			logger.Warn().
				Int("attempts", cfg.RenderMaxRetries).
				Str("visual_id", payload.VisualID).
				Err(renderErr).
				Msg("Exhausted all render retries; moving job to DLQ")
			continue
		}

		if err := client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
			logger.Error().Err(err).Msg("Error deleting render message")
		}
		if err := setRenditionStatus(ctx, client, payload.VisualID, "completed"); err != nil {
			logger.Error().Err(err).Str("visual_id", payload.VisualID).Msg("Failed to mark visual rendition as completed")
		}
		logger.Info().Str("visual_id", payload.VisualID).Int("images", len(payload.ImageKeys)).Msg("Render job completed")
	}
}

// renderAll produces one preset-sized rendition per stored variation.
func renderAll(ctx context.Context, store *storage.Store, payload *job) error {
	size, ok := prompt.PresetSize(model.ContextPreset(payload.ContextPreset))
	if !ok {
		return fmt.Errorf("unknown context preset %q", payload.ContextPreset)
	}
	for _, key := range payload.ImageKeys {
		data, err := store.GetObject(ctx, key)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", key, err)
		}
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		resized := imaging.Fill(img, size.Width, size.Height, imaging.Center, imaging.Lanczos)

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
			return fmt.Errorf("encode rendition of %s: %w", key, err)
		}
		if err := store.PutObject(ctx, renditionKey(key, payload.ContextPreset), buf.Bytes(), "image/jpeg"); err != nil {
			return fmt.Errorf("store rendition of %s: %w", key, err)
		}
	}
	return nil
}

// renditionKey places renditions in a sibling folder of the original:
// .../variation_1.jpg -> .../renditions/{preset}/variation_1.jpg
func renditionKey(key, preset string) string {
	dir, file := path.Split(key)
	base := strings.TrimSuffix(file, path.Ext(file))
	return dir + "renditions/" + preset + "/" + base + ".jpg"
}

func setRenditionStatus(ctx context.Context, client *pgmq.Client, visualID, status string) error {
	query := `UPDATE visuals
		SET metadata = jsonb_set(COALESCE(metadata, '{}'::jsonb), '{rendition_status}', to_jsonb($1::text)), updated_at = NOW()
		WHERE id = $2`
	return client.Exec(ctx, query, status, visualID)
}
