package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/queue"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body,
// keyed with the trigger's webhook secret.
const SignatureHeader = "X-Fluxion-Signature"

// Webhook receives an external event for a webhook trigger and
// enqueues a run of the trigger's workflow. The JSON body, if any,
// becomes the run input merged over the trigger's input template.
func (h *APIHandlers) Webhook(c fiber.Ctx) error {
	path := c.Params("path")

	trigger, err := h.persistence.Triggers().GetByWebhookPath(c.Context(), path)
	if err != nil {
		return handleError(c, err)
	}

	if !trigger.Enabled {
		return notFound(c, "trigger not found")
	}

	body := c.Body()

	if trigger.WebhookSecret != "" {
		if !verifySignature(body, trigger.WebhookSecret, c.Get(SignatureHeader)) {
			h.logger.WarnContext(c.Context(), "Webhook signature verification failed",
				"trigger_id", trigger.ID, "path", path)

			return unauthorized(c, "invalid webhook signature")
		}
	}

	input := make(map[string]any, len(trigger.InputTemplate))
	for k, v := range trigger.InputTemplate {
		input[k] = v
	}

	if len(body) > 0 {
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			return badRequest(c, "Invalid JSON body: "+err.Error())
		}

		for k, v := range payload {
			input[k] = v
		}
	}

	task, err := h.queue.Enqueue(c.Context(), queue.Submission{
		WorkflowID: trigger.WorkflowID,
		TriggerID:  trigger.ID,
		Input:      input,
	})
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"task_id":    task.ID,
		"status":     models.TaskStatusPending,
		"trigger_id": trigger.ID,
	})
}

func verifySignature(body []byte, secret, header string) bool {
	if header == "" {
		return false
	}

	header = strings.TrimPrefix(header, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(header)))
}
