// Package store is the client of the Store service, which owns message
// persistence.
package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sendify-chat/domain"
	"sendify-chat/errors"

	"github.com/gofiber/fiber/v2"
)

const acknowledged = "ok"

type createMessageResponse struct {
	Msg string `json:"msg"`
}

type Client struct {
	baseURL string
	timeout time.Duration
	log     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout, log: log}
}

// CreateMessage persists one record. Anything but a 2xx answer carrying
// {"msg":"ok"} is an ErrPersistenceFailure.
func (c *Client) CreateMessage(ctx context.Context, record domain.StoreRecord) error {
	timeout, err := remaining(ctx, c.timeout)
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrPersistenceFailure, err)
	}

	agent := fiber.Post(c.baseURL + "/message").JSON(record).Timeout(timeout)
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", errors.ErrPersistenceFailure, stderrors.Join(errs...))
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return fmt.Errorf("%w: store answered %d", errors.ErrPersistenceFailure, code)
	}

	var resp createMessageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: decode store answer: %w", errors.ErrPersistenceFailure, err)
	}
	if resp.Msg != acknowledged {
		return fmt.Errorf("%w: store answered %q", errors.ErrPersistenceFailure, resp.Msg)
	}
	c.log.Debug("Message persisted", "channel_id", record.ChannelID, "user_id", record.UserID)
	return nil
}

// remaining bounds the request timeout by the context deadline.
func remaining(ctx context.Context, timeout time.Duration) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			return left, nil
		}
	}
	return timeout, nil
}
