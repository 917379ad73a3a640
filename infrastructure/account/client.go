// Package account is the client of the Account service: profile lookup and
// token refresh.
package account

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"sendify-chat/domain"
	"sendify-chat/errors"

	"github.com/gofiber/fiber/v2"
)

type personResponse struct {
	ID        json.Number `json:"id"`
	Firstname string      `json:"firstname"`
	Lastname  string      `json:"lastname"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type Client struct {
	baseURL string
	timeout time.Duration
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

// Profile looks up the person owning accessToken. The id is kept as the
// decimal text the service sent.
func (c *Client) Profile(ctx context.Context, accessToken string) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}
	agent := fiber.Get(c.baseURL+"/api/info/person").
		Set(fiber.HeaderAuthorization, "Bearer "+accessToken).
		Timeout(c.timeout)

	var person personResponse
	if err := c.do(agent, &person); err != nil {
		return domain.Profile{}, fmt.Errorf("%w: %w", errors.ErrProfile, err)
	}
	if person.ID == "" || person.Firstname == "" || person.Lastname == "" {
		return domain.Profile{}, fmt.Errorf("%w: id, firstname and lastname are required", errors.ErrProfile)
	}
	return domain.Profile{ID: person.ID.String(), Firstname: person.Firstname, Lastname: person.Lastname}, nil
}

// Refresh exchanges refreshToken for a new pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	if err := ctx.Err(); err != nil {
		return domain.TokenPair{}, err
	}
	agent := fiber.Post(c.baseURL + "/auth/refresh").
		JSON(refreshRequest{RefreshToken: refreshToken}).
		Timeout(c.timeout)

	var tokens domain.TokenPair
	if err := c.do(agent, &tokens); err != nil {
		return domain.TokenPair{}, fmt.Errorf("%w: %w", errors.ErrInvalidToken, err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return domain.TokenPair{}, fmt.Errorf("%w: refresh answered an incomplete pair", errors.ErrInvalidToken)
	}
	return tokens, nil
}

func (c *Client) do(agent *fiber.Agent, out any) error {
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return stderrors.Join(errs...)
	}
	if code != fiber.StatusOK {
		return fmt.Errorf("account answered %d", code)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode account answer: %w", err)
	}
	return nil
}
