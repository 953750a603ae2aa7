package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cuemby/meshrelay/pkg/log"
	"github.com/cuemby/meshrelay/pkg/metrics"
	"github.com/cuemby/meshrelay/pkg/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
)

const (
	// DefaultAPIURL is the public Bot API endpoint
	DefaultAPIURL = "https://api.telegram.org"

	// DefaultTimeout bounds every Bot API call
	DefaultTimeout = 10 * time.Second

	// Placeholder marks credentials that must be set via env or config
	Placeholder = "SET_VIA_ENV_OR_CONFIG"

	redacted = "<redacted>"
)

// Config holds the bot credentials and transport settings
type Config struct {
	BotToken string
	ChatID   string
	APIURL   string
	Timeout  time.Duration
}

// DeliveryError reports a failed Bot API call. StatusCode is set when the
// Bot API answered with a known error code.
type DeliveryError struct {
	Method     string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("telegram %s: status %d: %v", e.Method, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("telegram %s: %v", e.Method, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Client sends notifications through the Telegram Bot API
type Client struct {
	bot     *bot.Bot
	token   string
	chatID  string
	timeout time.Duration
	logger  zerolog.Logger
}

// ValidateCredentials rejects empty and placeholder credentials
func ValidateCredentials(token, chatID string) error {
	if token == "" || strings.Contains(token, Placeholder) {
		return errors.New("telegram bot token is not set")
	}
	if chatID == "" || strings.Contains(chatID, Placeholder) {
		return errors.New("telegram chat id is not set")
	}
	return nil
}

// New creates a client and runs a single getMe self-check. A failed
// self-check is logged and reported as unhealthy but does not fail New.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := ValidateCredentials(cfg.BotToken, cfg.ChatID); err != nil {
		return nil, err
	}

	serverURL := strings.TrimRight(cfg.APIURL, "/")
	if serverURL == "" {
		serverURL = DefaultAPIURL
	}
	if _, err := url.Parse(serverURL); err != nil {
		return nil, fmt.Errorf("invalid telegram api url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	b, err := bot.New(cfg.BotToken,
		bot.WithServerURL(serverURL),
		bot.WithHTTPClient(timeout, &http.Client{Timeout: timeout}),
		bot.WithSkipGetMe(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	c := &Client{
		bot:     b,
		token:   cfg.BotToken,
		chatID:  cfg.ChatID,
		timeout: timeout,
		logger:  log.WithComponent("telegram").With().Str("chat_id", cfg.ChatID).Logger(),
	}

	me, err := c.GetMe(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Telegram self-check failed, sends will still be attempted")
		metrics.RegisterComponent(metrics.ComponentTelegram, false, err.Error())
	} else {
		c.logger.Info().Str("bot", me.Username).Msg("Telegram bot connection verified")
		metrics.RegisterComponent(metrics.ComponentTelegram, true, "")
	}

	return c, nil
}

// GetMe returns the identity of the bot
func (c *Client) GetMe(ctx context.Context) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	user, err := c.bot.GetMe(ctx)
	if err != nil {
		return nil, c.deliveryError("getMe", err)
	}
	return user, nil
}

// SendMessage posts text to chatID. Failures are returned as *DeliveryError.
func (c *Client) SendMessage(ctx context.Context, chatID, text string, mode types.MarkupMode) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if mode == types.MarkupRichText {
		params.ParseMode = models.ParseModeMarkdown
	}

	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		return c.deliveryError("sendMessage", err)
	}
	return nil
}

// Send delivers text to the configured chat and reports whether the Bot API
// accepted it. Errors are logged, never returned. There is no retry.
func (c *Client) Send(ctx context.Context, text string, mode types.MarkupMode) bool {
	timer := metrics.NewTimer()
	err := c.SendMessage(ctx, c.chatID, text, mode)
	timer.ObserveDuration(metrics.DeliveryDuration)

	if err != nil {
		c.logger.Error().
			Err(err).
			Str("mode", mode.String()).
			Msg("Telegram delivery failed")
		metrics.UpdateComponent(metrics.ComponentTelegram, false, err.Error())
		return false
	}

	c.logger.Debug().Msg("Message delivered to Telegram")
	metrics.UpdateComponent(metrics.ComponentTelegram, true, "")
	return true
}

// deliveryError wraps a bot error with the Bot API error code it carries
func (c *Client) deliveryError(method string, err error) *DeliveryError {
	return &DeliveryError{
		Method:     method,
		StatusCode: statusCode(err),
		Err:        c.redact(err),
	}
}

func statusCode(err error) int {
	var tooMany *bot.TooManyRequestsError
	switch {
	case errors.Is(err, bot.ErrorBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, bot.ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, bot.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, bot.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, bot.ErrorConflict):
		return http.StatusConflict
	case errors.As(err, &tooMany):
		return http.StatusTooManyRequests
	}
	return 0
}

// redact removes the bot token from transport errors, which embed the
// request URL. Errors without the token keep their chain.
func (c *Client) redact(err error) error {
	if !strings.Contains(err.Error(), c.token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), c.token, redacted))
}
