package client

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
)

var (
	// ErrBudgetExceeded is returned once the daily token budget is spent.
	ErrBudgetExceeded = errors.New("daily token budget exceeded")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("empty model response")
	// ErrContentBlocked is returned when the provider filtered the response.
	ErrContentBlocked = errors.New("content was blocked")
	// ErrDisabled is returned when no API key is configured.
	ErrDisabled = errors.New("assistant is disabled")
)

// Selection chooses between the configured models.
type Selection string

const (
	SelectAuto  Selection = "auto"
	SelectMini  Selection = "mini"
	SelectHeavy Selection = "heavy"
)

// ParseSelection parses a model selection, defaulting to auto.
func ParseSelection(s string) Selection {
	switch Selection(s) {
	case SelectMini, SelectHeavy:
		return Selection(s)
	default:
		return SelectAuto
	}
}

const (
	// DefaultMaxOutput bounds the reply length in tokens.
	DefaultMaxOutput = 500
	// DefaultTemperature is the sampling temperature of assistant replies.
	DefaultTemperature = 0.6
)

// Request is a single chat completion request.
type Request struct {
	System string
	User   string
	// Selection overrides the client's default selection when set.
	Selection   Selection
	MaxOutput   int
	Temperature float64
}

// Response is the result of a chat completion.
type Response struct {
	Text       string
	Model      string
	TokensUsed int
	// Estimated is set when the provider did not report usage.
	Estimated bool
}

// Chatter is the assistant interface consumed by the responder and ticket flow.
type Chatter interface {
	Chat(ctx context.Context, req Request) (Response, error)
}

// Completer performs the raw completion call against a provider.
type Completer interface {
	Complete(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// Usage reports the daily token accounting.
type Usage struct {
	Used      int
	Limit     int
	Remaining int
	Day       string
}
