package chat

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by transports used before Connect succeeded.
var ErrNotConnected = errors.New("chat transport is not connected")

// Event is one raw event read from the chat stream.
type Event struct {
	Type    string
	Text    string
	HasText bool   // the event carried a text field, possibly empty
	User    string // sender id
	Channel string
	// UserProfile marks events that embed a user profile (presence and
	// profile updates) rather than a user-authored message.
	UserProfile bool
}

// Message is an utterance addressed to the bot.
type Message struct {
	Text    string
	Sender  string
	Channel string
}

// Transport is the chat capability the relay depends on.
type Transport interface {
	// Connect establishes the session. It is not retried by callers.
	Connect(ctx context.Context) error
	// ReadEvents returns the next batch of events; an empty batch is normal.
	ReadEvents(ctx context.Context) ([]Event, error)
	// PostMessage posts text to a channel.
	PostMessage(ctx context.Context, channel, text string) error
}
