// Package slackbot adapts a Slack Socket Mode session to chat.Transport.
package slackbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/procurebot/relay/internal/chat"
	errx "github.com/procurebot/relay/internal/core/error"
	logx "github.com/procurebot/relay/pkg/logger"
)

const eventBuffer = 256

// ErrNoAppToken is returned by Connect when no app-level token is configured.
var ErrNoAppToken = errors.New("SLACK_APP_TOKEN is required for socket mode")

var profileEvents = map[string]bool{
	"user_change":          true,
	"user_profile_changed": true,
}

type Config struct {
	BotToken string `envconfig:"SLACK_BOT_TOKEN" required:"true"`
	AppToken string `envconfig:"SLACK_APP_TOKEN"`
	BotID    string `envconfig:"SLACK_BOT_ID"`
	BotName  string `envconfig:"SLACK_BOT_NAME" default:"chatbot"`
	Debug    bool   `envconfig:"SLACK_DEBUG" default:"false"`
}

type Transport struct {
	api      *slack.Client
	socket   *socketmode.Client
	events   chan chat.Event
	appToken string

	mu    sync.RWMutex
	botID string

	started atomic.Bool
	closed  atomic.Bool
}

// New builds a transport. Extra options are passed to the Slack client.
func New(cfg Config, opts ...slack.Option) *Transport {
	if cfg.AppToken != "" {
		opts = append(opts, slack.OptionAppLevelToken(cfg.AppToken))
	}
	api := slack.New(cfg.BotToken, opts...)
	return &Transport{
		api:      api,
		socket:   socketmode.New(api, socketmode.OptionDebug(cfg.Debug)),
		events:   make(chan chat.Event, eventBuffer),
		appToken: cfg.AppToken,
		botID:    cfg.BotID,
	}
}

func (t *Transport) API() *slack.Client {
	return t.api
}

// BotID returns the configured bot id, or the one learned during Connect.
func (t *Transport) BotID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.botID
}

// Connect authenticates and starts the Socket Mode session in the background.
// The session ends when ctx is cancelled.
func (t *Transport) Connect(ctx context.Context) error {
	if t.appToken == "" {
		return errx.WrapTransport(ErrNoAppToken)
	}
	auth, err := t.api.AuthTestContext(ctx)
	if err != nil {
		return errx.WrapTransport(fmt.Errorf("slack auth test: %w", err))
	}
	t.mu.Lock()
	if t.botID == "" {
		t.botID = auth.UserID
	}
	t.mu.Unlock()
	logx.Info().Str("user_id", auth.UserID).Str("team", auth.Team).Msg("slack bot authenticated")

	if !t.started.CompareAndSwap(false, true) {
		return nil
	}
	go t.pump(ctx)
	go func() {
		if err := t.socket.RunContext(ctx); err != nil && ctx.Err() == nil {
			logx.Error().Err(err).Msg("slack socket mode stopped")
		}
		t.closed.Store(true)
	}()
	return nil
}

func (t *Transport) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-t.socket.Events:
			if !ok {
				return
			}
			t.handle(ctx, evt)
		}
	}
}

func (t *Transport) handle(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnected:
		logx.Info().Msg("slack socket mode connected")
	case socketmode.EventTypeConnectionError:
		logx.Warn().Msg("slack socket mode connection error")
	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if evt.Request != nil {
			t.socket.Ack(*evt.Request)
		}
		ev, ok := toChatEvent(apiEvent, t.BotID())
		if !ok {
			return
		}
		select {
		case t.events <- ev:
		case <-ctx.Done():
		}
	}
}

// toChatEvent maps an Events API callback to a chat event. Edits, deletions
// and bot posts arrive as message subtypes and carry no text.
func toChatEvent(apiEvent slackevents.EventsAPIEvent, botID string) (chat.Event, bool) {
	if apiEvent.Type != slackevents.CallbackEvent {
		return chat.Event{}, false
	}
	inner := apiEvent.InnerEvent
	switch ev := inner.Data.(type) {
	case *slackevents.MessageEvent:
		return chat.Event{
			Type:    ev.Type,
			Text:    normalizeMention(ev.Text, botID),
			HasText: ev.SubType == "",
			User:    ev.User,
			Channel: ev.Channel,
		}, true
	default:
		return chat.Event{Type: inner.Type, UserProfile: profileEvents[inner.Type]}, true
	}
}

// normalizeMention rewrites the first bare "<@ID>" mention of the bot into
// the "<@ID>:" token the extractor looks for. Slack clients stopped sending
// the colon form.
func normalizeMention(text, botID string) string {
	if botID == "" {
		return text
	}
	bare := "<@" + botID + ">"
	i := strings.Index(text, bare)
	if i < 0 || strings.HasPrefix(text[i:], chat.MentionToken(botID)) {
		return text
	}
	return text[:i] + chat.MentionToken(botID) + text[i+len(bare):]
}

// ReadEvents drains buffered events without blocking. It stops after the
// first text event so that every message gets its own turn.
func (t *Transport) ReadEvents(ctx context.Context) ([]chat.Event, error) {
	if !t.started.Load() || t.closed.Load() {
		return nil, chat.ErrNotConnected
	}
	var out []chat.Event
	for {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case ev := <-t.events:
			out = append(out, ev)
			if ev.HasText && !ev.UserProfile {
				return out, nil
			}
		default:
			return out, nil
		}
	}
}

func (t *Transport) PostMessage(ctx context.Context, channel, text string) error {
	_, _, err := t.api.PostMessageContext(ctx, channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		return errx.WrapTransport(fmt.Errorf("post to %s: %w", channel, err))
	}
	return nil
}

var _ chat.Transport = (*Transport)(nil)
