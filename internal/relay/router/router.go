// Package router runs the dialogue loop: read chat events, consult the NLU
// engine with the sender's context, resolve intents and post the reply.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/procurebot/relay/internal/chat"
	"github.com/procurebot/relay/internal/nlu"
	"github.com/procurebot/relay/internal/relay/resolvers"
	"github.com/procurebot/relay/internal/relay/state"
	logx "github.com/procurebot/relay/pkg/logger"
)

// ApologyMessage is posted when a turn fails.
const ApologyMessage = "Sorry, something went wrong! Say anything to me to start over..."

const (
	DefaultPollInterval = 500 * time.Millisecond

	routeStart = "start"
)

var (
	ErrJoinTimeout    = errors.New("router: timed out waiting for loop to exit")
	ErrAlreadyStarted = errors.New("router: already started")
	ErrTurnPanic      = errors.New("router: turn panicked")
)

type Config struct {
	PollInterval    time.Duration `envconfig:"ROUTER_POLL_INTERVAL" default:"500ms"`
	ShutdownTimeout time.Duration `envconfig:"ROUTER_SHUTDOWN_TIMEOUT" default:"10s"`
}

// Recorder is notified once per newly seen user. Failures never affect the turn.
type Recorder interface {
	AddUser(ctx context.Context, userID string) error
}

// Stats is a snapshot of loop counters.
type Stats struct {
	Connected bool      `json:"connected"`
	Turns     uint64    `json:"turns"`
	Resolved  uint64    `json:"resolved"`
	Failures  uint64    `json:"failures"`
	LastTurn  time.Time `json:"last_turn,omitzero"`
}

type Router struct {
	botID     string
	transport chat.Transport
	engine    nlu.Engine
	store     state.Store
	chain     resolvers.Chain
	extractor *chat.Extractor
	recorder  Recorder
	interval  time.Duration
	log       zerolog.Logger

	connected atomic.Bool
	turns     atomic.Uint64
	resolved  atomic.Uint64
	failures  atomic.Uint64
	lastTurn  atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	runErr error
}

type Option func(*Router)

func WithRecorder(rec Recorder) Option {
	return func(r *Router) { r.recorder = rec }
}

func WithPollInterval(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.interval = d
		}
	}
}

func New(botID string, transport chat.Transport, engine nlu.Engine, store state.Store, chain resolvers.Chain, opts ...Option) *Router {
	r := &Router{
		botID:     botID,
		transport: transport,
		engine:    engine,
		store:     store,
		chain:     chain,
		extractor: chat.NewExtractor(botID),
		interval:  DefaultPollInterval,
		log:       logx.Component("router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run connects and polls until ctx is cancelled. A failed connect is
// returned to the caller and not retried.
func (r *Router) Run(ctx context.Context) error {
	if err := r.transport.Connect(ctx); err != nil {
		r.log.Error().Err(err).Msg("connection failed, invalid chat token or bot id?")
		return fmt.Errorf("connect: %w", err)
	}
	r.connected.Store(true)
	defer r.connected.Store(false)
	r.log.Info().Str("bot_id", r.botID).Msg("chatbot is connected and running")

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("chatbot is shutting down")
			return nil
		case <-timer.C:
		}

		if err := r.poll(ctx); err != nil {
			return err
		}
		timer.Reset(r.interval)
	}
}

func (r *Router) poll(ctx context.Context) error {
	events, err := r.transport.ReadEvents(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, chat.ErrNotConnected) {
			r.log.Error().Err(err).Msg("chat transport disconnected")
			return err
		}
		r.log.Warn().Err(err).Msg("failed to read chat events")
		return nil
	}

	msg, ok := r.extractor.Extract(events)
	if !ok || msg.Text == "" || msg.Channel == "" || msg.Sender == r.botID {
		return nil
	}
	// let an in-flight turn finish even when shutdown was requested
	r.HandleMessage(context.WithoutCancel(ctx), msg)
	return nil
}

// HandleMessage runs one turn and posts its reply. It returns the posted text.
func (r *Router) HandleMessage(ctx context.Context, msg chat.Message) string {
	log := r.log.With().
		Str("turn_id", uuid.NewString()).
		Str("user", msg.Sender).
		Str("channel", msg.Channel).
		Logger()

	r.turns.Add(1)
	r.lastTurn.Store(time.Now().UnixNano())

	reply, route, err := r.turn(ctx, msg, &log)
	if err != nil {
		r.failures.Add(1)
		log.Error().Err(err).Msg("turn failed, resetting user state")
		r.reset(ctx, msg.Sender, &log)
		reply = ApologyMessage
	} else {
		log.Info().Str("route", route).Msg("turn complete")
	}

	if err := r.transport.PostMessage(ctx, msg.Channel, reply); err != nil {
		log.Error().Err(err).Msg("failed to post reply")
	}
	return reply
}

func (r *Router) turn(ctx context.Context, msg chat.Message, log *zerolog.Logger) (reply, route string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrTurnPanic, p)
		}
	}()

	st, created, err := r.store.Load(ctx, msg.Sender)
	if err != nil {
		return "", "", fmt.Errorf("load state: %w", err)
	}
	if created && r.recorder != nil {
		if err := r.recorder.AddUser(ctx, msg.Sender); err != nil {
			log.Warn().Err(err).Msg("failed to record new user")
		}
	}

	resp, err := r.engine.Message(ctx, msg.Text, st.Context)
	if err != nil {
		return "", "", fmt.Errorf("nlu message: %w", err)
	}
	st.Context = resp.Context
	st.Touch()

	slots, _ := st.Context.Slots()
	res, ok := r.chain.Select(slots)
	if !ok {
		if err := r.store.Save(ctx, st); err != nil {
			return "", "", fmt.Errorf("save state: %w", err)
		}
		return resp.JoinedText(), routeStart, nil
	}

	log.Debug().Str("route", res.Name()).Msg("intent detected")
	template, err := resp.FirstText()
	if err != nil {
		return "", "", err
	}
	reply, err = res.Resolve(ctx, slots, template)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", res.Name(), err)
	}

	// conversation thread ends once an intent is resolved
	st.Reset()
	if err := r.store.Save(ctx, st); err != nil {
		return "", "", fmt.Errorf("save state: %w", err)
	}
	r.resolved.Add(1)
	return reply, res.Name(), nil
}

func (r *Router) reset(ctx context.Context, userID string, log *zerolog.Logger) {
	st, _, err := r.store.Load(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load state for reset")
		return
	}
	st.Reset()
	if err := r.store.Save(ctx, st); err != nil {
		log.Error().Err(err).Msg("failed to save reset state")
	}
}

// Start runs the loop in the background until Stop is called or ctx ends.
func (r *Router) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	go func() {
		defer close(done)
		err := r.Run(runCtx)
		r.mu.Lock()
		r.runErr = err
		r.mu.Unlock()
	}()
	return nil
}

// Stop requests the loop to exit after the current iteration.
func (r *Router) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Done is closed when a started loop exits. It is nil before Start.
func (r *Router) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Wait blocks until the loop exits and returns its error. A non-positive
// timeout waits forever.
func (r *Router) Wait(timeout time.Duration) error {
	done := r.Done()
	if done == nil {
		return nil
	}
	if timeout <= 0 {
		<-done
	} else {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-done:
		case <-t.C:
			return ErrJoinTimeout
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runErr
}

func (r *Router) Stats() Stats {
	s := Stats{
		Connected: r.connected.Load(),
		Turns:     r.turns.Load(),
		Resolved:  r.resolved.Load(),
		Failures:  r.failures.Load(),
	}
	if ns := r.lastTurn.Load(); ns > 0 {
		s.LastTurn = time.Unix(0, ns)
	}
	return s
}

func (r *Router) Ready() bool {
	return r.connected.Load()
}
