// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/companion-tui/internal/conversation"
	"github.com/jeranaias/companion-tui/internal/emotion"
	"github.com/jeranaias/companion-tui/internal/events"
	"github.com/jeranaias/companion-tui/internal/metrics"
	"github.com/jeranaias/companion-tui/internal/model"
	"github.com/jeranaias/companion-tui/internal/notify"
)

// SignificanceThreshold is the state-update significance above which the
// user is told about the change.
const SignificanceThreshold = 0.7

// stateTimeout bounds a single emotional state write.
const stateTimeout = 2 * time.Second

// Notifier shows transient notifications. notify.Dispatcher implements it.
type Notifier interface {
	Notify(kind notify.Kind, message string) bool
}

type nopNotifier struct{}

func (nopNotifier) Notify(notify.Kind, string) bool { return false }

// =============================================================================
// ROUTER
// =============================================================================

// Router applies decoded events to a Session. It is the single place where
// inbound events change conversation state, and it never lets a handler
// failure escape: errors and panics become error notifications.
type Router struct {
	session  *Session
	states   emotion.Store
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewRouter creates a router. states and notifier may be nil.
func NewRouter(session *Session, states emotion.Store, notifier Notifier, m *metrics.Metrics) *Router {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Router{
		session:  session,
		states:   states,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

// Dispatch runs exactly one handler for ev. It returns a *RemoteError when
// handling failed; the user has already been notified in that case and the
// error is informational.
func (r *Router) Dispatch(ctx context.Context, ev events.Event) (err error) {
	if ev == nil {
		return r.fail("", errors.New("nil event"))
	}
	kind := ev.Kind()

	defer func() {
		if p := recover(); p != nil {
			err = r.fail(kind, fmt.Errorf("handler panic: %v", p))
		}
	}()

	if herr := ev.Accept(&handler{Router: r, ctx: ctx}); herr != nil {
		return r.fail(kind, herr)
	}

	r.metrics.EventHandled(metricLabel(ev))
	switch ev.(type) {
	case events.ServerError, events.Unknown:
	default:
		r.session.Tracker.Recover()
	}
	return nil
}

// metricLabel keeps the events_total label set fixed: unknown types carry
// whatever the server sent.
func metricLabel(ev events.Event) string {
	if _, ok := ev.(events.Unknown); ok {
		return "unknown"
	}
	return string(ev.Kind())
}

// Reject reports a frame that could not be decoded.
func (r *Router) Reject(err error) error {
	return r.fail("", err)
}

func (r *Router) fail(kind events.Kind, err error) error {
	r.metrics.HandlerFailed()
	rerr := &RemoteError{Kind: kind, Err: err}
	log.Error().Err(err).Str("kind", string(kind)).Msg("EVENT FAILED")
	r.notifier.Notify(notify.Error, rerr.Error())
	return rerr
}

// =============================================================================
// HANDLERS
// =============================================================================

// handler binds a Router to the context of one dispatch.
type handler struct {
	*Router
	ctx context.Context
}

var _ events.Handler = (*handler)(nil)

func (h *handler) HandleTyping(ev events.Typing) error {
	h.session.Composing = ev.Composing()
	return nil
}

func (h *handler) HandleResponseChunk(ev events.ResponseChunk) error {
	latency := h.session.sinceLastSend(h.now())
	id, err := h.session.Assembler.Fold(ev, latency)
	if err != nil {
		return err
	}
	h.metrics.ChunkFolded()
	if ev.IsComplete {
		h.session.Composing = false
		log.Debug().Str("id", id).Dur("latency", latency).Msg("STREAM COMPLETE")
	}
	return nil
}

// HandleResponse appends a complete turn. A stream still in progress is
// superseded: it keeps its partial text and no further chunks reach it.
func (h *handler) HandleResponse(ev events.Response) error {
	store := h.session.Store
	if ev.ID != "" {
		if _, exists := store.Get(ev.ID); exists {
			return fmt.Errorf("%w: %s", conversation.ErrDuplicateID, ev.ID)
		}
	}

	if prev := store.FinalizeStreaming(); prev != "" {
		h.session.Assembler.Reset()
		log.Debug().Str("id", prev).Msg("STREAM SUPERSEDED")
	}

	msg := model.NewAIMessage(ev.ID, ev.Content, &model.Metadata{
		ProcessingTime:   h.session.sinceLastSend(h.now()),
		Confidence:       ev.Confidence,
		EmotionalTone:    ev.EmotionalTone,
		RelatedDimension: ev.RelatedDimension,
	})
	if err := store.Append(msg); err != nil {
		return err
	}
	h.session.Composing = false
	return nil
}

func (h *handler) HandleStateUpdate(ev events.StateUpdate) error {
	st := emotion.State{Payload: ev.State, Significance: ev.Significance, ReceivedAt: h.now()}

	if ev.Significance != nil && *ev.Significance > SignificanceThreshold {
		h.notifier.Notify(notify.Info, describeShift(st))
	}

	if h.states == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(h.ctx, stateTimeout)
	defer cancel()
	if err := h.states.UpdateState(ctx, st); err != nil {
		return fmt.Errorf("update emotional state: %w", err)
	}
	return nil
}

func describeShift(st emotion.State) string {
	if dims := st.Dimensions(); len(dims) > 0 {
		return fmt.Sprintf("Notable emotional shift: %s (significance %.2f)", dims[0].Name, *st.Significance)
	}
	return fmt.Sprintf("Notable emotional shift (significance %.2f)", *st.Significance)
}

func (h *handler) HandleSideChannel(ev events.SideChannel) error {
	return h.session.Store.Append(model.NewSystemMessage(ev.ID, ev.Content))
}

// HandleError degrades quality until the next successfully handled event.
// No message is rolled back.
func (h *handler) HandleError(ev events.ServerError) error {
	h.session.Tracker.Degrade()
	rerr := &RemoteError{Kind: events.KindError, Message: ev.Message}
	log.Warn().Str("message", ev.Message).Msg("SERVER ERROR")
	h.notifier.Notify(notify.Error, rerr.Error())
	return nil
}

func (h *handler) HandleUnknown(ev events.Unknown) error {
	log.Debug().Str("type", ev.Type).RawJSON("frame", ev.Raw).Msg("UNKNOWN EVENT")
	return nil
}
