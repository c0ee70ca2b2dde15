package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"insightwire/pkg/telegram"
)

type sessionState int

const (
	stateNotConnected sessionState = iota
	stateConnected
	stateAuthorized
	stateStopped
)

func (s sessionState) String() string {
	switch s {
	case stateNotConnected:
		return "not_connected"
	case stateConnected:
		return "connected_unauthenticated"
	case stateAuthorized:
		return "connected_authenticated"
	case stateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// worker owns the one Adapter instance and executes commands strictly in
// submission order. It is the only goroutine that ever touches the adapter
// or the session state.
type worker struct {
	adapter Adapter
	log     *slog.Logger
	events  *eventHub

	inbound    chan *command
	terminated chan struct{}

	state        sessionState
	defaultPhone string
}

func newWorker(adapter Adapter, queueSize int, events *eventHub, log *slog.Logger) *worker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if log == nil {
		log = slog.Default()
	}

	return &worker{
		adapter:    adapter,
		log:        log.With("component", "session.worker"),
		events:     events,
		inbound:    make(chan *command, queueSize),
		terminated: make(chan struct{}),
	}
}

// run is the worker loop. It exits only after a Stop command is processed,
// draining and failing anything still queued behind it.
func (w *worker) run(ctx context.Context) {
	defer close(w.terminated)

	for cmd := range w.inbound {
		out := w.execute(ctx, cmd)
		cmd.reply <- out
		w.publishResult(cmd, out)

		if cmd.kind == kindStop {
			w.drain()
			return
		}
	}
}

// execute dispatches one command to the adapter and never lets a failure
// escape the loop: errors and panics become failure outcomes.
func (w *worker) execute(ctx context.Context, cmd *command) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Command panicked", "command", string(cmd.kind), "request_id", cmd.id, "panic", r)
			out = outcome{err: NewError(ErrorCommandFailed, fmt.Sprintf("executing %s: panic: %v", cmd.kind, r))}
		}
	}()

	w.log.Debug("Executing command", "command", string(cmd.kind), "request_id", cmd.id, "state", w.state.String())

	switch cmd.kind {
	case kindConnect:
		return w.handleConnect(ctx, cmd.connect)
	case kindDisconnect:
		return w.handleDisconnect(ctx)
	case kindIsAuthorized:
		return w.handleIsAuthorized(ctx)
	case kindSendCode:
		return w.handleSendCode(ctx, cmd.phone)
	case kindSignIn:
		return w.handleSignIn(ctx, cmd.signIn)
	case kindGetChannels:
		return w.handleGetChannels(ctx)
	case kindGetChannelData:
		return w.handleGetChannelData(ctx, cmd.data)
	case kindStop:
		return w.handleStop(ctx)
	default:
		return outcome{err: NewError(ErrorCommandFailed, fmt.Sprintf("unknown command %q", cmd.kind))}
	}
}

func (w *worker) handleConnect(ctx context.Context, args connectArgs) outcome {
	ok, err := w.adapter.Connect(ctx, args.sessionDir, args.apiID, args.apiHash)
	if err != nil {
		return outcome{err: commandFailure(kindConnect, err)}
	}
	if !ok {
		return outcome{err: NewError(ErrorNotConnected, "connection is not usable")}
	}

	w.state = stateConnected
	w.defaultPhone = strings.TrimSpace(args.phone)

	// A stored session may already be signed in; reflect that immediately.
	if authorized, authErr := w.adapter.IsAuthorized(ctx); authErr == nil && authorized {
		w.state = stateAuthorized
	}

	return outcome{ok: true}
}

func (w *worker) handleDisconnect(ctx context.Context) outcome {
	if w.state == stateNotConnected {
		return outcome{ok: true}
	}

	if err := w.adapter.Close(ctx); err != nil {
		return outcome{err: commandFailure(kindDisconnect, err)}
	}

	w.state = stateNotConnected
	return outcome{ok: true}
}

func (w *worker) handleIsAuthorized(ctx context.Context) outcome {
	if err := w.requireConnected(); err != nil {
		return outcome{err: err}
	}

	authorized, err := w.adapter.IsAuthorized(ctx)
	if err != nil {
		return outcome{err: commandFailure(kindIsAuthorized, err)}
	}

	if authorized {
		w.state = stateAuthorized
	} else if w.state == stateAuthorized {
		w.state = stateConnected
	}

	return outcome{ok: authorized}
}

func (w *worker) handleSendCode(ctx context.Context, phone string) outcome {
	if err := w.requireConnected(); err != nil {
		return outcome{err: err}
	}

	if strings.TrimSpace(phone) == "" {
		phone = w.defaultPhone
	}
	if phone == "" {
		return outcome{err: NewError(ErrorAuthentication, "phone number is required")}
	}

	ok, err := w.adapter.SendCode(ctx, phone)
	if err != nil {
		return outcome{err: commandFailure(kindSendCode, err)}
	}

	return outcome{ok: ok}
}

func (w *worker) handleSignIn(ctx context.Context, args signInArgs) outcome {
	if err := w.requireConnected(); err != nil {
		return outcome{err: err}
	}

	phone := strings.TrimSpace(args.phone)
	if phone == "" {
		phone = w.defaultPhone
	}

	ok, err := w.adapter.SignIn(ctx, phone, args.code)
	if err != nil {
		return outcome{err: commandFailure(kindSignIn, err)}
	}
	if ok {
		w.state = stateAuthorized
	}

	return outcome{ok: ok}
}

func (w *worker) handleGetChannels(ctx context.Context) outcome {
	if err := w.requireAuthorized(ctx); err != nil {
		return outcome{err: err}
	}

	channels, err := w.adapter.Channels(ctx)
	if err != nil {
		return outcome{err: commandFailure(kindGetChannels, err)}
	}

	return outcome{ok: true, channels: channels}
}

// handleGetChannelData fans one command out over every requested channel.
// Unknown channel titles are skipped; a fetch failure on a known channel
// aborts the whole command so callers never see partial results.
func (w *worker) handleGetChannelData(ctx context.Context, args channelDataArgs) outcome {
	if err := w.requireAuthorized(ctx); err != nil {
		return outcome{err: err}
	}

	wanted := make(map[string]struct{}, len(args.targets))
	for _, target := range args.targets {
		trimmed := strings.TrimSpace(target)
		if trimmed == "" {
			continue
		}
		wanted[trimmed] = struct{}{}
	}

	channels, err := w.adapter.Channels(ctx)
	if err != nil {
		return outcome{err: commandFailure(kindGetChannelData, err)}
	}

	var rows []telegram.Message
	matched := make(map[string]struct{}, len(wanted))
	for _, channel := range channels {
		if _, ok := wanted[channel.Title]; !ok {
			continue
		}
		matched[channel.Title] = struct{}{}

		// One history request at a time, inside this single command.
		messages, err := w.adapter.Messages(ctx, channel, args.limit)
		if err != nil {
			return outcome{err: commandFailure(kindGetChannelData, err)}
		}
		rows = append(rows, messages...)
	}

	for title := range wanted {
		if _, ok := matched[title]; !ok {
			w.log.Warn("Target channel not found, skipping", "channel", title)
		}
	}

	return outcome{ok: true, rows: rows}
}

func (w *worker) handleStop(ctx context.Context) outcome {
	if w.state == stateConnected || w.state == stateAuthorized {
		if err := w.adapter.Close(ctx); err != nil {
			w.log.Error("Failed to disconnect adapter during stop", "error", err)
		}
	}

	w.state = stateStopped
	w.events.publish(Event{Type: EventWorkerStopped})
	return outcome{ok: true}
}

// drain answers every command still queued behind the Stop command instead
// of dropping it. The façade stops admitting new commands before Stop is
// enqueued, so nothing can race into the queue during the drain.
func (w *worker) drain() {
	for {
		select {
		case cmd := <-w.inbound:
			out := outcome{err: NewError(ErrorWorkerUnavailable, "session worker stopped before this command ran")}
			cmd.reply <- out
			w.publishResult(cmd, out)
		default:
			return
		}
	}
}

func (w *worker) requireConnected() error {
	if w.state == stateNotConnected {
		return NewError(ErrorNotConnected, "connect before issuing session commands")
	}

	return nil
}

// requireAuthorized gates channel queries on the adapter's live
// authorization state, not just the tracked one.
func (w *worker) requireAuthorized(ctx context.Context) error {
	if err := w.requireConnected(); err != nil {
		return err
	}

	authorized, err := w.adapter.IsAuthorized(ctx)
	if err != nil {
		return commandFailure(kindIsAuthorized, err)
	}
	if !authorized {
		if w.state == stateAuthorized {
			w.state = stateConnected
		}
		return NewError(ErrorAuthentication, "account is not authorized; complete sign-in first")
	}

	w.state = stateAuthorized
	return nil
}

func (w *worker) publishResult(cmd *command, out outcome) {
	if out.err != nil {
		w.events.publish(Event{Type: EventCommandFailed, Command: string(cmd.kind), RequestID: cmd.id, Error: out.err.Error()})
		return
	}

	w.events.publish(Event{Type: EventCommandCompleted, Command: string(cmd.kind), RequestID: cmd.id})
}
