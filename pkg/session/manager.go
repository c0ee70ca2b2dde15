package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"insightwire/pkg/telegram"
)

const (
	defaultQueueSize   = 64
	defaultStopTimeout = 5 * time.Second
	defaultDataLimit   = 100
)

// AdapterFactory builds a fresh Adapter for each worker lifetime.
type AdapterFactory func(log *slog.Logger) Adapter

// Options tune the façade. The zero value is usable.
type Options struct {
	// Logger receives worker and façade logs. Defaults to slog.Default().
	Logger *slog.Logger

	// NewAdapter builds the remote client adapter on Start. Defaults to
	// the gotd-backed telegram client.
	NewAdapter AdapterFactory

	// ReplyTimeout bounds how long a caller waits for its outcome. Zero
	// means wait until the call's context is done.
	ReplyTimeout time.Duration

	// StopTimeout bounds how long Stop waits for worker termination.
	StopTimeout time.Duration

	// QueueSize is the inbound command queue capacity.
	QueueSize int
}

// Manager is the synchronous, goroutine-safe façade over the dispatch
// worker. One instance per process is the intended usage: the embedding
// application constructs it once and passes it by reference.
type Manager struct {
	log          *slog.Logger
	newAdapter   AdapterFactory
	replyTimeout time.Duration
	stopTimeout  time.Duration
	queueSize    int
	events       *eventHub

	mu      sync.RWMutex
	running bool
	worker  *worker
}

// NewManager constructs a stopped manager; call Start before issuing
// commands.
func NewManager(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	newAdapter := opts.NewAdapter
	if newAdapter == nil {
		newAdapter = func(log *slog.Logger) Adapter {
			return telegram.NewClient(log)
		}
	}

	stopTimeout := opts.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}

	return &Manager{
		log:          log.With("component", "session.manager"),
		newAdapter:   newAdapter,
		replyTimeout: opts.ReplyTimeout,
		stopTimeout:  stopTimeout,
		queueSize:    opts.QueueSize,
		events:       newEventHub(),
	}
}

// Start spawns the dispatch worker. Calling Start on a running manager is
// a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.worker = newWorker(m.newAdapter(m.log), m.queueSize, m.events, m.log)
	m.running = true
	go m.worker.run(context.Background())

	m.log.Info("Session worker started")
}

// Stop submits a Stop command, which the worker processes in order behind
// everything already queued, then waits for worker termination. Safe to
// call when not running.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}

	w := m.worker
	m.running = false

	// Holding the write lock here means no submitter can enqueue after the
	// Stop command: everything behind it in the queue is drained and failed
	// by the worker, never silently dropped.
	w.inbound <- newCommand(kindStop)
	m.mu.Unlock()

	select {
	case <-w.terminated:
	case <-time.After(m.stopTimeout):
		return NewError(ErrorCommandFailed, "session worker did not stop in time")
	}

	m.log.Info("Session worker stopped")
	return nil
}

// SubscribeEvents returns a command lifecycle event stream and its
// unsubscribe function. Slow subscribers lose events rather than blocking
// the worker.
func (m *Manager) SubscribeEvents(buffer int) (<-chan Event, func()) {
	return m.events.subscribe(buffer)
}

// Connect establishes the remote session using credentials stored under
// sessionDir. The phone number is retained as the session default for
// later SendCode/SignIn calls.
func (m *Manager) Connect(ctx context.Context, sessionDir, apiID, apiHash, phone string) (bool, error) {
	cmd := newCommand(kindConnect)
	cmd.connect = connectArgs{sessionDir: sessionDir, apiID: apiID, apiHash: apiHash, phone: phone}

	out, err := m.execute(ctx, cmd)
	return out.ok, err
}

// IsAuthorized reports whether the connected session is signed in.
func (m *Manager) IsAuthorized(ctx context.Context) (bool, error) {
	out, err := m.execute(ctx, newCommand(kindIsAuthorized))
	return out.ok, err
}

// SendCode requests a login code for the given phone number. An empty
// phone falls back to the number given at Connect.
func (m *Manager) SendCode(ctx context.Context, phone string) (bool, error) {
	cmd := newCommand(kindSendCode)
	cmd.phone = phone

	out, err := m.execute(ctx, cmd)
	return out.ok, err
}

// SignIn completes authentication with the delivered code.
func (m *Manager) SignIn(ctx context.Context, phone, code string) (bool, error) {
	cmd := newCommand(kindSignIn)
	cmd.signIn = signInArgs{phone: phone, code: code}

	out, err := m.execute(ctx, cmd)
	return out.ok, err
}

// Channels lists the broadcast channels available to the signed-in account.
func (m *Manager) Channels(ctx context.Context) ([]telegram.Channel, error) {
	out, err := m.execute(ctx, newCommand(kindGetChannels))
	return out.channels, err
}

// ChannelData fetches up to limit most-recent messages for every target
// channel inside one command, so unrelated callers never interleave with
// the per-channel fetches. A non-positive limit uses the default of 100.
func (m *Manager) ChannelData(ctx context.Context, targets []string, limit int) ([]telegram.Message, error) {
	if limit <= 0 {
		limit = defaultDataLimit
	}

	cmd := newCommand(kindGetChannelData)
	cmd.data = channelDataArgs{targets: targets, limit: limit}

	out, err := m.execute(ctx, cmd)
	return out.rows, err
}

// Disconnect releases the remote session. Idempotent.
func (m *Manager) Disconnect(ctx context.Context) (bool, error) {
	out, err := m.execute(ctx, newCommand(kindDisconnect))
	return out.ok, err
}

// execute submits one command and blocks the calling goroutine until its
// outcome arrives, the context is done, or the reply timeout elapses. A
// late outcome after timeout lands in the command's own abandoned reply
// channel and is never delivered to another caller.
func (m *Manager) execute(ctx context.Context, cmd *command) (outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.RLock()
	if !m.running {
		m.mu.RUnlock()
		return outcome{}, NewError(ErrorWorkerUnavailable, "session manager is not running")
	}
	w := m.worker

	select {
	case w.inbound <- cmd:
		m.mu.RUnlock()
	case <-w.terminated:
		m.mu.RUnlock()
		return outcome{}, NewError(ErrorWorkerUnavailable, "session worker has stopped")
	case <-ctx.Done():
		m.mu.RUnlock()
		return outcome{}, fmt.Errorf("submit %s: %w", cmd.kind, ctx.Err())
	}

	m.events.publish(Event{Type: EventCommandSubmitted, Command: string(cmd.kind), RequestID: cmd.id})

	var timeout <-chan time.Time
	if m.replyTimeout > 0 {
		timer := time.NewTimer(m.replyTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case out := <-cmd.reply:
		return out, out.err
	case <-ctx.Done():
		return outcome{}, NewError(ErrorReplyTimeout, fmt.Sprintf("waiting for %s: %v", cmd.kind, ctx.Err()))
	case <-timeout:
		return outcome{}, NewError(ErrorReplyTimeout, fmt.Sprintf("no reply for %s within %s", cmd.kind, m.replyTimeout))
	}
}
