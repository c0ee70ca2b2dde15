package session

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"insightwire/pkg/telegram"
)

func TestStopDrainsCommandsQueuedBehindIt(t *testing.T) {
	fake := newFakeAdapter()
	w := newWorker(fake, 8, newEventHub(), nil)

	stopCmd := newCommand(kindStop)
	late := newCommand(kindGetChannels)
	later := newCommand(kindIsAuthorized)

	// Preload the queue so both commands sit behind the stop command.
	w.inbound <- stopCmd
	w.inbound <- late
	w.inbound <- later

	go w.run(context.Background())

	select {
	case <-w.terminated:
	case <-time.After(time.Second):
		t.Fatal("worker did not terminate")
	}

	for _, cmd := range []*command{late, later} {
		select {
		case out := <-cmd.reply:
			if CategoryFromError(out.err) != ErrorWorkerUnavailable {
				t.Fatalf("%s category = %q, want %q", cmd.kind, CategoryFromError(out.err), ErrorWorkerUnavailable)
			}
		default:
			t.Fatalf("%s command was dropped without an outcome", cmd.kind)
		}
	}
}

func TestCommandsExecuteInSubmissionOrder(t *testing.T) {
	fake := newFakeAdapter()
	fake.authorized = true
	fake.channels = []telegram.Channel{{ID: 1, Title: "chan1"}}
	w := newWorker(fake, 8, newEventHub(), nil)

	connect := newCommand(kindConnect)
	connect.connect = connectArgs{sessionDir: "/tmp/sess", apiID: "123", apiHash: "abc"}
	authorized := newCommand(kindIsAuthorized)
	channels := newCommand(kindGetChannels)
	stop := newCommand(kindStop)

	w.inbound <- connect
	w.inbound <- authorized
	w.inbound <- channels
	w.inbound <- stop

	go w.run(context.Background())
	<-w.terminated

	for _, cmd := range []*command{connect, authorized, channels} {
		out := <-cmd.reply
		if out.err != nil {
			t.Fatalf("%s failed: %v", cmd.kind, out.err)
		}
	}

	calls := fake.callLog()
	if len(calls) == 0 || calls[0] != "connect" {
		t.Fatalf("first call = %v, want connect", calls)
	}

	sawChannels := false
	for i, call := range calls {
		if call == "channels" {
			sawChannels = true
			if i < 2 {
				t.Fatalf("channels ran before earlier commands finished: %v", calls)
			}
		}
	}
	if !sawChannels {
		t.Fatalf("channels was never called: %v", calls)
	}
	if fake.sawOverlap() {
		t.Fatal("adapter calls overlapped")
	}
}

type panickyAdapter struct {
	*fakeAdapter
}

func (p *panickyAdapter) Channels(context.Context) ([]telegram.Channel, error) {
	panic("boom")
}

func TestWorkerSurvivesAdapterPanic(t *testing.T) {
	fake := newFakeAdapter()
	fake.authorized = true
	panicky := &panickyAdapter{fakeAdapter: fake}

	manager := NewManager(Options{NewAdapter: func(*slog.Logger) Adapter { return panicky }})
	manager.Start()
	t.Cleanup(func() { _ = manager.Stop() })

	ctx := context.Background()
	if _, err := manager.Connect(ctx, "/tmp/sess", "123", "abc", "+15550000"); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	_, err := manager.Channels(ctx)
	if CategoryFromError(err) != ErrorCommandFailed {
		t.Fatalf("category = %q, want %q", CategoryFromError(err), ErrorCommandFailed)
	}

	// The loop keeps serving commands after the panic.
	if _, err := manager.IsAuthorized(ctx); err != nil {
		t.Fatalf("IsAuthorized after panic error: %v", err)
	}
}

func TestSessionStateStrings(t *testing.T) {
	cases := map[sessionState]string{
		stateNotConnected: "not_connected",
		stateConnected:    "connected_unauthenticated",
		stateAuthorized:   "connected_authenticated",
		stateStopped:      "stopped",
	}

	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("state %d = %q, want %q", state, got, want)
		}
	}
}
