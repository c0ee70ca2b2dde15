package session

import (
	"context"

	"github.com/google/uuid"

	"insightwire/pkg/telegram"
)

type commandKind string

const (
	kindConnect        commandKind = "connect"
	kindDisconnect     commandKind = "disconnect"
	kindIsAuthorized   commandKind = "is_authorized"
	kindSendCode       commandKind = "send_code"
	kindSignIn         commandKind = "sign_in"
	kindGetChannels    commandKind = "get_channels"
	kindGetChannelData commandKind = "get_channel_data"
	kindStop           commandKind = "stop"
)

// Adapter is the set of remote-session operations the dispatch worker
// drives. All calls happen on the worker goroutine, one at a time.
type Adapter interface {
	Connect(ctx context.Context, sessionDir, apiID, apiHash string) (bool, error)
	IsAuthorized(ctx context.Context) (bool, error)
	SendCode(ctx context.Context, phone string) (bool, error)
	SignIn(ctx context.Context, phone, code string) (bool, error)
	Channels(ctx context.Context) ([]telegram.Channel, error)
	Messages(ctx context.Context, channel telegram.Channel, limit int) ([]telegram.Message, error)
	Close(ctx context.Context) error
}

type connectArgs struct {
	sessionDir string
	apiID      string
	apiHash    string
	phone      string
}

type signInArgs struct {
	phone string
	code  string
}

type channelDataArgs struct {
	targets []string
	limit   int
}

// outcome carries either a kind-specific success value or a categorized
// failure back across the reply channel.
type outcome struct {
	ok       bool
	channels []telegram.Channel
	rows     []telegram.Message
	err      error
}

// command describes one requested operation with its reply channel.
//
// The reply channel is buffered with capacity one so the worker's delivery
// never blocks: when a caller gives up waiting, its late outcome stays in
// the abandoned channel and is collected, never handed to another caller.
type command struct {
	id    string
	kind  commandKind
	reply chan outcome

	connect connectArgs
	phone   string
	signIn  signInArgs
	data    channelDataArgs
}

func newCommand(kind commandKind) *command {
	return &command{
		id:    uuid.NewString(),
		kind:  kind,
		reply: make(chan outcome, 1),
	}
}
