package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/gotd/contrib/bg"
	tdsession "github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
)

const (
	sessionFileName   = "session.json"
	sessionsRoot      = "sessions"
	lockAcquireWindow = 30 * time.Second
	lockRetryInterval = 250 * time.Millisecond
	dialogPageLimit   = 200
)

// ErrAuthentication marks code-send and sign-in failures reported by Telegram.
var ErrAuthentication = errors.New("telegram authentication failed")

// ErrNotConnected is returned when an operation needs a live connection.
var ErrNotConnected = errors.New("telegram client is not connected")

// Client wraps one gotd MTProto client behind the session operations the
// dispatch worker needs. It holds no locking of its own: all methods are
// only ever invoked from the single dispatch worker goroutine.
type Client struct {
	log *slog.Logger

	client        *telegram.Client
	stop          bg.StopFunc
	lock          *flock.Flock
	phoneCodeHash string
}

// NewClient constructs a disconnected adapter.
func NewClient(log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}

	return &Client{log: log.With("component", "telegram.client")}
}

// Connect dials Telegram using the credentials stored under sessionDir.
//
// The session directory is guarded by a file lock so two processes cannot
// corrupt the same on-disk session. A relative sessionDir resolves under
// the local sessions/ root.
func (c *Client) Connect(ctx context.Context, sessionDir, apiID, apiHash string) (bool, error) {
	if c.client != nil {
		if err := c.Close(ctx); err != nil {
			c.log.Warn("Failed to close previous connection", "error", err)
		}
	}

	id, err := strconv.Atoi(strings.TrimSpace(apiID))
	if err != nil {
		return false, fmt.Errorf("parse api id: %w", err)
	}

	dir, err := resolveSessionDir(sessionDir)
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return false, fmt.Errorf("create session directory: %w", err)
	}

	lock := flock.New(dir + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, lockAcquireWindow)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, lockRetryInterval)
	if err != nil {
		return false, fmt.Errorf("acquire session lock: %w", err)
	}
	if !locked {
		return false, fmt.Errorf("session directory %s is in use by another process", dir)
	}

	client := telegram.NewClient(id, strings.TrimSpace(apiHash), telegram.Options{
		SessionStorage: &tdsession.FileStorage{Path: filepath.Join(dir, sessionFileName)},
	})

	stop, err := bg.Connect(client)
	if err != nil {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			c.log.Warn("Failed to release session lock", "error", unlockErr)
		}
		return false, fmt.Errorf("connect to telegram: %w", err)
	}

	c.client = client
	c.stop = stop
	c.lock = lock
	c.phoneCodeHash = ""

	c.log.Info("Connected to Telegram", "session_dir", dir)
	return true, nil
}

// IsAuthorized reports whether the stored session is signed in.
func (c *Client) IsAuthorized(ctx context.Context) (bool, error) {
	if c.client == nil {
		return false, ErrNotConnected
	}

	status, err := c.client.Auth().Status(ctx)
	if err != nil {
		return false, fmt.Errorf("query auth status: %w", err)
	}

	return status.Authorized, nil
}

// SendCode asks Telegram to deliver a login code to the given phone number.
//
// The returned phone code hash is retained for the follow-up SignIn.
func (c *Client) SendCode(ctx context.Context, phone string) (bool, error) {
	if c.client == nil {
		return false, ErrNotConnected
	}

	sent, err := c.client.Auth().SendCode(ctx, strings.TrimSpace(phone), auth.SendCodeOptions{})
	if err != nil {
		return false, fmt.Errorf("%w: send code: %v", ErrAuthentication, err)
	}

	code, ok := sent.(*tg.AuthSentCode)
	if !ok {
		return false, fmt.Errorf("%w: unexpected sent code response %T", ErrAuthentication, sent)
	}

	c.phoneCodeHash = code.PhoneCodeHash
	return true, nil
}

// SignIn completes authentication with the code delivered after SendCode.
func (c *Client) SignIn(ctx context.Context, phone, code string) (bool, error) {
	if c.client == nil {
		return false, ErrNotConnected
	}
	if c.phoneCodeHash == "" {
		return false, fmt.Errorf("%w: no pending code request for this session", ErrAuthentication)
	}

	_, err := c.client.Auth().SignIn(ctx, strings.TrimSpace(phone), strings.TrimSpace(code), c.phoneCodeHash)
	if err != nil {
		if tgerr.Is(err, "PHONE_CODE_INVALID", "PHONE_CODE_EXPIRED") {
			return false, fmt.Errorf("%w: invalid or expired code", ErrAuthentication)
		}
		if errors.Is(err, auth.ErrPasswordAuthNeeded) {
			return false, fmt.Errorf("%w: account requires two-factor password", ErrAuthentication)
		}
		return false, fmt.Errorf("%w: sign in: %v", ErrAuthentication, err)
	}

	c.phoneCodeHash = ""
	return true, nil
}

// Channels lists the broadcast channels present in the account's dialogs.
func (c *Client) Channels(ctx context.Context) ([]Channel, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}

	res, err := c.client.API().MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      dialogPageLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list dialogs: %w", err)
	}

	var chats []tg.ChatClass
	switch dialogs := res.(type) {
	case *tg.MessagesDialogs:
		chats = dialogs.Chats
	case *tg.MessagesDialogsSlice:
		chats = dialogs.Chats
	default:
		return nil, fmt.Errorf("unexpected dialogs response %T", res)
	}

	channels := make([]Channel, 0, len(chats))
	for _, chat := range chats {
		ch, ok := chat.(*tg.Channel)
		if !ok || !ch.Broadcast {
			continue
		}
		channels = append(channels, Channel{ID: ch.ID, AccessHash: ch.AccessHash, Title: ch.Title})
	}

	return channels, nil
}

// Messages fetches up to limit most-recent posts from one channel.
//
// Posts without text content are skipped, matching the scraper's row shape.
func (c *Client) Messages(ctx context.Context, channel Channel, limit int) ([]Message, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}
	if limit <= 0 {
		return nil, fmt.Errorf("message limit must be positive, got %d", limit)
	}

	res, err := c.client.API().MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  &tg.InputPeerChannel{ChannelID: channel.ID, AccessHash: channel.AccessHash},
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch history for %q: %w", channel.Title, err)
	}

	var raw []tg.MessageClass
	switch history := res.(type) {
	case *tg.MessagesChannelMessages:
		raw = history.Messages
	case *tg.MessagesMessagesSlice:
		raw = history.Messages
	case *tg.MessagesMessages:
		raw = history.Messages
	default:
		return nil, fmt.Errorf("unexpected history response %T", res)
	}

	rows := make([]Message, 0, len(raw))
	for _, item := range raw {
		msg, ok := item.(*tg.Message)
		if !ok {
			continue
		}
		text := strings.TrimSpace(msg.Message)
		if text == "" {
			continue
		}

		views, _ := msg.GetViews()
		rows = append(rows, Message{
			Channel: channel.Title,
			Date:    time.Unix(int64(msg.Date), 0).UTC(),
			Text:    text,
			Views:   views,
		})
	}

	return rows, nil
}

// Close disconnects and releases the session lock. Safe to call when
// already disconnected.
func (c *Client) Close(_ context.Context) error {
	if c.client == nil {
		return nil
	}

	var errs []error
	if c.stop != nil {
		if err := c.stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop telegram client: %w", err))
		}
	}
	if c.lock != nil {
		if err := c.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("release session lock: %w", err))
		}
	}

	c.client = nil
	c.stop = nil
	c.lock = nil
	c.phoneCodeHash = ""

	return errors.Join(errs...)
}

// resolveSessionDir makes relative session paths land under sessions/.
func resolveSessionDir(sessionDir string) (string, error) {
	dir := strings.TrimSpace(sessionDir)
	if dir == "" {
		return "", errors.New("session directory is required")
	}
	if filepath.IsAbs(dir) {
		return dir, nil
	}

	abs, err := filepath.Abs(filepath.Join(sessionsRoot, dir))
	if err != nil {
		return "", fmt.Errorf("resolve session directory: %w", err)
	}

	return abs, nil
}
