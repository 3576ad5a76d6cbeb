package channels

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/tinyland-inc/teammate/pkg/bus"
	"github.com/tinyland-inc/teammate/pkg/config"
	"github.com/tinyland-inc/teammate/pkg/logger"
	"github.com/tinyland-inc/teammate/pkg/outreach"
	"github.com/tinyland-inc/teammate/pkg/transcript"
)

const (
	SlackChannelName = "slack"

	channelListPageSize = 200
	channelTypeIM       = "im"
)

// forwardedSubtypes are message subtypes that carry new text from someone.
// Edits, deletions, joins and the like are dropped.
var forwardedSubtypes = map[string]bool{
	"":                 true,
	"file_share":       true,
	"thread_broadcast": true,
	"bot_message":      true,
	"me_message":       true,
}

// IdentityError means the account behind the user token could not be
// resolved. Without it mention detection and self filtering do not work, so
// callers treat it as fatal.
type IdentityError struct {
	Err error
}

func (e *IdentityError) Error() string {
	return "resolving slack identity: " + e.Err.Error()
}

func (e *IdentityError) Unwrap() error { return e.Err }

// SlackChannel talks to Slack as a user account: events arrive over socket
// mode, everything else goes through the Web API.
type SlackChannel struct {
	*BaseChannel
	api       *slack.Client
	socket    *socketmode.Client
	selfID    atomic.Value // string
	selfBotID atomic.Value // string

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSlackChannel builds the transport. Extra slack options are appended to
// the defaults, which lets tests point the client at a fake API.
func NewSlackChannel(cfg config.SlackConfig, mb *bus.MessageBus, opts ...slack.Option) *SlackChannel {
	opts = append([]slack.Option{
		slack.OptionDebug(cfg.Debug),
		slack.OptionAppLevelToken(cfg.AppToken),
	}, opts...)
	api := slack.New(cfg.UserToken, opts...)

	c := &SlackChannel{
		BaseChannel: NewBaseChannel(SlackChannelName, mb, cfg.AllowFrom),
		api:         api,
		socket:      socketmode.New(api, socketmode.OptionDebug(cfg.Debug)),
	}
	c.selfID.Store("")
	c.selfBotID.Store("")
	return c
}

// SelfID is the resolved user id of the account, or "" before
// ResolveSelfIdentity succeeded.
func (c *SlackChannel) SelfID() string {
	return c.selfID.Load().(string)
}

func (c *SlackChannel) ResolveSelfIdentity(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", &IdentityError{Err: err}
	}
	if resp.UserID == "" {
		return "", &IdentityError{Err: errors.New("auth.test returned no user id")}
	}
	c.selfID.Store(resp.UserID)
	c.selfBotID.Store(resp.BotID)
	logger.InfoCF("slack", "Resolved identity", map[string]any{
		"user_id": resp.UserID,
		"bot_id":  resp.BotID,
		"user":    resp.User,
		"team":    resp.Team,
	})
	return resp.UserID, nil
}

func (c *SlackChannel) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return errors.New("slack channel already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.SetRunning(true)

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		if err := c.socket.RunContext(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorCF("slack", "Socket mode stopped", map[string]any{"error": err})
		}
		c.SetRunning(false)
	}()
	go func() {
		defer c.wg.Done()
		c.eventLoop(runCtx)
	}()

	logger.InfoC("slack", "Slack channel started")
	return nil
}

func (c *SlackChannel) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	defer c.SetRunning(false)

	select {
	case <-done:
		logger.InfoC("slack", "Slack channel stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *SlackChannel) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-c.socket.Events:
			if !ok {
				return
			}
			c.handleEvent(ctx, evt)
		}
	}
}

func (c *SlackChannel) handleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		logger.DebugC("slack", "Connecting to socket mode")
	case socketmode.EventTypeConnected:
		logger.InfoC("slack", "Connected to socket mode")
	case socketmode.EventTypeConnectionError:
		logger.WarnCF("slack", "Socket mode connection error", map[string]any{
			"detail": fmt.Sprint(evt.Data),
		})
	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if evt.Request != nil {
			c.socket.Ack(*evt.Request)
		}
		if apiEvent.Type != slackevents.CallbackEvent {
			return
		}
		if ev, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent); ok {
			c.handleMessageEvent(ctx, ev)
		}
	}
}

// handleMessageEvent forwards messages that carry new text. Messages posted
// by this account, as a user or through its own bot id, are dropped so the bot
// never answers itself. Other bots are treated like any other sender.
func (c *SlackChannel) handleMessageEvent(ctx context.Context, ev *slackevents.MessageEvent) {
	if !forwardedSubtypes[ev.SubType] {
		return
	}
	if self := c.SelfID(); self != "" && ev.User == self {
		return
	}
	if selfBot := c.selfBotID.Load().(string); selfBot != "" && ev.BotID == selfBot {
		return
	}

	sender := ev.User
	if sender == "" {
		sender = ev.BotID
	}
	if sender == "" {
		return
	}

	kind := bus.PeerChannel
	if ev.ChannelType == channelTypeIM {
		kind = bus.PeerDirect
	}
	c.HandleMessage(ctx,
		bus.Peer{Kind: kind, ID: ev.Channel},
		ev.TimeStamp, sender, ev.Channel, ev.Text,
	)
}

// FetchRecentMessages returns up to limit messages of a conversation, newest
// first. Messages posted by bots carry the bot id as author.
func (c *SlackChannel) FetchRecentMessages(ctx context.Context, handle string, limit int) ([]transcript.Message, error) {
	resp, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: handle,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]transcript.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		author := m.User
		if author == "" {
			author = m.BotID
		}
		out = append(out, transcript.Message{Author: author, Text: m.Text})
	}
	return out, nil
}

// ListChannels pages through every public, non-archived channel.
func (c *SlackChannel) ListChannels(ctx context.Context) ([]outreach.Channel, error) {
	params := &slack.GetConversationsParameters{
		Types:           []string{"public_channel"},
		ExcludeArchived: true,
		Limit:           channelListPageSize,
	}
	var out []outreach.Channel
	for {
		page, cursor, err := c.api.GetConversationsContext(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, ch := range page {
			out = append(out, outreach.Channel{
				ID:         ch.ID,
				Name:       ch.Name,
				IsMember:   ch.IsMember,
				IsArchived: ch.IsArchived,
			})
		}
		if cursor == "" {
			return out, nil
		}
		params.Cursor = cursor
	}
}

func (c *SlackChannel) ListUsers(ctx context.Context) ([]outreach.User, error) {
	users, err := c.api.GetUsersContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]outreach.User, 0, len(users))
	for _, u := range users {
		out = append(out, outreach.User{
			ID:       u.ID,
			Name:     u.Name,
			RealName: u.RealName,
			Deleted:  u.Deleted,
			IsBot:    u.IsBot,
		})
	}
	return out, nil
}

// OpenDirect opens, or reuses, the DM with userID and returns its handle.
func (c *SlackChannel) OpenDirect(ctx context.Context, userID string) (string, error) {
	ch, _, _, err := c.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users:    []string{userID},
		ReturnIM: true,
	})
	if err != nil {
		return "", err
	}
	if ch == nil || ch.ID == "" {
		return "", errors.New("conversations.open returned no channel")
	}
	return ch.ID, nil
}

func (c *SlackChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	_, _, err := c.api.PostMessageContext(ctx, msg.ChatID, slack.MsgOptionText(msg.Content, false))
	return err
}
