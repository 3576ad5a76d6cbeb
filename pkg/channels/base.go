package channels

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/tinyland-inc/teammate/pkg/bus"
	"github.com/tinyland-inc/teammate/pkg/logger"
)

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
	IsRunning() bool
	IsAllowed(senderID string) bool
}

type BaseChannel struct {
	bus       *bus.MessageBus
	running   atomic.Bool
	name      string
	allowList []string
}

func NewBaseChannel(name string, mb *bus.MessageBus, allowList []string) *BaseChannel {
	return &BaseChannel{
		bus:       mb,
		name:      name,
		allowList: allowList,
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running.Load()
}

func (c *BaseChannel) SetRunning(running bool) {
	c.running.Store(running)
}

// IsAllowed reports whether senderID may talk to the bot. An empty allow list
// admits everyone. Entries may be a bare user id or "id|name"; a leading "@"
// is ignored.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}

	idPart := senderID
	if idx := strings.Index(senderID, "|"); idx > 0 {
		idPart = senderID[:idx]
	}

	for _, allowed := range c.allowList {
		trimmed := strings.TrimPrefix(allowed, "@")
		allowedID := trimmed
		if idx := strings.Index(trimmed, "|"); idx > 0 {
			allowedID = trimmed[:idx]
		}
		if senderID == allowed || senderID == trimmed || idPart == allowedID {
			return true
		}
	}
	return false
}

// HandleMessage publishes an inbound message to the bus unless the sender is
// filtered out by the allow list.
func (c *BaseChannel) HandleMessage(
	ctx context.Context,
	peer bus.Peer,
	messageID, senderID, chatID, content string,
) {
	if !c.IsAllowed(senderID) {
		logger.DebugCF(c.name, "Sender not in allow list", map[string]any{
			"sender_id": senderID,
			"handle":    chatID,
		})
		return
	}

	msg := bus.InboundMessage{
		Channel:   c.name,
		SenderID:  senderID,
		ChatID:    chatID,
		Content:   content,
		Peer:      peer,
		MessageID: messageID,
	}
	if err := c.bus.PublishInbound(ctx, msg); err != nil {
		logger.WarnCF(c.name, "Dropping inbound message", map[string]any{
			"handle": chatID,
			"error":  err,
		})
	}
}
