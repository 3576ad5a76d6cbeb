// Package triage decides whether an inbound message deserves a reply, asks
// the model for one and delivers it after a human-looking pause.
package triage

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinyland-inc/teammate/pkg/bus"
	"github.com/tinyland-inc/teammate/pkg/logger"
	"github.com/tinyland-inc/teammate/pkg/pacing"
)

// TagInstruction tells the model how to mention people in a shared channel.
const TagInstruction = "If you want to tag a user from the conversation, use the syntax <@USER_ID>."

const (
	directPreamble  = "Here are the most recent messages in a Slack DM."
	channelPreamble = "Here are the most recent messages in a Slack channel."
	mentionLead     = "You were mentioned in this message:"
)

type Outcome int

const (
	Ignored Outcome = iota
	NoReply
	Replied
	Abandoned // reply produced but the wait was cut short by shutdown
)

func (o Outcome) String() string {
	switch o {
	case Ignored:
		return "ignored"
	case NoReply:
		return "no_reply"
	case Replied:
		return "replied"
	case Abandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Kind is the branch an inbound message falls into.
type Kind int

const (
	KindNone Kind = iota
	KindDirect
	KindMention
)

type ContextAssembler interface {
	Assemble(ctx context.Context, handle string) (string, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, bool, error)
}

type Sender interface {
	Send(ctx context.Context, msg bus.OutboundMessage) error
}

// PostError reports that a generated reply could not be delivered.
type PostError struct {
	Handle string
	Err    error
}

func (e *PostError) Error() string {
	return "posting reply to " + e.Handle + ": " + e.Err.Error()
}

func (e *PostError) Unwrap() error { return e.Err }

type Options struct {
	// SelfID is the bot's own user id. Empty means identity is not resolved
	// and mention detection is disabled.
	SelfID      string
	MinDelaySec int
	MaxDelaySec int
	Rand        pacing.Source
	// Wait blocks for the reply delay; defaults to pacing.Sleep.
	Wait func(ctx context.Context, d time.Duration) error
}

type Triage struct {
	assembler ContextAssembler
	generator Generator
	sender    Sender
	opts      Options
	inflight  sync.WaitGroup
}

func New(assembler ContextAssembler, generator Generator, sender Sender, opts Options) *Triage {
	if opts.Rand == nil {
		opts.Rand = pacing.NewRandomSource()
	}
	if opts.Wait == nil {
		opts.Wait = pacing.Sleep
	}
	return &Triage{
		assembler: assembler,
		generator: generator,
		sender:    sender,
		opts:      opts,
	}
}

// MentionToken is how Slack encodes an @-mention of userID in message text.
func MentionToken(userID string) string {
	return "<@" + userID + ">"
}

// Classify picks the branch for msg. Direct messages always qualify; channel
// messages qualify only when selfID is known and the text mentions it.
func Classify(msg bus.InboundMessage, selfID string) Kind {
	if msg.IsDirect() {
		return KindDirect
	}
	if selfID != "" && msg.Content != "" && strings.Contains(msg.Content, MentionToken(selfID)) {
		return KindMention
	}
	return KindNone
}

// BuildPrompt renders the user turn for a qualifying message.
func BuildPrompt(kind Kind, msg bus.InboundMessage, history string) string {
	switch kind {
	case KindDirect:
		return strings.Join([]string{directPreamble, history}, "\n")
	case KindMention:
		return strings.Join([]string{
			TagInstruction,
			channelPreamble,
			history,
			mentionLead,
			msg.Content,
		}, "\n")
	default:
		return ""
	}
}

// Handle runs one message through triage. It blocks for the reply delay, so
// callers that must stay responsive run it on its own goroutine (see Run).
// Replies still pending when ctx is cancelled are dropped, not sent, and
// Handle returns Abandoned. Shutdown therefore loses replies that were
// waiting out their delay.
func (t *Triage) Handle(ctx context.Context, msg bus.InboundMessage) (Outcome, error) {
	fields := map[string]any{
		"operation": "triage",
		"handle":    msg.ChatID,
		"peer":      msg.Peer.Kind,
		"trace_id":  uuid.NewString(),
	}

	kind := Classify(msg, t.opts.SelfID)
	if kind == KindNone {
		logger.DebugCF("triage", "Ignoring message", fields)
		return Ignored, nil
	}

	history, err := t.assembler.Assemble(ctx, msg.ChatID)
	if err != nil {
		return NoReply, err
	}

	reply, ok, err := t.generator.Generate(ctx, BuildPrompt(kind, msg, history))
	if err != nil {
		return NoReply, err
	}
	if !ok {
		logger.InfoCF("triage", "No response needed", fields)
		return NoReply, nil
	}

	delay := pacing.HumanDelay(t.opts.Rand, t.opts.MinDelaySec, t.opts.MaxDelaySec)
	fields["delay"] = fmt.Sprintf("%ds", int(math.Round(delay.Seconds())))
	logger.InfoCF("triage", "Responding after delay", fields)

	if err := t.opts.Wait(ctx, delay); err != nil {
		logger.WarnCF("triage", "Pending reply abandoned", fields)
		return Abandoned, nil
	}

	out := bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID, Content: reply}
	if err := t.sender.Send(ctx, out); err != nil {
		return NoReply, &PostError{Handle: msg.ChatID, Err: err}
	}
	return Replied, nil
}

// Run consumes inbound messages until ctx is done or the bus closes. Each
// message is handled concurrently; replies to the same conversation are not
// coordinated.
func (t *Triage) Run(ctx context.Context, mb *bus.MessageBus) {
	for {
		msg, ok := mb.ConsumeInbound(ctx)
		if !ok {
			return
		}
		t.inflight.Add(1)
		go func() {
			defer t.inflight.Done()
			t.dispatch(ctx, msg)
		}()
	}
}

// Wait blocks until every handler started by Run has returned.
func (t *Triage) Wait() {
	t.inflight.Wait()
}

func (t *Triage) dispatch(ctx context.Context, msg bus.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("triage", "Handler panicked", map[string]any{
				"handle": msg.ChatID,
				"panic":  fmt.Sprint(r),
			})
		}
	}()

	outcome, err := t.Handle(ctx, msg)
	if err != nil {
		logger.ErrorCF("triage", "Triage failed", map[string]any{
			"handle":     msg.ChatID,
			"message_id": msg.MessageID,
			"operation":  "triage",
			"error":      err,
		})
		return
	}
	logger.DebugCF("triage", "Triage finished", map[string]any{
		"handle":  msg.ChatID,
		"outcome": outcome.String(),
	})
}
