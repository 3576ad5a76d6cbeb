// Package outreach starts conversations on its own: on a schedule it picks a
// random public channel or a random colleague and posts an opener.
package outreach

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tinyland-inc/teammate/pkg/bus"
	"github.com/tinyland-inc/teammate/pkg/logger"
	"github.com/tinyland-inc/teammate/pkg/pacing"
	"github.com/tinyland-inc/teammate/pkg/triage"
)

// SlackbotID is Slack's built-in system user.
const SlackbotID = "USLACKBOT"

type Channel struct {
	ID         string
	Name       string
	IsMember   bool
	IsArchived bool
}

type User struct {
	ID       string
	Name     string
	RealName string
	Deleted  bool
	IsBot    bool
}

// DisplayName prefers the real name, then the handle, then the id.
func (u User) DisplayName() string {
	switch {
	case u.RealName != "":
		return u.RealName
	case u.Name != "":
		return u.Name
	default:
		return u.ID
	}
}

// Directory lists outreach targets. ListChannels is expected to return public,
// non-archived channels; the filters below still re-check both.
type Directory interface {
	ListChannels(ctx context.Context) ([]Channel, error)
	ListUsers(ctx context.Context) ([]User, error)
	OpenDirect(ctx context.Context, userID string) (string, error)
}

type (
	ContextAssembler = triage.ContextAssembler
	Generator        = triage.Generator
	Sender           = triage.Sender
)

// EligibleChannels keeps channels the account belongs to that are not archived.
func EligibleChannels(channels []Channel) []Channel {
	out := make([]Channel, 0, len(channels))
	for _, c := range channels {
		if c.IsMember && !c.IsArchived {
			out = append(out, c)
		}
	}
	return out
}

// EligibleUsers drops deleted accounts, bots, Slackbot and the bot itself.
func EligibleUsers(users []User, selfID string) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		if u.Deleted || u.IsBot || u.ID == SlackbotID || u.ID == "" {
			continue
		}
		if selfID != "" && u.ID == selfID {
			continue
		}
		out = append(out, u)
	}
	return out
}

// ChannelPrompt is the opener prompt for a public channel.
func ChannelPrompt(channel, history string) string {
	if history == "" {
		return fmt.Sprintf("Start a new conversation suitable for channel #%s.", channel)
	}
	return strings.Join([]string{
		triage.TagInstruction,
		fmt.Sprintf("Here are the most recent messages in a public Slack channel #%s.", channel),
		history,
		"Continue the existing conversation or start a new conversation relevant to the channel topic.",
	}, "\n")
}

// DirectPrompt is the opener prompt for a DM with user.
func DirectPrompt(user, history string) string {
	if history == "" {
		return fmt.Sprintf("You have no conversation history with %s. "+
			"Start a new conversation which may or may not be work-related.", user)
	}
	return strings.Join([]string{
		fmt.Sprintf("Here are the most recent messages in a DM with %s. "+
			"Continue the existing conversation or start a new conversation.", user),
		history,
	}, "\n")
}

type Status int

const (
	Skipped Status = iota // empty candidate pool
	Silent                // model had nothing to say
	Posted
)

func (s Status) String() string {
	switch s {
	case Skipped:
		return "skipped"
	case Silent:
		return "silent"
	case Posted:
		return "posted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result describes one outreach tick.
type Result struct {
	Status Status
	Handle string
	Target string
}

type Options struct {
	SelfID string
	Rand   pacing.Source
	// Transport is the bus channel name stamped on outgoing messages.
	Transport string
}

type Outreach struct {
	directory Directory
	assembler ContextAssembler
	generator Generator
	sender    Sender
	opts      Options
}

func New(directory Directory, assembler ContextAssembler, generator Generator, sender Sender, opts Options) *Outreach {
	if opts.Rand == nil {
		opts.Rand = pacing.NewRandomSource()
	}
	return &Outreach{
		directory: directory,
		assembler: assembler,
		generator: generator,
		sender:    sender,
		opts:      opts,
	}
}

// ChannelTick posts an opener into one random eligible public channel.
func (o *Outreach) ChannelTick(ctx context.Context) (Result, error) {
	channels, err := o.directory.ListChannels(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("listing channels: %w", err)
	}
	pool := EligibleChannels(channels)
	logger.InfoCF("outreach", "Channel outreach tick", map[string]any{
		"listed":   len(channels),
		"eligible": len(pool),
	})
	if len(pool) == 0 {
		return Result{Status: Skipped}, nil
	}

	target := pool[pacing.Pick(o.opts.Rand, len(pool))]
	return o.post(ctx, "channel_outreach", target.ID, "#"+target.Name, func(history string) string {
		return ChannelPrompt(target.Name, history)
	})
}

// DirectTick opens (or reuses) a DM with one random eligible user and posts
// an opener there.
func (o *Outreach) DirectTick(ctx context.Context) (Result, error) {
	users, err := o.directory.ListUsers(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("listing users: %w", err)
	}
	pool := EligibleUsers(users, o.opts.SelfID)
	logger.InfoCF("outreach", "Direct outreach tick", map[string]any{
		"listed":   len(users),
		"eligible": len(pool),
	})
	if len(pool) == 0 {
		return Result{Status: Skipped}, nil
	}

	target := pool[pacing.Pick(o.opts.Rand, len(pool))]
	handle, err := o.directory.OpenDirect(ctx, target.ID)
	if err != nil {
		return Result{}, fmt.Errorf("opening DM with %s: %w", target.ID, err)
	}
	name := target.DisplayName()
	return o.post(ctx, "dm_outreach", handle, name, func(history string) string {
		return DirectPrompt(name, history)
	})
}

func (o *Outreach) post(ctx context.Context, operation, handle, target string, prompt func(string) string) (Result, error) {
	fields := map[string]any{
		"operation": operation,
		"handle":    handle,
		"target":    target,
		"trace_id":  uuid.NewString(),
	}
	logger.InfoCF("outreach", "Preparing to post", fields)

	history, err := o.assembler.Assemble(ctx, handle)
	if err != nil {
		return Result{}, err
	}

	reply, ok, err := o.generator.Generate(ctx, prompt(history))
	if err != nil {
		return Result{}, err
	}
	if !ok {
		logger.InfoCF("outreach", "Not making any post this interval", fields)
		return Result{Status: Silent, Handle: handle, Target: target}, nil
	}

	out := bus.OutboundMessage{Channel: o.opts.Transport, ChatID: handle, Content: reply}
	if err := o.sender.Send(ctx, out); err != nil {
		return Result{}, &triage.PostError{Handle: handle, Err: err}
	}
	logger.InfoCF("outreach", "Posted opener", fields)
	return Result{Status: Posted, Handle: handle, Target: target}, nil
}
