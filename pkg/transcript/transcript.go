// Package transcript renders recent conversation history into the plain-text
// context block handed to the language model.
package transcript

import (
	"context"
	"slices"
	"strings"
)

// DefaultLimit is how many recent messages are fetched per conversation.
const DefaultLimit = 20

// Message is one history entry. An empty Text means the message carried no
// text payload (file share, join notice, ...).
type Message struct {
	Author string
	Text   string
}

// Fetcher returns up to limit of the most recent messages of a conversation,
// newest first.
type Fetcher interface {
	FetchRecentMessages(ctx context.Context, handle string, limit int) ([]Message, error)
}

// FetchError reports that history for Handle could not be retrieved.
type FetchError struct {
	Handle string
	Err    error
}

func (e *FetchError) Error() string {
	return "fetching history for " + e.Handle + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

type Assembler struct {
	fetcher Fetcher
	limit   int
}

func NewAssembler(fetcher Fetcher, limit int) *Assembler {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Assembler{fetcher: fetcher, limit: limit}
}

// Assemble fetches the recent history of handle and renders it oldest first.
// An empty string is a valid result meaning "no history".
func (a *Assembler) Assemble(ctx context.Context, handle string) (string, error) {
	msgs, err := a.fetcher.FetchRecentMessages(ctx, handle, a.limit)
	if err != nil {
		return "", &FetchError{Handle: handle, Err: err}
	}
	return Render(msgs), nil
}

// Render turns a newest-first message list into "author: text" lines,
// oldest first, skipping messages without text.
func Render(newestFirst []Message) string {
	lines := make([]string, 0, len(newestFirst))
	for _, m := range newestFirst {
		if m.Text == "" {
			continue
		}
		lines = append(lines, m.Author+": "+m.Text)
	}
	slices.Reverse(lines)
	return strings.Join(lines, "\n")
}
