// Package responder asks the language model for the next message in a
// conversation, in the voice of the configured persona.
package responder

import (
	"context"
	"fmt"
	"strings"

	"github.com/tinyland-inc/teammate/pkg/logger"
	"github.com/tinyland-inc/teammate/pkg/providers/protocoltypes"
)

// EndSentinel is the model's way of saying the conversation is over.
const EndSentinel = "end"

// StyleInstruction is sent with every request, independent of persona.
const StyleInstruction = "Respond with a Slack message that fits the entire conversation. " +
	"Pay attention to any asks of you or questions that aren't adequately answered, and prioritize more recent messages. " +
	"Don't explain that you will respond; respond as if you were already a participant in the conversation. " +
	"Avoid generic or robotic replies. Be professional but casual, you're talking with peers. " +
	"To reference a participant, use the tag syntax <@USER_ID> with their identifier. " +
	"If the conversation has reached a natural end, reply with exactly one word: end."

// SystemPrompt is the persona line that opens every request.
func SystemPrompt(persona string) string {
	return fmt.Sprintf("You are a %s, a real team member.", persona)
}

// Provider is the subset of providers.LLMProvider the generator needs.
type Provider interface {
	Chat(ctx context.Context, messages []protocoltypes.Message, model string, options map[string]any) (*protocoltypes.LLMResponse, error)
}

// InferenceError reports a failed or malformed model call.
type InferenceError struct {
	Model string
	Err   error
}

func (e *InferenceError) Error() string {
	return "inference with " + e.Model + ": " + e.Err.Error()
}

func (e *InferenceError) Unwrap() error { return e.Err }

type Options struct {
	Persona     string
	Model       string
	MaxTokens   int
	Temperature *float64
}

type Generator struct {
	provider Provider
	opts     Options
}

func New(provider Provider, opts Options) *Generator {
	return &Generator{provider: provider, opts: opts}
}

// Generate returns the trimmed model reply and ok=true, or ok=false when the
// model answered with the end sentinel or nothing at all.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, bool, error) {
	messages := []protocoltypes.Message{
		{Role: "system", Content: SystemPrompt(g.opts.Persona)},
		{Role: "assistant", Content: StyleInstruction},
		{Role: "user", Content: prompt},
	}

	options := map[string]any{}
	if g.opts.MaxTokens > 0 {
		options["max_tokens"] = g.opts.MaxTokens
	}
	if g.opts.Temperature != nil {
		options["temperature"] = *g.opts.Temperature
	}

	resp, err := g.provider.Chat(ctx, messages, g.opts.Model, options)
	if err != nil {
		return "", false, &InferenceError{Model: g.opts.Model, Err: err}
	}
	if resp == nil {
		return "", false, &InferenceError{Model: g.opts.Model, Err: fmt.Errorf("empty response")}
	}

	if resp.Usage != nil {
		logger.DebugCF("responder", "Completion received", map[string]any{
			"model":             g.opts.Model,
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
			"finish_reason":     resp.FinishReason,
		})
	}

	return Interpret(resp.Content)
}

// Interpret applies the reply post-processing: trim, then treat the end
// sentinel (case-sensitive) and empty output as "no reply".
func Interpret(raw string) (string, bool, error) {
	reply := strings.TrimSpace(raw)
	if reply == "" || reply == EndSentinel {
		return "", false, nil
	}
	return reply, true, nil
}
