package anthropicprovider

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

func TestBuildParams_BasicMessage(t *testing.T) {
	messages := []Message{
		{Role: "user", Content: "Hello"},
	}
	params := buildParams(messages, "claude-sonnet-4-5", map[string]any{
		"max_tokens": 512,
	})
	if string(params.Model) != "claude-sonnet-4-5" {
		t.Errorf("Model = %q, want %q", params.Model, "claude-sonnet-4-5")
	}
	if params.MaxTokens != 512 {
		t.Errorf("MaxTokens = %d, want 512", params.MaxTokens)
	}
	if len(params.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(params.Messages))
	}
}

func TestBuildParams_LeadingTurnsBecomeSystem(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "You are a designer, a real team member."},
		{Role: "assistant", Content: "Respond naturally."},
		{Role: "user", Content: "Here are the most recent messages in a Slack DM."},
	}
	params := buildParams(messages, "claude-sonnet-4-5", map[string]any{})
	if len(params.System) != 2 {
		t.Fatalf("len(System) = %d, want 2", len(params.System))
	}
	if params.System[0].Text != "You are a designer, a real team member." {
		t.Errorf("System[0].Text = %q", params.System[0].Text)
	}
	if params.System[1].Text != "Respond naturally." {
		t.Errorf("System[1].Text = %q", params.System[1].Text)
	}
	if len(params.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(params.Messages))
	}
	if params.Messages[0].Role != anthropic.MessageParamRoleUser {
		t.Errorf("Messages[0].Role = %q, want user", params.Messages[0].Role)
	}
}

func TestBuildParams_AssistantAfterUserKept(t *testing.T) {
	messages := []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "how are you"},
	}
	params := buildParams(messages, "claude-sonnet-4-5", map[string]any{"temperature": 0.3})
	if len(params.System) != 0 {
		t.Errorf("len(System) = %d, want 0", len(params.System))
	}
	if len(params.Messages) != 3 {
		t.Fatalf("len(Messages) = %d, want 3", len(params.Messages))
	}
	if params.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want default 1024", params.MaxTokens)
	}
}

func TestParseResponse_StopReasons(t *testing.T) {
	tests := []struct {
		stopReason anthropic.StopReason
		want       string
	}{
		{anthropic.StopReasonEndTurn, "stop"},
		{anthropic.StopReasonMaxTokens, "length"},
		{anthropic.StopReasonStopSequence, "stop"},
	}
	for _, tt := range tests {
		resp := &anthropic.Message{
			StopReason: tt.stopReason,
		}
		result := parseResponse(resp)
		if result.FinishReason != tt.want {
			t.Errorf("StopReason %q: FinishReason = %q, want %q", tt.stopReason, result.FinishReason, tt.want)
		}
	}
}

func TestProvider_ChatRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var reqBody map[string]any
		json.NewDecoder(r.Body).Decode(&reqBody)

		resp := map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"model":       reqBody["model"],
			"stop_reason": "end_turn",
			"content": []map[string]any{
				{"type": "text", "text": "Sure, sending comments in a bit."},
			},
			"usage": map[string]any{
				"input_tokens":  15,
				"output_tokens": 8,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := NewProviderWithClient(createAnthropicTestClient(server.URL, "test-key"))
	messages := []Message{{Role: "user", Content: "can you review my PR?"}}
	resp, err := provider.Chat(t.Context(), messages, "claude-sonnet-4-5", map[string]any{"max_tokens": 256})
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if resp.Content != "Sure, sending comments in a bit." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 23 {
		t.Errorf("TotalTokens = %d, want 23", resp.Usage.TotalTokens)
	}
}

func TestProvider_ChatError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"type":"error","error":{"type":"api_error","message":"down"}}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewProviderWithBaseURL("test-key", server.URL)
	_, err := provider.Chat(t.Context(), []Message{{Role: "user", Content: "hi"}}, "claude-sonnet-4-5", nil)
	if err == nil {
		t.Fatal("Chat() expected error for 500 response")
	}
}

func TestProvider_NewProviderWithBaseURL_NormalizesV1Suffix(t *testing.T) {
	p := NewProviderWithBaseURL("key", "https://api.anthropic.com/v1/")
	if got := p.BaseURL(); got != "https://api.anthropic.com" {
		t.Fatalf("BaseURL() = %q, want %q", got, "https://api.anthropic.com")
	}
}

func createAnthropicTestClient(baseURL, apiKey string) *anthropic.Client {
	c := anthropic.NewClient(
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithBaseURL(baseURL),
	)
	return &c
}
