package run

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/teammate/pkg/bus"
	"github.com/tinyland-inc/teammate/pkg/channels"
	"github.com/tinyland-inc/teammate/pkg/config"
	"github.com/tinyland-inc/teammate/pkg/transcript"
)

func TestNewRunCommand(t *testing.T) {
	cmd := NewRunCommand()

	require.NotNil(t, cmd)

	assert.Equal(t, "run [profile]", cmd.Use)
	assert.Equal(t, []string{"r"}, cmd.Aliases)
	assert.True(t, cmd.HasExample())
	assert.False(t, cmd.HasSubCommands())

	assert.Nil(t, cmd.Run)
	assert.NotNil(t, cmd.RunE)

	assert.NotNil(t, cmd.Flags().Lookup("debug"))
	assert.NoError(t, cmd.Args(cmd, []string{"alice"}))
	assert.Error(t, cmd.Args(cmd, []string{"alice", "bob"}))
}

func fakeAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "user_id": "UBOT"})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Outreach.DirectSchedule = "sometimes"
	slackChannel := channels.NewSlackChannel(cfg.Slack, bus.NewMessageBus())

	_, err := newScheduler(cfg, slackChannel, transcript.NewAssembler(slackChannel, 20), nil, "UBOT", nil)
	assert.ErrorContains(t, err, "OUTREACH_DM_SCHEDULE")
}

func TestNewScheduler_AcceptsCron(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Outreach.ChannelSchedule = "@hourly"
	cfg.Outreach.DirectSchedule = "0 */3 * * *"
	slackChannel := channels.NewSlackChannel(cfg.Slack, bus.NewMessageBus())

	s, err := newScheduler(cfg, slackChannel, transcript.NewAssembler(slackChannel, 20), nil, "UBOT", nil)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestHealthServer_ReadyAfterIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	server := fakeAuthServer(t)
	slackChannel := channels.NewSlackChannel(cfg.Slack, bus.NewMessageBus(), slack.OptionAPIURL(server.URL+"/"))
	h := newHealthServer(cfg, slackChannel).Handler()

	ready := func() int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		return rec.Code
	}
	assert.Equal(t, http.StatusServiceUnavailable, ready())

	_, err := slackChannel.ResolveSelfIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, ready(), "still not running")

	slackChannel.SetRunning(true)
	assert.Equal(t, http.StatusOK, ready())
}
