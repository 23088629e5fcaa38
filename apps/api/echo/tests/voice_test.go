package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/voice"
)

func withLiveKit(conf *core.Config) {
	conf.LiveKit = core.LiveKitConfig{
		URL:       "wss://rtc.test.cd",
		APIKey:    "APIkey",
		APISecret: "livekit-secret",
		AgentName: "tutor",
	}
}

func Test_voiceApi_createSession_errors(t *testing.T) {
	unconfigured := setup(t)
	runHTTPTests(t, unconfigured, []httpTest{
		{
			name: "missing config", method: http.MethodPost, path: "/api/voice/session",
			body:     []byte(`{"room":"r1","identity":"u1"}`),
			wantCode: http.StatusInternalServerError,
			wantData: marshallObj(t, httpErr{
				Error: "server misconfigured: missing LIVEKIT_API_KEY, LIVEKIT_API_SECRET, LIVEKIT_URL",
			}),
		},
	})

	app := setup(t, withLiveKit)
	runHTTPTests(t, app, []httpTest{
		{
			name: "missing room", method: http.MethodPost, path: "/api/voice/session",
			body:     []byte(`{"identity":"u1"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpFieldsErr{
				Error:  "room: this field is required",
				Fields: map[string]string{"room": "this field is required"},
			}),
		},
		{
			name: "blank identity", method: http.MethodPost, path: "/api/voice/session",
			body:     []byte(`{"room":"r1","identity":"   "}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpFieldsErr{
				Error:  "identity: this field is required",
				Fields: map[string]string{"identity": "this field is required"},
			}),
		},
		{
			name: "empty body", method: http.MethodPost, path: "/api/voice/session",
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpFieldsErr{
				Error: "room: this field is required",
				Fields: map[string]string{
					"room":     "this field is required",
					"identity": "this field is required",
				},
			}),
		},
		{
			name: "malformed body", method: http.MethodPost, path: "/api/voice/session",
			body:     []byte(`{"room":`),
			wantCode: http.StatusBadRequest,
		},
	})
}

func Test_voiceApi_createSession(t *testing.T) {
	app := setup(t, withLiveKit)

	tests := []struct {
		name    string
		body    string
		wantTTL int64
	}{
		{"default ttl", `{"room":"r1","identity":"u1","name":"Ada"}`, 900},
		{"short ttl clamped", `{"room":"r1","identity":"u1","ttl_seconds":5}`, 60},
		{"long ttl clamped", `{"room":"r1","identity":"u1","ttl_seconds":86400}`, 3600},
		{"ttl in range", `{"room":"r1","identity":"u1","ttl_seconds":120}`, 120},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/voice/session", []byte(tc.body))
			app.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var sess voice.Session
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
			assert.Equal(t, "wss://rtc.test.cd", sess.URL)

			claims, err := voice.ParseToken(sess.Token, "livekit-secret")
			require.NoError(t, err)
			assert.Equal(t, "APIkey", claims.Issuer)
			assert.Equal(t, "u1", claims.Subject)
			assert.Equal(t, tc.wantTTL, claims.ExpiresAt-claims.NotBefore)
			require.NotNil(t, claims.Video)
			assert.Equal(t, voice.VideoGrant{
				Room: "r1", RoomJoin: true, CanPublish: true, CanPublishData: true, CanSubscribe: true,
			}, *claims.Video)
			require.NotNil(t, claims.RoomConfig)
			assert.Equal(t, "tutor", claims.RoomConfig.Agents[0].AgentName)
		})
	}
}

func Test_voiceApi_createSession_freshTokens(t *testing.T) {
	app := setup(t, withLiveKit)
	body := []byte(`{"room":"r1","identity":"u1"}`)

	tokens := make(map[string]bool)
	for i := 0; i < 3; i++ {
		req, rec := newRequest(http.MethodPost, "/api/voice/session", body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var sess voice.Session
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
		tokens[sess.Token] = true
	}
	assert.Len(t, tokens, 3)
}

func Test_voiceApi_startBot(t *testing.T) {
	app := setup(t, withLiveKit)
	runHTTPTests(t, app, []httpTest{
		{
			name: "skipped without orchestrator", method: http.MethodPost, path: "/api/voice/start-bot",
			body:     []byte(`{"room":"r1"}`),
			wantData: []byte(`{"status":"skipped","reason":"agent dispatched via token"}`),
		},
		{
			name: "room required", method: http.MethodPost, path: "/api/voice/start-bot",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
		},
	})

	bot := newBackend(t, jsonHandler(http.StatusOK, `{"bot_id":"b1"}`))
	withBot := setup(t, withLiveKit, func(conf *core.Config) { conf.LiveKit.BotURL = bot.URL + "/start" })
	runHTTPTests(t, withBot, []httpTest{
		{
			name: "relayed to orchestrator", method: http.MethodPost, path: "/api/voice/start-bot",
			body:     []byte(`{"room":"r1"}`),
			wantData: []byte(`{"bot_id":"b1"}`),
		},
	})
	assert.Equal(t, "/start", bot.seen().path)
	assert.JSONEq(t, `{"room":"r1","agent_name":"tutor"}`, bot.seen().body)

	failing := newBackend(t, jsonHandler(http.StatusInternalServerError, `{"detail":"boom"}`))
	withFailingBot := setup(t, withLiveKit, func(conf *core.Config) { conf.LiveKit.BotURL = failing.URL })
	runHTTPTests(t, withFailingBot, []httpTest{
		{
			name: "orchestrator failure", method: http.MethodPost, path: "/api/voice/start-bot",
			body:     []byte(`{"room":"r1"}`),
			wantCode: http.StatusBadGateway,
			wantData: marshallObj(t, httpErr{Error: "voice orchestrator responded with status 500"}),
		},
	})
}
