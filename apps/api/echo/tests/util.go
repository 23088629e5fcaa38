package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/images"
	"github.com/trezcool/academia/core/role"
	"github.com/trezcool/academia/core/social"
	"github.com/trezcool/academia/core/telemetry"
	"github.com/trezcool/academia/core/voice"
	"github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/services/metrics"
	"github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/tests"
)

const testSecretKey = "test-secret-key"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	*Server
	conf    *core.Config
	metrics *metricsvc.Metrics
	social  *social.Service
}

func newTestConfig() *core.Config {
	return &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Academia",
		SecretKey: testSecretKey,
		Server: core.ServerConfig{
			DisableReqLogs:     true,
			JWTExpirationDelta: time.Hour,
			AllowedOrigins:     []string{"*"},
		},
		Backend: core.BackendConfig{APIURL: core.DefaultBackendAPIURL},
		Images:  core.ImagesConfig{RateLimit: 100},
	}
}

// setup builds a Server over in-memory storage; mods adjust the test config first.
func setup(t *testing.T, mods ...func(conf *core.Config)) *testApp {
	t.Helper()

	conf := newTestConfig()
	for _, mod := range mods {
		mod(conf)
	}

	validate, translator := testutil.NewValidator()
	db := inmemdb.Open()
	socialSvc := social.NewService(inmemdb.NewSocialRepository(db))
	metrics := metricsvc.NewMetrics(conf.AppName, "api")

	server := NewServer(
		ServerDeps{
			Conf:       conf,
			Logger:     logsvc.NewDiscardLogger(),
			Metrics:    metrics,
			Validate:   validate,
			Translator: translator,
			SocialSvc:  socialSvc,
			RoleSvc:    role.NewService(inmemdb.NewMetadataRepository(db)),
			VoiceSvc:   voice.NewService(conf.LiveKit, nil),
			Images:     images.NewClient(conf.Images, nil),
			Telemetry:  telemetry.NewForwarder(conf.Telemetry, nil),
		},
	)
	return &testApp{Server: server, conf: conf, metrics: metrics, social: socialSvc}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpFieldsErr struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, userID string) string {
	claims := NewUserClaims(conf, userID, "Test User", userID+"@test.cd")
	token, err := GenerateToken(claims, conf.SecretKey)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func marshallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code, "code")
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if assert.NoError(t, err, "jsonBytesEqual() failed to compare") {
		assert.True(t, ok, "data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app http.Handler, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
