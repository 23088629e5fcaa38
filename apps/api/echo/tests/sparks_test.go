package tests

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/social"
)

func Test_sparksApi_query(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	t1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	s1, err := app.social.CreateSpark(ctx, social.NewSpark{ID: "s1", Question: "first?", CreatedAt: &t1})
	require.NoError(t, err)
	s2, err := app.social.CreateSpark(ctx, social.NewSpark{ID: "s2", Question: "second?", CreatedAt: &t1})
	require.NoError(t, err)

	runHTTPTests(t, app, []httpTest{
		{name: "most recent first", path: "/api/sparks", wantData: marshallList(t, s2, s1)},
		{name: "retrieve", path: "/api/sparks/s1", wantData: marshallObj(t, s1)},
		{
			name: "retrieve unknown", path: "/api/sparks/nope",
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "spark not found"}),
		},
		{name: "no echoes", path: "/api/sparks/s1/echoes", wantData: marshallList(t)},
		{name: "unknown spark echoes", path: "/api/sparks/nope/echoes", wantData: marshallList(t)},
	})
}

func Test_sparksApi_empty(t *testing.T) {
	app := setup(t)
	runHTTPTests(t, app, []httpTest{
		{name: "empty list", path: "/api/sparks", wantData: []byte(`[]`)},
	})
}

func Test_sparksApi_create(t *testing.T) {
	app := setup(t)

	runHTTPTests(t, app, []httpTest{
		{
			name: "question required", method: http.MethodPost, path: "/api/sparks",
			body:     []byte(`{"thesis_id":"t1"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpFieldsErr{
				Error:  "question: this field is required",
				Fields: map[string]string{"question": "this field is required"},
			}),
		},
		{
			name: "negative counter", method: http.MethodPost, path: "/api/sparks",
			body:     []byte(`{"question":"q","echo_count":-1}`),
			wantCode: http.StatusBadRequest,
		},
	})

	req, rec := newRequest(http.MethodPost, "/api/sparks", []byte(`{"thesis_id":"t1","author_id":"u1","question":"  Why?  "}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var spk social.Spark
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spk))
	assert.NotEmpty(t, spk.ID)
	assert.Equal(t, "Why?", spk.Question)
	assert.Equal(t, "t1", spk.ThesisID)
	assert.Equal(t, 0, spk.EchoCount)
	assert.Equal(t, 0, spk.ContinuedCount)
	assert.WithinDuration(t, time.Now(), spk.CreatedAt, time.Minute)

	runHTTPTests(t, app, []httpTest{
		{name: "created spark listed", path: "/api/sparks", wantData: marshallList(t, spk)},
	})
}

func Test_sparksApi_createEcho(t *testing.T) {
	app := setup(t)
	spk, err := app.social.CreateSpark(context.Background(), social.NewSpark{ID: "s1", Question: "q"})
	require.NoError(t, err)

	runHTTPTests(t, app, []httpTest{
		{
			name: "text required", method: http.MethodPost, path: "/api/sparks/s1/echoes",
			body:     []byte(`{"author_id":"u1","text":" "}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpFieldsErr{
				Error:  "text: this field may not be blank",
				Fields: map[string]string{"text": "this field may not be blank"},
			}),
		},
	})

	var echoes []social.Echo
	for _, text := range []string{"first", "second"} {
		req, rec := newRequest(http.MethodPost, "/api/sparks/s1/echoes", []byte(`{"author_id":"u1","text":"`+text+`"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var ech social.Echo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ech))
		assert.Equal(t, "s1", ech.SparkID)
		assert.Equal(t, text, ech.Text)
		assert.Nil(t, ech.ParentID)
		echoes = append(echoes, ech)
	}

	spk.EchoCount = 2
	runHTTPTests(t, app, []httpTest{
		{name: "echo count bumped", path: "/api/sparks/s1", wantData: marshallObj(t, spk)},
		{name: "echoes in order", path: "/api/sparks/s1/echoes", wantData: marshallList(t, echoes[0], echoes[1])},
	})

	// echoes to unknown sparks are kept but touch no spark
	req, rec := newRequest(http.MethodPost, "/api/sparks/ghost/echoes", []byte(`{"text":"anyone?"}`))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func Test_sparksApi_metrics(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodGet, "/api/sparks/nope")
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	scrape := httptest.NewRecorder()
	app.metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(scrape.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body),
		`academia_api_api_error{method="GET",route="/api/sparks/:sparkId",status="404"} 1`), string(body))
}
