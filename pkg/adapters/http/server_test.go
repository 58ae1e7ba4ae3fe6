package http

import (
	"bufio"
	"bytes"
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

	"github.com/aretw0/harness"
	"github.com/aretw0/harness/internal/logging"
	"github.com/aretw0/harness/pkg/ports"
	"github.com/aretw0/harness/pkg/session"
)

func newTestServer(t *testing.T, opts ...Option) (http.Handler, *session.Manager) {
	t.Helper()
	sessions := session.NewManager(func() (*harness.Harness, error) {
		return harness.New(harness.WithEngineName("eval"))
	})
	opts = append([]Option{WithLogger(logging.NewNop())}, opts...)
	handler, err := NewHandler(sessions, opts...)
	require.NoError(t, err)
	return handler, sessions
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func TestGetSwagger(t *testing.T) {
	doc, err := GetSwagger()
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", doc.Info.Version)
	assert.NotNil(t, doc.Paths.Find("/sessions/{id}/run"))
}

func TestEvaluate(t *testing.T) {
	h, _ := newTestServer(t)

	w := do(t, h, "POST", "/evaluate", map[string]string{"input": "(+ 1 2)"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "3", body["output"])
	assert.Equal(t, float64(1), body["sequence"])

	w = do(t, h, "POST", "/evaluate", map[string]string{"input": "(+ 1"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body = decodeBody(t, w)
	assert.Contains(t, body["error"], "unexpected end of input")
	assert.True(t, strings.HasPrefix(body["output"].(string), "error: "))
}

func TestEvaluate_Validation(t *testing.T) {
	h, _ := newTestServer(t)

	w := do(t, h, "POST", "/evaluate", map[string]int{"input": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "POST", "/evaluate", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "input is required")
}

func TestEvaluate_BodyLimit(t *testing.T) {
	h, _ := newTestServer(t, WithMaxBodyBytes(32))

	w := do(t, h, "POST", "/evaluate", map[string]string{"input": strings.Repeat("1 ", 64)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
}

func TestSessionLifecycle(t *testing.T) {
	h, sessions := newTestServer(t)

	w := do(t, h, "POST", "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeBody(t, w)["id"].(string)
	base := "/sessions/" + id

	w = do(t, h, "PUT", base+"/input", map[string]string{"input": "(defn x () 2) (* x 21)"})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = do(t, h, "GET", base+"/input", nil)
	assert.Equal(t, "(defn x () 2) (* x 21)", decodeBody(t, w)["input"])

	w = do(t, h, "GET", base+"/output", nil)
	assert.Equal(t, "", decodeBody(t, w)["output"], "editing does not evaluate")

	w = do(t, h, "POST", base+"/run", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "42", body["output"])
	assert.Equal(t, true, body["rendered"])

	w = do(t, h, "GET", base+"/output", nil)
	assert.Equal(t, "42", decodeBody(t, w)["output"])

	w = do(t, h, "GET", "/sessions", nil)
	assert.Equal(t, []any{id}, decodeBody(t, w)["sessions"])

	w = do(t, h, "DELETE", base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, sessions.Len())

	w = do(t, h, "GET", base+"/output", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, h, "POST", base+"/run", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunSession_Failure(t *testing.T) {
	h, sessions := newTestServer(t)
	id, _, err := sessions.Create(context.Background())
	require.NoError(t, err)
	require.NoError(t, sessions.SetInput(context.Background(), id, "(/ 1 0)"))

	w := do(t, h, "POST", "/sessions/"+id+"/run", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeBody(t, w)
	assert.Contains(t, body["error"], "division by zero")
	assert.Contains(t, body["output"], "error: ")
}

func TestHealthAndInfo(t *testing.T) {
	h, _ := newTestServer(t)

	w := do(t, h, "GET", "/health", nil)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])

	w = do(t, h, "GET", "/info", nil)
	body := decodeBody(t, w)
	assert.Equal(t, harness.Version, body["version"])
	assert.Equal(t, "1.0.0", body["api_version"])

	w = do(t, h, "GET", "/openapi.yaml", nil)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")
}

func TestUndocumentedRoutesReachRouter(t *testing.T) {
	h, _ := newTestServer(t)

	w := do(t, h, "PATCH", "/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code, w.Body.String())

	w = do(t, h, "GET", "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
}

func TestMetricsMounted(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("harness_evaluations_total 0\n"))
	})
	h, _ := newTestServer(t, WithMetrics(metrics))

	w := do(t, h, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "harness_evaluations_total")
}

func TestSubscribeEvents(t *testing.T) {
	h, sessions := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	id, _, err := sessions.Create(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/sessions/"+id+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				return event, data
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
	}

	event, _ := readEvent()
	require.Equal(t, "ping", event)

	require.NoError(t, sessions.SetInput(ctx, id, "(defn a () 1)"))
	_, err = sessions.Run(ctx, id)
	require.NoError(t, err)

	event, data := readEvent()
	assert.Equal(t, "output", event)
	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(data), &payload))
	assert.Equal(t, "{\n    \"a\": 1\n}", payload["output"])
}

func TestSubscribeEvents_UnknownSession(t *testing.T) {
	h, _ := newTestServer(t)
	w := do(t, h, "GET", "/sessions/missing/events", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// gatedServer evaluates by waiting for release, then reporting whether its
// context was still live.
func gatedServer(t *testing.T) (http.Handler, *session.Manager, <-chan struct{}, chan<- struct{}) {
	t.Helper()
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	sessions := session.NewManager(func() (*harness.Harness, error) {
		return harness.New(harness.WithEngine(ports.EngineFunc(func(ctx context.Context, input string) (any, error) {
			started <- struct{}{}
			<-release
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return "done", nil
		})))
	})
	handler, err := NewHandler(sessions, WithLogger(logging.NewNop()))
	require.NoError(t, err)
	return handler, sessions, started, release
}

// serveCancelled serves req and cancels its context once the engine has started.
func serveCancelled(h http.Handler, req *http.Request, started <-chan struct{}, release chan<- struct{}) *httptest.ResponseRecorder {
	ctx, cancel := context.WithCancel(req.Context())
	w := httptest.NewRecorder()
	served := make(chan struct{})
	go func() {
		defer close(served)
		h.ServeHTTP(w, req.WithContext(ctx))
	}()
	<-started
	cancel()
	close(release)
	<-served
	return w
}

func TestRunSession_OutlivesClient(t *testing.T) {
	h, sessions, started, release := gatedServer(t)
	id, _, err := sessions.Create(context.Background())
	require.NoError(t, err)

	w := serveCancelled(h, httptest.NewRequest("POST", "/sessions/"+id+"/run", nil), started, release)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	sh, err := sessions.Get(id)
	require.NoError(t, err)
	assert.Equal(t, `"done"`, sh.Output(), "a client going away does not cancel the evaluation")
}

func TestEvaluate_OutlivesClient(t *testing.T) {
	h, _, started, release := gatedServer(t)

	req := httptest.NewRequest("POST", "/evaluate", strings.NewReader(`{"input": "x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := serveCancelled(h, req, started, release)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, `"done"`, decodeBody(t, w)["output"])
}
