package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, nil)
	assert.Equal(t, DefaultTimeout, client.DefaultRequestTimeout())
	assert.Equal(t, defaultUserAgent, client.userAgent)

	custom := newTestClient(t, &Config{DefaultTimeout: 5 * time.Second, UserAgent: "custom"})
	assert.Equal(t, 5*time.Second, custom.DefaultRequestTimeout())
	assert.Equal(t, "custom", custom.userAgent)
}

func TestPostJSON(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "/images/cat.jpg", body["image_path"])
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"success":true}`)
	})

	client := newTestClient(t, nil)
	resp, err := client.PostJSON(t.Context(), server.URL, map[string]string{"image_path": "/images/cat.jpg"})
	require.NoError(t, err)
	defer closeResponseBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(data))
}

func TestDo_DefaultTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	client := newTestClient(t, &Config{DefaultTimeout: 50 * time.Millisecond})
	req, err := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	start := time.Now()
	resp, err := client.Do(context.Background(), req)
	closeResponseBody(t, resp)
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDo_ContextCancellation(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	client := newTestClient(t, nil)
	ctx, cancel := context.WithCancel(t.Context())
	time.AfterFunc(20*time.Millisecond, cancel)

	req, err := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	resp, err := client.Do(ctx, req)
	closeResponseBody(t, resp)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDo_NilRequest(t *testing.T) {
	t.Parallel()

	_, err := newTestClient(t, nil).Do(t.Context(), nil)
	require.Error(t, err)
}

func TestAfterResponseHook(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, "http://mock.local/analyze",
		httpmock.NewStringResponder(http.StatusTeapot, `{}`))

	client := newTestClient(t, &Config{Transport: transport})

	var calls atomic.Int32
	var lastStatus atomic.Int32
	client.SetAfterResponseHook(func(_ *http.Request, resp *http.Response, elapsed time.Duration, err error) {
		calls.Add(1)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, elapsed, time.Duration(0))
		lastStatus.Store(int32(resp.StatusCode))
	})

	resp, err := client.PostJSON(t.Context(), "http://mock.local/analyze", struct{}{})
	require.NoError(t, err)
	closeResponseBody(t, resp)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(http.StatusTeapot), lastStatus.Load())
	assert.Equal(t, 1, transport.GetTotalCallCount())
}
