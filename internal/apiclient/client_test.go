package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/techsite/internal/tokens"
)

// fakeAPI — минимальный REST API: /api/core/items/ отвечает 401 на
// любой access, кроме validAccess; refresh-эндпойнт настраивается.
type fakeAPI struct {
	validAccess string

	refreshStatus int
	refreshBody   string

	calls        atomic.Int32
	refreshCalls atomic.Int32

	mu       sync.Mutex
	auths    []string
	idemKeys []string
	bodies   []string
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(RefreshPath, func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.refreshCalls.Add(1)

		assert.Empty(t, r.Header.Get("Authorization"), "refresh must be unauthenticated")
		assert.Equal(t, http.MethodPost, r.Method)

		var in map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.NotEmpty(t, in["refresh"])

		w.WriteHeader(f.refreshStatus)
		_, _ = io.WriteString(w, f.refreshBody)
	})
	mux.HandleFunc("/api/core/items/", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)

		body, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		f.auths = append(f.auths, r.Header.Get("Authorization"))
		f.idemKeys = append(f.idemKeys, r.Header.Get(HeaderIdempotencyKey))
		f.bodies = append(f.bodies, string(body))
		f.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+f.validAccess {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Given token not valid for any token type","code":"token_not_valid"}`)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"42","title":"ok"}`)
	})

	return mux
}

func newFakeServer(t *testing.T, f *fakeAPI) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	return srv
}

func storeWith(t *testing.T, access, refresh string) *tokens.Memory {
	t.Helper()

	ctx := context.Background()
	st := tokens.NewMemory()
	if access != "" {
		st.Set(ctx, tokens.KeyAccess, access)
	}
	if refresh != "" {
		st.Set(ctx, tokens.KeyRefresh, refresh)
	}
	st.Set(ctx, tokens.KeyUser, `{"id":"1"}`)

	return st
}

func TestRequest_SuccessWithoutRefresh(t *testing.T) {
	t.Parallel()

	f := &fakeAPI{validAccess: "A"}
	srv := newFakeServer(t, f)

	c := New(Options{BaseURL: srv.URL}, storeWith(t, "A", "R"))

	var out struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/api/core/items/", nil, &out))
	require.Equal(t, "42", out.ID)
	require.EqualValues(t, 1, f.calls.Load())
	require.Equal(t, []string{"Bearer A"}, f.auths)
}

func TestRequest_RefreshAndRetry_ThreeCalls(t *testing.T) {
	t.Parallel()

	f := &fakeAPI{validAccess: "A2", refreshStatus: http.StatusOK, refreshBody: `{"access":"A2"}`}
	srv := newFakeServer(t, f)

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	st := storeWith(t, "A1", "R")
	expired := false
	c := New(Options{
		BaseURL:          srv.URL,
		Metrics:          m,
		OnSessionExpired: func(context.Context) { expired = true },
	}, st)

	resp, err := c.Request(context.Background(), http.MethodGet, "/api/core/items/", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	require.JSONEq(t, `{"id":"42","title":"ok"}`, string(resp.Body))

	require.EqualValues(t, 3, f.calls.Load())
	require.EqualValues(t, 1, f.refreshCalls.Load())
	require.Equal(t, []string{"Bearer A1", "Bearer A2"}, f.auths)
	require.False(t, expired)

	access, ok := st.Get(context.Background(), tokens.KeyAccess)
	require.True(t, ok)
	require.Equal(t, "A2", access)

	refresh, _ := st.Get(context.Background(), tokens.KeyRefresh)
	require.Equal(t, "R", refresh)

	require.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues(refreshOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodPost, "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "401")))
}

func TestRequest_RetryStillUnauthorized_NoSecondRefresh(t *testing.T) {
	t.Parallel()

	// refresh выдаёт токен, который API всё равно не принимает.
	f := &fakeAPI{validAccess: "never", refreshStatus: http.StatusOK, refreshBody: `{"access":"A2"}`}
	srv := newFakeServer(t, f)

	st := storeWith(t, "A1", "R")
	c := New(Options{BaseURL: srv.URL}, st)

	_, err := c.Request(context.Background(), http.MethodGet, "/api/core/items/", nil, nil)
	require.Error(t, err)
	require.Equal(t, KindUnauthenticated, KindOf(err))
	require.False(t, errors.Is(err, ErrSessionExpired))

	require.EqualValues(t, 3, f.calls.Load())
	require.EqualValues(t, 1, f.refreshCalls.Load())
}

func TestRequest_RefreshRotatesRefreshToken(t *testing.T) {
	t.Parallel()

	f := &fakeAPI{validAccess: "A2", refreshStatus: http.StatusOK, refreshBody: `{"access":"A2","refresh":"R2"}`}
	srv := newFakeServer(t, f)

	st := storeWith(t, "A1", "R1")
	c := New(Options{BaseURL: srv.URL}, st)

	_, err := c.Request(context.Background(), http.MethodGet, "/api/core/items/", nil, nil)
	require.NoError(t, err)

	refresh, _ := st.Get(context.Background(), tokens.KeyRefresh)
	require.Equal(t, "R2", refresh)
}

func TestRequest_RefreshFails_ClearsStoreAndSignals(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "rejected", status: http.StatusUnauthorized, body: `{"detail":"Token is blacklisted","code":"token_not_valid"}`},
		{name: "server error", status: http.StatusInternalServerError, body: `<html>oops</html>`},
		{name: "no access in body", status: http.StatusOK, body: `{}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := &fakeAPI{validAccess: "A2", refreshStatus: tt.status, refreshBody: tt.body}
			srv := newFakeServer(t, f)

			st := storeWith(t, "A1", "R")
			var signalled atomic.Int32
			c := New(Options{
				BaseURL:          srv.URL,
				OnSessionExpired: func(context.Context) { signalled.Add(1) },
			}, st)

			_, err := c.Request(context.Background(), http.MethodGet, "/api/core/items/", nil, nil)
			require.Error(t, err)
			require.ErrorIs(t, err, ErrSessionExpired)
			require.Equal(t, "your session has expired, please log in again", Message(err))

			require.EqualValues(t, 2, f.calls.Load(), "no retry after failed refresh")
			require.EqualValues(t, 1, signalled.Load())
			require.Zero(t, st.Len())

			for _, k := range []string{tokens.KeyAccess, tokens.KeyRefresh, tokens.KeyUser} {
				_, ok := st.Get(context.Background(), k)
				require.False(t, ok, k)
			}
		})
	}
}

func TestRequest_NoRefreshToken_ReturnsOriginal401(t *testing.T) {
	t.Parallel()

	f := &fakeAPI{validAccess: "A2", refreshStatus: http.StatusOK, refreshBody: `{"access":"A2"}`}
	srv := newFakeServer(t, f)

	st := storeWith(t, "A1", "")
	expired := false
	c := New(Options{BaseURL: srv.URL, OnSessionExpired: func(context.Context) { expired = true }}, st)

	_, err := c.Request(context.Background(), http.MethodGet, "/api/core/items/", nil, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, KindUnauthenticated, apiErr.Kind)
	require.Equal(t, "Given token not valid for any token type", apiErr.Message)

	require.EqualValues(t, 1, f.calls.Load())
	require.Zero(t, f.refreshCalls.Load())
	require.False(t, expired)

	// Хранилище не тронуто.
	access, ok := st.Get(context.Background(), tokens.KeyAccess)
	require.True(t, ok)
	require.Equal(t, "A1", access)
}

func TestRequest_NoAccessToken_StillRefreshes(t *testing.T) {
	t.Parallel()

	f := &fakeAPI{validAccess: "A2", refreshStatus: http.StatusOK, refreshBody: `{"access":"A2"}`}
	srv := newFakeServer(t, f)

	c := New(Options{BaseURL: srv.URL}, storeWith(t, "", "R"))

	_, err := c.Request(context.Background(), http.MethodGet, "/api/core/items/", nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"", "Bearer A2"}, f.auths)
}

func TestRequest_RetryResendsSameBodyAndIdempotencyKey(t *testing.T) {
	t.Parallel()

	f := &fakeAPI{validAccess: "A2", refreshStatus: http.StatusOK, refreshBody: `{"access":"A2"}`}
	srv := newFakeServer(t, f)

	c := New(Options{BaseURL: srv.URL}, storeWith(t, "A1", "R"))

	_, err := c.Request(context.Background(), http.MethodPost, "/api/core/items/",
		map[string]string{"content": "hello"}, nil)
	require.NoError(t, err)

	require.Len(t, f.idemKeys, 2)
	require.NotEmpty(t, f.idemKeys[0])
	require.Equal(t, f.idemKeys[0], f.idemKeys[1])
	require.Equal(t, f.bodies[0], f.bodies[1])
	require.JSONEq(t, `{"content":"hello"}`, f.bodies[0])
}

func TestRequest_IdempotencyKey(t *testing.T) {
	t.Parallel()

	f := &fakeAPI{validAccess: "A"}
	srv := newFakeServer(t, f)
	c := New(Options{BaseURL: srv.URL}, storeWith(t, "A", "R"))
	ctx := context.Background()

	_, err := c.Request(ctx, http.MethodGet, "/api/core/items/", nil, nil)
	require.NoError(t, err)
	_, err = c.Request(ctx, http.MethodPost, "/api/core/items/", map[string]string{"a": "b"}, nil)
	require.NoError(t, err)
	_, err = c.Request(ctx, http.MethodPost, "/api/core/items/", map[string]string{"a": "b"}, nil)
	require.NoError(t, err)
	_, err = c.Request(ctx, http.MethodDelete, "/api/core/items/", nil,
		http.Header{HeaderIdempotencyKey: []string{"fixed"}})
	require.NoError(t, err)

	require.Empty(t, f.idemKeys[0], "GET carries no key")
	require.NotEmpty(t, f.idemKeys[1])
	require.NotEqual(t, f.idemKeys[1], f.idemKeys[2], "key is per logical request")
	require.Equal(t, "fixed", f.idemKeys[3])
}

func TestPublic_NeverSendsBearerNorRefreshes(t *testing.T) {
	t.Parallel()

	f := &fakeAPI{validAccess: "A", refreshStatus: http.StatusOK, refreshBody: `{"access":"A"}`}
	srv := newFakeServer(t, f)

	c := NewPublic(Options{BaseURL: srv.URL + "/"})
	require.False(t, c.Authenticated())

	_, err := c.Request(context.Background(), http.MethodGet, "api/core/items/", nil, nil)
	require.Error(t, err)
	require.Equal(t, KindUnauthenticated, KindOf(err))

	require.EqualValues(t, 1, f.calls.Load())
	require.Zero(t, f.refreshCalls.Load())
	require.Equal(t, []string{""}, f.auths)
}

func TestRequest_TransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	st := storeWith(t, "A", "R")
	c := New(Options{BaseURL: url}, st)

	_, err := c.Request(context.Background(), http.MethodGet, "/api/core/items/", nil, nil)
	require.Error(t, err)
	require.Equal(t, KindTransport, KindOf(err))
	require.Equal(t, genericMessage(KindTransport), Message(err))

	// Сетевой сбой не гасит сессию.
	require.Equal(t, 3, st.Len())
}

func TestRequest_ConcurrentRequestsAreIndependent(t *testing.T) {
	t.Parallel()

	f := &fakeAPI{validAccess: "A"}
	srv := newFakeServer(t, f)
	c := New(Options{BaseURL: srv.URL}, storeWith(t, "A", "R"))

	errs := make(chan error, 16)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Request(context.Background(), http.MethodGet, "/api/core/items/", nil, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	require.EqualValues(t, 16, f.calls.Load())
}

func TestDo_NoContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	c := NewPublic(Options{BaseURL: srv.URL})

	var out map[string]any
	require.NoError(t, c.Do(context.Background(), http.MethodDelete, "/x/", nil, &out))
	require.Nil(t, out)
}

func TestNewHTTPClient_SetsUserAgent(t *testing.T) {
	t.Parallel()

	var ua, rid string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.UserAgent()
		rid = r.Header.Get("X-Request-Id")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := NewPublic(Options{BaseURL: srv.URL, HTTPClient: NewHTTPClient(HTTPOptions{UserAgent: "techsite-test"})})
	_, err := c.Request(context.Background(), http.MethodGet, "/", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "techsite-test", ua)
	require.NotEmpty(t, rid)
}
