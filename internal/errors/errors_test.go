package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/techsite/internal/apiclient"
	"github.com/pribylovaa/techsite/internal/session"
	"github.com/pribylovaa/techsite/internal/site"
)

func TestToHTTP_KindMapping(t *testing.T) {
	tcs := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantCode   string
	}{
		{"validation", 400, `{"email":["bad"]}`, http.StatusBadRequest, "invalid_argument"},
		{"unauth", 401, `{"detail":"x"}`, http.StatusUnauthorized, "unauthenticated"},
		{"forbidden", 403, `{"detail":"x"}`, http.StatusForbidden, "permission_denied"},
		{"not_found", 404, ``, http.StatusNotFound, "not_found"},
		{"conflict", 409, ``, http.StatusConflict, "already_exists"},
		{"rate_limited", 429, ``, http.StatusTooManyRequests, "resource_exhausted"},
		{"server", 500, `<html>`, http.StatusBadGateway, "upstream_error"},
		{"unknown", 418, ``, http.StatusInternalServerError, "internal"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := fmt.Errorf("op: %w", apiclient.ParseError(tc.status, []byte(tc.body)))

			gotStatus, resp := ToHTTP(err)
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestToHTTP_ValidationCarriesFields(t *testing.T) {
	err := apiclient.ParseError(http.StatusBadRequest,
		[]byte(`{"password":["Too short."],"non_field_errors":["Passwords do not match."]}`))

	st, resp := ToHTTP(err)
	require.Equal(t, http.StatusBadRequest, st)
	require.Equal(t, "Passwords do not match.; password: Too short.", resp.Error.Message)
	require.Equal(t, []string{"Too short."}, resp.Error.Fields["password"])
}

func TestToHTTP_SessionExpired(t *testing.T) {
	err := fmt.Errorf("apiclient.Request: %w: %w", apiclient.ErrSessionExpired,
		apiclient.ParseError(http.StatusUnauthorized, []byte(`{"detail":"Token is blacklisted"}`)))

	st, resp := ToHTTP(err)
	require.Equal(t, http.StatusUnauthorized, st)
	require.Equal(t, CodeSessionExpired, resp.Error.Code)
}

func TestToHTTP_TransportAndContext(t *testing.T) {
	refused := &url.Error{Op: "Get", URL: "http://x", Err: fmt.Errorf("connection refused")}
	deadline := &url.Error{Op: "Get", URL: "http://x", Err: context.DeadlineExceeded}

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"transport", transport(t, refused), http.StatusServiceUnavailable, "unavailable"},
		{"transport deadline", transport(t, deadline), http.StatusGatewayTimeout, "deadline_exceeded"},
		{"canceled", fmt.Errorf("op: %w", context.Canceled), StatusClientClosedRequest, "canceled"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, resp := ToHTTP(tc.err)
			require.Equal(t, tc.wantStatus, st)
			require.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

// transport получает настоящую транспортную ошибку клиента через RoundTripper.
func transport(t *testing.T, cause error) error {
	t.Helper()

	hc := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, cause
	})}

	_, err := apiclient.NewPublic(apiclient.Options{HTTPClient: hc}).
		Request(context.Background(), http.MethodGet, "/", nil, nil)
	require.Error(t, err)

	return err
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestToHTTP_LocalErrors(t *testing.T) {
	st, resp := ToHTTP(fmt.Errorf("site.CreateComment: %w", site.ErrEmptyContent))
	require.Equal(t, http.StatusBadRequest, st)
	require.Equal(t, site.ErrEmptyContent.Error(), resp.Error.Message)

	st, resp = ToHTTP(ErrInvalidArgument)
	require.Equal(t, http.StatusBadRequest, st)
	require.Equal(t, "invalid_argument", resp.Error.Code)

	st, _ = ToHTTP(session.ErrNotAuthenticated)
	require.Equal(t, http.StatusUnauthorized, st)

	st, _ = ToHTTP(session.ErrInvalidLoginResponse)
	require.Equal(t, http.StatusBadGateway, st)

	st, resp = ToHTTP(fmt.Errorf("boom"))
	require.Equal(t, http.StatusInternalServerError, st)
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestToHTTP_NilError_Returns500Internal(t *testing.T) {
	gotStatus, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, gotStatus)
	require.Equal(t, "internal", resp.Error.Code)
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestWriteError_AddsRequestID(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "rid-1")

	WriteError(rr, req, apiclient.ParseError(http.StatusNotFound, nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var env ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "rid-1", env.Error.RequestID)
	require.Equal(t, "not_found", env.Error.Code)
}
