package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T, redirect string) (*API, *httptest.Server) {
	t.Helper()

	u, err := url.Parse(redirect)
	require.NoError(t, err)

	api := New(zerolog.Nop(), Config{RedirectURI: u})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return api, srv
}

func postToken(t *testing.T, srv *httptest.Server, path, body string) *http.Response {
	t.Helper()

	resp, err := srv.Client().Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func TestAPI_CapturePage(t *testing.T) {
	t.Parallel()

	_, srv := newTestAPI(t, "http://localhost:3000/auth/callback")

	resp, err := srv.Client().Get(srv.URL + "/auth/callback")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	require.Contains(t, string(body), "window.location.hash")

	resp, err = srv.Client().Get(srv.URL + "/internal/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_Capture(t *testing.T) {
	t.Parallel()

	t.Run("rejects mismatched state and returns token with matching state", func(t *testing.T) {
		t.Parallel()

		api, srv := newTestAPI(t, "http://localhost:3000")

		type result struct {
			token string
			err   error
		}
		done := make(chan result, 1)
		go func() {
			token, err := api.Capture(context.Background(), "state-1")
			done <- result{token, err}
		}()

		resp := postToken(t, srv, "/token", `{"access_token":"wrong","state":"other"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), "state does not match")

		resp = postToken(t, srv, "/token", `{"access_token":"abc","state":"state-1","scope":"user:bot"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err = io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), "Token received")

		select {
		case r := <-done:
			require.NoError(t, r.err)
			require.Equal(t, "abc", r.token)
		case <-time.After(time.Second):
			t.Fatal("capture did not return")
		}
	})

	t.Run("denied authorization", func(t *testing.T) {
		t.Parallel()

		api, srv := newTestAPI(t, "http://localhost:3000/cb/")

		done := make(chan error, 1)
		go func() {
			_, err := api.Capture(context.Background(), "s")
			done <- err
		}()

		postToken(t, srv, "/cb/token", `{"state":"s","error":"access_denied","error_description":"The user denied you access"}`)

		select {
		case err := <-done:
			require.ErrorIs(t, err, ErrAuthorizationDenied)
		case <-time.After(time.Second):
			t.Fatal("capture did not return")
		}
	})

	t.Run("rejects incomplete bodies", func(t *testing.T) {
		t.Parallel()

		_, srv := newTestAPI(t, "http://localhost:3000")

		require.Equal(t, http.StatusBadRequest, postToken(t, srv, "/token", `nope`).StatusCode)
		require.Equal(t, http.StatusBadRequest, postToken(t, srv, "/token", `{"access_token":"abc"}`).StatusCode)
		require.Equal(t, http.StatusBadRequest, postToken(t, srv, "/token", `{"state":"s"}`).StatusCode)
	})

	t.Run("context cancellation", func(t *testing.T) {
		t.Parallel()

		api, _ := newTestAPI(t, "http://localhost:3000")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := api.Capture(ctx, "s")
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestAPI_serve(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	u, err := url.Parse("http://" + ln.Addr().String())
	require.NoError(t, err)

	api := New(zerolog.Nop(), Config{RedirectURI: u})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- api.serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(u.String() + "/internal/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestAuthorizeURL(t *testing.T) {
	t.Parallel()

	raw := AuthorizeURL("cid", "http://localhost:3000", []string{"user:bot", "user:read:chat"}, "state-1")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "id.twitch.tv", u.Host)
	require.Equal(t, "/oauth2/authorize", u.Path)

	q := u.Query()
	require.Equal(t, "cid", q.Get("client_id"))
	require.Equal(t, "token", q.Get("response_type"))
	require.Equal(t, "http://localhost:3000", q.Get("redirect_uri"))
	require.Equal(t, "user:bot user:read:chat", q.Get("scope"))
	require.Equal(t, "state-1", q.Get("state"))
}
