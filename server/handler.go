package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// AuthorizeURL builds the implicit grant authorize URL. Twitch answers by redirecting the browser to
// redirectURI with the token in the URL fragment. redirectURI has to be passed exactly as registered
// with the app, Twitch does not normalize it.
// https://dev.twitch.tv/docs/authentication/getting-tokens-oauth/#implicit-grant-flow
func AuthorizeURL(clientID string, redirectURI string, scopes []string, state string) string {
	val := url.Values{}
	val.Set("client_id", clientID)
	val.Set("force_verify", "true")
	val.Set("redirect_uri", redirectURI)
	val.Set("response_type", "token")
	val.Set("scope", strings.Join(scopes, " "))
	val.Set("state", state)

	u := url.URL{
		Scheme:   "https",
		Host:     "id.twitch.tv",
		Path:     "oauth2/authorize",
		RawQuery: val.Encode(),
	}

	return u.String()
}

func (a *API) handleGetHealth() http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func (a *API) handleCapturePage() http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(capturePage)
	})
}

func (a *API) handlePostToken() http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := a.getLoggerFrom(r.Context())

		var c Capture
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			logger.Err(err).Msg("could not decode capture body")
			http.Error(w, "malformed body", http.StatusBadRequest)
			return
		}

		if c.State == "" {
			http.Error(w, "state is missing", http.StatusBadRequest)
			return
		}

		if c.AccessToken == "" && c.Error == "" {
			http.Error(w, "access_token is missing", http.StatusBadRequest)
			return
		}

		pending := pendingCapture{Capture: c, accepted: make(chan bool, 1)}

		select {
		case a.captures <- pending:
		case <-r.Context().Done():
			return
		}

		if !<-pending.accepted {
			http.Error(w, "state does not match the running authorization, start again from the terminal", http.StatusBadRequest)
			return
		}

		if c.Error != "" {
			logger.Error().Str("error", c.Error).Str("description", c.ErrorDescription).Msg("authorization was denied")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Authorization was denied, check the terminal."))
			return
		}

		logger.Info().Msg("received access token")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Token received, you can close this tab."))
	})
}
