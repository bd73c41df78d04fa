package youtube

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

const authState = "playlistomatic"

const authSuccessPage = `<html>
  <body>
    <h1>Authorization Successful</h1>
    <p>Your refresh token has been obtained successfully.</p>
    <p>You can close this window and return to the application.</p>
  </body>
</html>
`

// AuthURL is the consent page that yields a refresh token for REFRESH_TOKEN.
// Consent is forced so Google issues a new refresh token every time.
func AuthURL(cfg Config) string {
	return oauthConfig(cfg).AuthCodeURL(authState, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ListenRedirect opens the local listener that redirect_uri points at.
func ListenRedirect(cfg Config) (net.Listener, error) {
	u, err := url.Parse(cfg.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("parse redirect_uri: %w", err)
	}
	port := u.Port()
	if port == "" {
		port = "80"
	}
	ln, err := net.Listen("tcp", net.JoinHostPort(u.Hostname(), port))
	if err != nil {
		return nil, fmt.Errorf("listen for oauth callback: %w", err)
	}
	return ln, nil
}

type callbackResult struct {
	token string
	err   error
}

// ReceiveRefreshToken serves the redirect_uri path on ln until the consent
// page calls back, then trades the code for a refresh token. ln is closed on
// return.
func ReceiveRefreshToken(ctx context.Context, cfg Config, ln net.Listener) (string, error) {
	u, err := url.Parse(cfg.RedirectURI)
	if err != nil {
		ln.Close()
		return "", fmt.Errorf("parse redirect_uri: %w", err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	conf := oauthConfig(cfg)
	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, externalHTTPClient)
	done := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		token, err := exchangeCallback(exchangeCtx, conf, r.URL.Query())
		if err != nil {
			log.Printf("youtube auth callback error: %v", err)
			http.Error(w, "Authorization failed: "+err.Error(), http.StatusInternalServerError)
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, authSuccessPage)
		}
		select {
		case done <- callbackResult{token: token, err: err}:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("youtube auth server error: %v", err)
		}
	}()
	log.Printf("youtube auth waiting for callback addr=%s path=%s", ln.Addr(), path)

	var res callbackResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = callbackResult{err: ctx.Err()}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("youtube auth server shutdown error: %v", err)
	}
	return res.token, res.err
}

func exchangeCallback(ctx context.Context, conf *oauth2.Config, q url.Values) (string, error) {
	if reason := q.Get("error"); reason != "" {
		return "", fmt.Errorf("consent denied: %s", reason)
	}
	if q.Get("state") != authState {
		return "", errors.New("oauth state mismatch")
	}
	code := q.Get("code")
	if code == "" {
		return "", errors.New("no authorization code received")
	}
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange authorization code: %w", err)
	}
	if tok.RefreshToken == "" {
		return "", errors.New("no refresh token received, consent must be forced in the auth url")
	}
	return tok.RefreshToken, nil
}
