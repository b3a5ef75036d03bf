package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

var errStateMismatch = errors.New("oauth: state mismatch in callback")

// LoopbackAuthorizer is the installed-app flow: it listens on an ephemeral
// 127.0.0.1 port, prints the consent URL and waits for Google to redirect
// back with the code. PKCE (S256) is always used.
type LoopbackAuthorizer struct {
	// Out receives the consent URL. Defaults to os.Stdout.
	Out io.Writer
	// Open, when set, is called with the consent URL, e.g. to launch a browser.
	Open func(authURL string) error
}

type callbackResult struct {
	code string
	err  error
}

func (a *LoopbackAuthorizer) Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	out := a.Out
	if out == nil {
		out = os.Stdout
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("oauth: start callback listener: %w", err)
	}

	flow := *cfg
	flow.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr().String())

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	deliver := func(r callbackResult) {
		select {
		case results <- r:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			deliver(callbackResult{err: fmt.Errorf("oauth: authorization denied: %s", e)})
			http.Error(w, "Authorization failed: "+e, http.StatusBadRequest)
			return
		}
		if q.Get("state") != state {
			deliver(callbackResult{err: errStateMismatch})
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			deliver(callbackResult{err: errors.New("oauth: callback carried no code")})
			http.Error(w, "Missing code", http.StatusBadRequest)
			return
		}
		deliver(callbackResult{code: code})
		fmt.Fprintln(w, "Authentication complete. You may close this window.")
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := flow.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)
	fmt.Fprintf(out, "Open the following URL in your browser to authorize access:\n\n%s\n\n", authURL)
	if a.Open != nil {
		if err := a.Open(authURL); err != nil {
			fmt.Fprintf(out, "Could not open the browser automatically: %v\n", err)
		}
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-results:
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := flow.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("oauth: exchange code: %w", err)
	}
	return tok, nil
}
