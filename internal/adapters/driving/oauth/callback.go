// Package oauth runs the browser consent flow that yields a user's Google
// refresh token.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// CallbackServer receives the authorization redirect on a loopback port.
type CallbackServer struct {
	mu            sync.Mutex
	expectedState string
	codeChan      chan string
	errChan       chan error
	server        *http.Server
	listener      net.Listener
}

// NewCallbackServer creates a callback server that accepts only
// expectedState.
func NewCallbackServer(expectedState string) *CallbackServer {
	return &CallbackServer{
		expectedState: expectedState,
		codeChan:      make(chan string, 1),
		errChan:       make(chan error, 1),
	}
}

// Start listens on addr ("127.0.0.1:0" picks a free port).
func (s *CallbackServer) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.fail(err)
		}
	}()
	return nil
}

func (s *CallbackServer) fail(err error) {
	select {
	case s.errChan <- err:
	default:
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/html")

	if errParam := q.Get("error"); errParam != "" {
		s.fail(fmt.Errorf("oauth error: %s - %s", errParam, q.Get("error_description")))
		fmt.Fprint(w, resultHTML("Authorization failed: "+errParam))
		return
	}
	if q.Get("state") != s.expectedState {
		s.fail(errors.New("oauth state mismatch"))
		fmt.Fprint(w, resultHTML("Authorization failed: invalid state parameter"))
		return
	}
	code := q.Get("code")
	if code == "" {
		s.fail(errors.New("no authorization code received"))
		fmt.Fprint(w, resultHTML("Authorization failed: no code received"))
		return
	}

	select {
	case s.codeChan <- code:
	default:
	}
	fmt.Fprint(w, resultHTML("Drive access granted. You can close this window."))
}

// WaitForCode blocks until the authorization code arrives, the provider
// reports an error, or ctx ends.
func (s *CallbackServer) WaitForCode(ctx context.Context) (string, error) {
	select {
	case code := <-s.codeChan:
		return code, nil
	case err := <-s.errChan:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization callback: %w", ctx.Err())
	}
}

// Stop shuts down the callback server.
func (s *CallbackServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// RedirectURI returns the URI registered as the OAuth redirect.
func (s *CallbackServer) RedirectURI() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	port := s.listener.Addr().(*net.TCPAddr).Port
	return fmt.Sprintf("http://localhost:%d/callback", port)
}

func resultHTML(message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>sercha-drive</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 20vh;">
<h1>%s</h1>
</body>
</html>`, html.EscapeString(message))
}

// Flow runs the offline-access consent flow for one user.
type Flow struct {
	// Config is the OAuth application; RedirectURL is set by Run.
	Config *oauth2.Config

	// Open presents the consent URL to the user. Defaults to OpenBrowser.
	Open func(url string) error

	// Out receives the consent URL when Open fails.
	Out io.Writer

	// Addr is the callback listen address. Defaults to "127.0.0.1:0".
	Addr string
}

// Run opens the consent page, waits for the redirect and exchanges the
// code with PKCE. The returned token carries the refresh token.
func (f *Flow) Run(ctx context.Context) (*oauth2.Token, error) {
	state, err := randomState()
	if err != nil {
		return nil, err
	}
	addr := f.Addr
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	server := NewCallbackServer(state)
	if err := server.Start(addr); err != nil {
		return nil, err
	}
	defer server.Stop() //nolint:errcheck // best effort shutdown

	cfg := *f.Config
	cfg.RedirectURL = server.RedirectURI()
	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	open := f.Open
	if open == nil {
		open = OpenBrowser
	}
	if err := open(authURL); err != nil && f.Out != nil {
		fmt.Fprintf(f.Out, "Open this URL to grant Drive access:\n\n  %s\n\n", authURL)
	}

	code, err := server.WaitForCode(ctx)
	if err != nil {
		return nil, err
	}
	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	if token.RefreshToken == "" {
		return nil, errors.New("provider returned no refresh token")
	}
	return token, nil
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// OpenBrowser opens the default browser to the given URL.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
