// Package clilogin runs the loopback HTTP listener that stands in for
// the browser client's return URL: the identity provider redirects the
// user's browser back to it, and the captured query parameters become
// one navigation event for the auth orchestrator.
package clilogin

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/pkg/errors"
)

const callbackPath = "/callback"

// completionPage is shown in the browser once the callback has been
// captured; the flow continues in the terminal.
const completionPage = `<!DOCTYPE html>
<html>
<head><title>Login</title></head>
<body>
<p>Login received. You can close this window and return to the terminal.</p>
</body>
</html>
`

// Listener captures a single authorization callback.
type Listener struct {
	listener net.Listener
	server   *http.Server

	once    sync.Once
	results chan url.Values
}

// Listen binds the loopback address (e.g. "127.0.0.1:8973"). The
// address must match what the deployment has registered as the client's
// redirect target.
func Listen(addr string) (*Listener, error) {
	netListener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "[clilogin.Listen] Listen")
	}

	l := &Listener{
		listener: netListener,
		results:  make(chan url.Values, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, l.handleCallback)
	l.server = &http.Server{Handler: mux}

	go func() {
		_ = l.server.Serve(netListener)
	}()

	return l, nil
}

// RedirectURI returns the URI the identity provider should send the
// user back to.
func (l *Listener) RedirectURI() string {
	return fmt.Sprintf("http://%s%s", l.listener.Addr().String(), callbackPath)
}

// Wait blocks until the callback arrives or ctx ends, returning the
// callback URL's query parameters. Only the first callback is honoured.
func (l *Listener) Wait(ctx context.Context) (url.Values, error) {
	select {
	case query := <-l.results:
		return query, nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "[Listener.Wait]")
	}
}

// Close stops the listener. Safe to call after Wait.
func (l *Listener) Close() error {
	return l.server.Close()
}

func (l *Listener) handleCallback(w http.ResponseWriter, r *http.Request) {
	l.once.Do(func() {
		l.results <- r.URL.Query()
	})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(completionPage))
}
