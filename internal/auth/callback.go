package auth

import (
	"context"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog"
)

// DefaultWebFlowTimeout bounds how long the web flow waits for a human to
// submit the verification code.
const DefaultWebFlowTimeout = 300 * time.Second

var authorizePageTmpl = template.Must(template.New("authorize").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>E*TRADE MCP Server - Authorization</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 600px; margin: 50px auto; padding: 20px; }
        .container { background: #f5f5f5; padding: 30px; border-radius: 8px; }
        h1 { color: #333; }
        .notice { background: #fff3cd; border-left: 4px solid #ff9800; padding: 12px; margin: 20px 0; font-size: 14px; }
        .step { margin: 20px 0; padding: 15px; background: white; border-radius: 4px; }
        .step-number { color: #007bff; font-weight: bold; }
        input[type="text"] { width: 100%; padding: 10px; font-size: 16px; border: 1px solid #ddd; border-radius: 4px; }
        button { background: #007bff; color: white; padding: 12px 24px; font-size: 16px; border: none; border-radius: 4px; cursor: pointer; margin-top: 10px; }
        button:hover { background: #0056b3; }
        a { color: #007bff; text-decoration: none; font-weight: bold; }
        a:hover { text-decoration: underline; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #ddd; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <h1>E*TRADE MCP Server Authorization</h1>

        <div class="step">
            <p><span class="step-number">Step 1:</span> Click this link to authorize with E*TRADE:</p>
            <p><a href="{{.AuthorizationURL}}" target="_blank">Open E*TRADE Authorization Page</a></p>
        </div>

        <div class="step">
            <p><span class="step-number">Step 2:</span> After authorizing on E*TRADE's website, they will show you a verification code.</p>
        </div>

        <div class="step">
            <p><span class="step-number">Step 3:</span> Enter the verification code below:</p>
            <form action="/" method="POST">
                <input type="text" name="code" placeholder="Enter verification code" autofocus required />
                <button type="submit">Submit Code</button>
            </form>
        </div>

        <div class="footer">
            This page will close automatically after successful authorization.
        </div>

        <div class="notice">
            <strong>Note:</strong> This page is served by your local E*TRADE MCP server.
            It is not affiliated with or maintained by E*TRADE. This is a temporary authorization flow
            to connect your MCP server to your E*TRADE account via your AI chat client.
        </div>
    </div>
</body>
</html>`))

const successPage = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Authorization Complete</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 600px; margin: 50px auto; padding: 20px; text-align: center; }
        .success { background: #d4edda; color: #155724; padding: 20px; border-radius: 8px; margin: 20px 0; }
        h1 { color: #155724; }
    </style>
</head>
<body>
    <div class="success">
        <h1>&#10003; Authorization Complete</h1>
        <p>You can close this window and return to your application.</p>
    </div>
</body>
</html>`

// callbackServer is the transient loopback endpoint that receives exactly
// one verification code. One instance lives per authorization attempt; the
// accepted-code slot is a buffered channel captured by the handler closure,
// never shared process-wide state.
type callbackServer struct {
	srv    *http.Server
	port   int
	codeCh chan string
	served chan struct{}
}

func newCallbackServer(authorizationURL string) (*callbackServer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to bind callback listener: %w", err)
	}

	c := &callbackServer{
		port:   ln.Addr().(*net.TCPAddr).Port,
		codeCh: make(chan string, 1),
		served: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "text/html")
			_ = authorizePageTmpl.Execute(w, struct{ AuthorizationURL string }{authorizationURL})
		case http.MethodPost:
			if err := r.ParseForm(); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			code := strings.TrimSpace(r.PostFormValue("code"))
			if code == "" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			// One-shot: the first non-empty submission wins, later ones
			// are ignored because the waiting side exits on the first.
			select {
			case c.codeCh <- code:
			default:
			}
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, successPage)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	c.srv = &http.Server{Handler: mux}
	go func() {
		defer close(c.served)
		_ = c.srv.Serve(ln)
	}()
	return c, nil
}

// URL is the local page a human opens to complete the flow.
func (c *callbackServer) URL() string {
	return fmt.Sprintf("http://localhost:%d/", c.port)
}

// wait blocks until a code is submitted or the timeout elapses. Both paths
// tear the listener down and join the serving goroutine before returning.
func (c *callbackServer) wait(timeout time.Duration) (string, error) {
	start := time.Now()
	select {
	case code := <-c.codeCh:
		c.shutdown()
		return code, nil
	case <-time.After(timeout):
		c.shutdown()
		return "", &VerificationTimeoutError{Elapsed: time.Since(start)}
	}
}

// shutdown stops accepting connections unconditionally, regardless of any
// in-progress request, and joins the serving goroutine so no listener
// outlives the attempt that started it.
func (c *callbackServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = c.srv.Shutdown(ctx)
	_ = c.srv.Close()
	<-c.served
}

// RunWebAuthFlow serves a one-shot verification page on an ephemeral
// loopback port and waits for a human to submit the code, bounded by the
// timeout. On timeout a *VerificationTimeoutError is returned and no code is
// ever produced for this invocation.
//
// Individual HTTP requests are intentionally not logged; lifecycle events
// (start, code received, timeout) are.
func RunWebAuthFlow(authorizationURL string, timeout time.Duration, openBrowser bool, log zerolog.Logger) (string, error) {
	c, err := newCallbackServer(authorizationURL)
	if err != nil {
		return "", err
	}

	log.Info().Str("url", c.URL()).Msg("Waiting for verification code via local web flow")

	if openBrowser {
		if err := browser.OpenURL(c.URL()); err != nil {
			// Not fatal, the URL stays usable if opened manually.
			log.Warn().Err(err).Msg("Could not open browser, open the URL manually")
		}
	}

	code, err := c.wait(timeout)
	if err != nil {
		return "", err
	}
	log.Info().Msg("Received verification code via web flow")
	return code, nil
}
