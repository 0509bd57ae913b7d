package auth

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
)

// VerifierSource obtains the one-time verification code for an authorization
// attempt.
type VerifierSource interface {
	Verifier(authorizationURL string) (string, error)
}

// NewVerifierSource picks a strategy for the current process: a blocking
// terminal prompt when stdin is a TTY, the local web flow otherwise.
func NewVerifierSource(openBrowser bool, log zerolog.Logger) VerifierSource {
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return &PromptVerifier{
			In:          os.Stdin,
			Out:         os.Stderr,
			OpenBrowser: openBrowser,
		}
	}
	return &WebVerifier{
		Timeout:     DefaultWebFlowTimeout,
		OpenBrowser: openBrowser,
		Logger:      log,
	}
}

// PromptVerifier prints the authorization URL and blocks reading one line
// from the terminal. No timeout: a human at a terminal takes as long as they
// take.
type PromptVerifier struct {
	In          io.Reader
	Out         io.Writer
	OpenBrowser bool
}

func (p *PromptVerifier) Verifier(authorizationURL string) (string, error) {
	divider := strings.Repeat("=", 70)
	fmt.Fprintf(p.Out, "\n%s\nE*TRADE AUTHORIZATION REQUIRED\n%s\n", divider, divider)
	fmt.Fprintf(p.Out, "\nPlease authorize this application:\n\n  %s\n\n", authorizationURL)

	if p.OpenBrowser {
		fmt.Fprintln(p.Out, "Opening browser...")
		if err := browser.OpenURL(authorizationURL); err != nil {
			fmt.Fprintln(p.Out, "Could not open browser, please visit the URL above.")
		}
	} else {
		fmt.Fprintln(p.Out, "Please visit the URL above in your browser.")
	}

	fmt.Fprint(p.Out, "\nAfter authorizing, you will receive a verification code.\nEnter verification code: ")

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read verification code: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// WebVerifier runs the ephemeral callback server for headless hosts.
type WebVerifier struct {
	Timeout     time.Duration
	OpenBrowser bool
	Logger      zerolog.Logger
}

func (w *WebVerifier) Verifier(authorizationURL string) (string, error) {
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultWebFlowTimeout
	}
	return RunWebAuthFlow(authorizationURL, timeout, w.OpenBrowser, w.Logger)
}
