package auth

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postCode(t *testing.T, serverURL, code string) *http.Response {
	t.Helper()
	resp, err := http.PostForm(serverURL, url.Values{"code": {code}})
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCallbackServerAcceptsTrimmedCode(t *testing.T) {
	c, err := newCallbackServer("https://example.com/authorize")
	require.NoError(t, err)

	resp := postCode(t, c.URL(), "  CODE123  ")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Authorization Complete")

	code, err := c.wait(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "CODE123", code)
}

func TestCallbackServerRejectsEmptyCode(t *testing.T) {
	c, err := newCallbackServer("https://example.com/authorize")
	require.NoError(t, err)

	resp := postCode(t, c.URL(), "   ")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Nothing was accepted, so the wait must run into its deadline.
	_, err = c.wait(100 * time.Millisecond)
	var timeoutErr *VerificationTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestCallbackServerFirstSubmissionWins(t *testing.T) {
	c, err := newCallbackServer("https://example.com/authorize")
	require.NoError(t, err)

	resp := postCode(t, c.URL(), "FIRST")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = postCode(t, c.URL(), "SECOND")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	code, err := c.wait(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "FIRST", code)
}

func TestCallbackServerServesAuthorizationLink(t *testing.T) {
	c, err := newCallbackServer("https://us.etrade.com/e/t/etws/authorize?key=ck&token=rokey")
	require.NoError(t, err)
	defer c.shutdown()

	resp, err := http.Get(c.URL())
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	// The template HTML-escapes the query separator inside the href.
	assert.Contains(t, string(body), "https://us.etrade.com/e/t/etws/authorize?key=ck&amp;token=rokey")
	assert.Contains(t, string(body), `<form action="/" method="POST">`)
}

func TestRunWebAuthFlowTimeout(t *testing.T) {
	timeout := 200 * time.Millisecond
	start := time.Now()

	_, err := RunWebAuthFlow("https://example.com/authorize", timeout, false, zerolog.Nop())
	elapsed := time.Since(start)

	var timeoutErr *VerificationTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.GreaterOrEqual(t, timeoutErr.Elapsed, timeout)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+2*time.Second, "teardown must not drag far past the deadline")
}

func TestRunWebAuthFlowConcurrentSubmission(t *testing.T) {
	c, err := newCallbackServer("https://example.com/authorize")
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		resp, err := http.PostForm(c.URL(), url.Values{"code": {"RACE42"}})
		if err == nil {
			resp.Body.Close()
		}
	}()

	start := time.Now()
	code, err := c.wait(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "RACE42", code)
	assert.Less(t, time.Since(start), 5*time.Second, "submission must complete well before the timeout")
}

func TestCallbackServerShutsDownListener(t *testing.T) {
	c, err := newCallbackServer("https://example.com/authorize")
	require.NoError(t, err)

	resp := postCode(t, c.URL(), "DONE")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = c.wait(time.Second)
	require.NoError(t, err)

	// After wait returns, the port must be released.
	_, err = http.Get(c.URL())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "connection refused") || errors.Is(err, io.EOF))
}
