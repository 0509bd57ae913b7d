package auth

import (
	"fmt"
	"io"
	"net/http"

	"github.com/dghubble/oauth1"
)

// E*TRADE OAuth 1.0a endpoints. The authorize URL takes the non-standard
// key/token query format; see AuthorizationURL.
const (
	RequestTokenURL = "https://api.etrade.com/oauth/request_token"
	AuthorizeURL    = "https://us.etrade.com/e/t/etws/authorize"
	AccessTokenURL  = "https://api.etrade.com/oauth/access_token"
	RenewTokenURL   = "https://api.etrade.com/oauth/renew_access_token"
)

// Endpoints groups the provider URLs so tests can point the transport at a
// local server.
type Endpoints struct {
	RequestTokenURL string
	AuthorizeURL    string
	AccessTokenURL  string
	RenewTokenURL   string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		RequestTokenURL: RequestTokenURL,
		AuthorizeURL:    AuthorizeURL,
		AccessTokenURL:  AccessTokenURL,
		RenewTokenURL:   RenewTokenURL,
	}
}

// Transport performs the three remote OAuth legs. Every output is an explicit
// named value; callers never inspect library session internals. Calls are
// synchronous with no internal retry.
type Transport struct {
	consumerKey string
	endpoints   Endpoints
	config      *oauth1.Config
}

func NewTransport(consumerKey, consumerSecret string, endpoints Endpoints) *Transport {
	return &Transport{
		consumerKey: consumerKey,
		endpoints:   endpoints,
		config: &oauth1.Config{
			ConsumerKey:    consumerKey,
			ConsumerSecret: consumerSecret,
			CallbackURL:    "oob",
			Endpoint: oauth1.Endpoint{
				RequestTokenURL: endpoints.RequestTokenURL,
				AuthorizeURL:    endpoints.AuthorizeURL,
				AccessTokenURL:  endpoints.AccessTokenURL,
			},
		},
	}
}

// RequestToken performs the unauthenticated first leg.
func (t *Transport) RequestToken() (resourceOwnerKey, resourceOwnerSecret string, err error) {
	resourceOwnerKey, resourceOwnerSecret, err = t.config.RequestToken()
	if err != nil {
		return "", "", fmt.Errorf("failed to get request token: %w", err)
	}
	return resourceOwnerKey, resourceOwnerSecret, nil
}

// AccessToken exchanges the human-relayed verifier for a long-lived grant.
func (t *Transport) AccessToken(resourceOwnerKey, resourceOwnerSecret, verifier string) (oauthToken, oauthTokenSecret string, err error) {
	oauthToken, oauthTokenSecret, err = t.config.AccessToken(resourceOwnerKey, resourceOwnerSecret, verifier)
	if err != nil {
		return "", "", fmt.Errorf("failed to get access token: %w", err)
	}
	return oauthToken, oauthTokenSecret, nil
}

// Renew extends the validity of the current grant. The provider returns no
// new token strings; a non-error HTTP response is the sole success signal and
// the caller owns recomputing the expiry.
func (t *Transport) Renew(oauthToken, oauthTokenSecret string) error {
	resp, err := t.SignedClient(oauthToken, oauthTokenSecret).Get(t.endpoints.RenewTokenURL)
	if err != nil {
		return fmt.Errorf("failed to renew token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("token renewal failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// AuthorizationURL builds the provider authorization link for a request
// token. E*TRADE validates this exact shape, so it is assembled by hand
// rather than through the library's standard oauth_token form.
func (t *Transport) AuthorizationURL(requestToken string) string {
	return fmt.Sprintf("%s?key=%s&token=%s", t.endpoints.AuthorizeURL, t.consumerKey, requestToken)
}

// SignedClient returns an HTTP client that signs every request with the
// given token pair. Used for renewal and for all data endpoints.
func (t *Transport) SignedClient(oauthToken, oauthTokenSecret string) *http.Client {
	return t.config.Client(oauth1.NoContext, oauth1.NewToken(oauthToken, oauthTokenSecret))
}
