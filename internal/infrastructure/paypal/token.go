package paypal

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

const tokenPath = "/v1/oauth2/token"

// TokenAcquirer exchanges the REST app credentials for an access token using
// the client-credentials grant. Every call performs a fresh exchange.
type TokenAcquirer struct {
	api  *api
	conf clientcredentials.Config
}

func NewTokenAcquirer(opts Options) (*TokenAcquirer, error) {
	a, err := newAPI(opts)
	if err != nil {
		return nil, err
	}
	if opts.Credentials.ClientID == "" || opts.Credentials.Secret == "" {
		return nil, errors.New("paypal: client id and secret are required")
	}

	// Token responses must never be served from a cache.
	hc := *a.http
	hc.Transport = &noStoreTransport{base: a.http.Transport}
	a.http = &hc

	return &TokenAcquirer{
		api: a,
		conf: clientcredentials.Config{
			ClientID:     opts.Credentials.ClientID,
			ClientSecret: opts.Credentials.Secret,
			TokenURL:     a.baseURL + tokenPath,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
	}, nil
}

// AccessToken returns a bearer token. A non-2xx answer from the token
// endpoint is a *payment.UpstreamError with Op payment.OpToken.
func (t *TokenAcquirer) AccessToken(ctx context.Context) (string, error) {
	var token string
	err := t.api.call(ctx, endpointToken, func(ctx context.Context) (int, error) {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, t.api.http)
		tok, err := t.conf.Token(ctx)
		if err != nil {
			var re *oauth2.RetrieveError
			if errors.As(err, &re) && re.Response != nil {
				return re.Response.StatusCode, &payment.UpstreamError{
					Op:         payment.OpToken,
					StatusCode: re.Response.StatusCode,
					Body:       re.Body,
				}
			}
			return 0, unavailable(payment.OpToken, err)
		}
		token = tok.AccessToken
		return http.StatusOK, nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

type noStoreTransport struct {
	base http.RoundTripper
}

func (t *noStoreTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Cache-Control", "no-store")
	return t.base.RoundTrip(req)
}
