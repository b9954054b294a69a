package payment

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnvironment(t *testing.T) {
	assert.Equal(t, Live, ParseEnvironment("live"))
	assert.Equal(t, Live, ParseEnvironment(" LIVE "))
	assert.Equal(t, Sandbox, ParseEnvironment("sandbox"))
	assert.Equal(t, Sandbox, ParseEnvironment(""))
	assert.Equal(t, Sandbox, ParseEnvironment("production"))

	assert.Equal(t, "https://api-m.paypal.com", Live.BaseURL())
	assert.Equal(t, "https://api-m.sandbox.paypal.com", Sandbox.BaseURL())
}

func TestUpstreamError_Classification(t *testing.T) {
	tokenErr := fmt.Errorf("checkout: %w", &UpstreamError{Op: OpToken, StatusCode: 401, Body: []byte(`{"error":"invalid_client"}`)})
	assert.ErrorIs(t, tokenErr, ErrUpstreamAuth)
	assert.NotErrorIs(t, tokenErr, ErrUpstreamRejected)
	assert.Equal(t, `checkout: token: 401 {"error":"invalid_client"}`, tokenErr.Error())

	orderErr := error(&UpstreamError{Op: OpCapture, StatusCode: 422, Body: []byte(`{"name":"UNPROCESSABLE_ENTITY"}`)})
	assert.ErrorIs(t, orderErr, ErrUpstreamRejected)

	var ue *UpstreamError
	assert.True(t, errors.As(orderErr, &ue))
	assert.Equal(t, 422, ue.StatusCode)
}

func TestCredentials_StringHidesSecret(t *testing.T) {
	c := Credentials{ClientID: "AbC", Secret: "s3cr3t"}
	assert.NotContains(t, c.String(), "s3cr3t")
	assert.NotContains(t, fmt.Sprintf("%v", c), "s3cr3t")
}
