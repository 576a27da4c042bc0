package twitter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Credentials and request from Twitter's "Creating a signature" guide
var docCredentials = Credentials{
	APIKey:       "xvz1evFS4wEEPTGEFPHBog",
	APISecret:    "kAcSOqF21Fu85e7zjz7ZN2U4ZRhfV3WpwPAoE3Z7kBw",
	AccessToken:  "370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb",
	AccessSecret: "LswwdoUaIvS8ltyTt5jkRh4J50vUPVVHtR2YPi5kE",
}

var docParams = []Param{
	{Key: "status", Value: "Hello Ladies + Gentlemen, a signed OAuth request!"},
	{Key: "include_entities", Value: "true"},
}

const docURL = "https://api.twitter.com/1.1/statuses/update.json"

func fixedSigner() *Signer {
	s := NewSigner(docCredentials)
	s.Nonce = func() string { return "kYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg" }
	s.Now = func() time.Time { return time.Unix(1318622958, 0) }
	return s
}

// headerParams splits an OAuth header into its key/value pairs
func headerParams(t *testing.T, header string) map[string]string {
	t.Helper()

	rest, ok := strings.CutPrefix(header, "OAuth ")
	require.True(t, ok, "missing scheme in %q", header)

	out := make(map[string]string)
	for _, part := range strings.Split(rest, ", ") {
		k, v, ok := strings.Cut(part, "=")
		require.True(t, ok, "malformed pair %q", part)
		out[k] = strings.Trim(v, `"`)
	}
	return out
}

func TestSignKnownSignature(t *testing.T) {
	header := fixedSigner().Sign("POST", docURL, docParams)

	expected := `OAuth oauth_consumer_key="xvz1evFS4wEEPTGEFPHBog", ` +
		`oauth_nonce="kYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg", ` +
		`oauth_signature_method="HMAC-SHA1", ` +
		`oauth_timestamp="1318622958", ` +
		`oauth_token="370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb", ` +
		`oauth_version="1.0", ` +
		`oauth_signature="hCtSmYh%2BiHYCEqBWrE7C7hYmtUk%3D"`
	assert.Equal(t, expected, header)
}

func TestSignParamOrderDoesNotMatter(t *testing.T) {
	reversed := []Param{docParams[1], docParams[0]}

	assert.Equal(t,
		fixedSigner().Sign("POST", docURL, docParams),
		fixedSigner().Sign("POST", docURL, reversed),
	)
}

func TestSignMethodIsUppercased(t *testing.T) {
	assert.Equal(t,
		fixedSigner().Sign("POST", docURL, docParams),
		fixedSigner().Sign("post", docURL, docParams),
	)
}

func TestSignFreshNonceAndTimestamp(t *testing.T) {
	s := NewSigner(docCredentials)

	first := headerParams(t, s.Sign("GET", docURL, docParams))
	second := headerParams(t, s.Sign("GET", docURL, docParams))

	assert.NotEqual(t, first["oauth_nonce"], second["oauth_nonce"])
	assert.NotEqual(t, first["oauth_signature"], second["oauth_signature"])
	assert.Len(t, first["oauth_nonce"], 32)
}

func TestSignEmptyParams(t *testing.T) {
	s := fixedSigner()

	var header string
	assert.NotPanics(t, func() {
		header = s.Sign("POST", "https://api.twitter.com/1.1/statuses/destroy/1.json", nil)
	})

	params := headerParams(t, header)
	assert.NotEmpty(t, params["oauth_signature"])
	assert.Equal(t, "HMAC-SHA1", params["oauth_signature_method"])
}

func TestNewNonceIsAlphanumeric(t *testing.T) {
	for range 20 {
		nonce := newNonce()
		assert.Len(t, nonce, 32)
		for _, r := range nonce {
			assert.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'), "unexpected %q in nonce", r)
		}
	}
}

func TestPercentEncode(t *testing.T) {
	tests := map[string]string{
		"":                      "",
		"Ladies + Gentlemen":    "Ladies%20%2B%20Gentlemen",
		"An encoded string!":    "An%20encoded%20string%21",
		"Dogs, Cats & Mice":     "Dogs%2C%20Cats%20%26%20Mice",
		"☃":                     "%E2%98%83",
		"unreserved-._~":        "unreserved-._~",
		"1,2,3":                 "1%2C2%2C3",
		"https://api.x.com/a?b": "https%3A%2F%2Fapi.x.com%2Fa%3Fb",
	}
	for in, want := range tests {
		assert.Equal(t, want, percentEncode(in), "input %q", in)
	}
}
