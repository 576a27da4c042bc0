package twitter

import (
	"cmp"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	authScheme      = "OAuth"
	signatureMethod = "HMAC-SHA1"
	oauthVersion    = "1.0"
)

// Signer creates OAuth 1.0a authorization headers.
//
// Nonce and Now are replaceable so signatures can be reproduced in tests.
type Signer struct {
	creds Credentials
	Nonce func() string
	Now   func() time.Time
}

// NewSigner creates a signer for the given credentials
func NewSigner(creds Credentials) *Signer {
	return &Signer{
		creds: creds,
		Nonce: newNonce,
		Now:   time.Now,
	}
}

// newNonce returns 32 random alphanumeric characters
func newNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Sign returns the Authorization header value for a request.
// baseURL must not include the query string; params are not yet percent encoded.
func (s *Signer) Sign(method, baseURL string, params []Param) string {
	oauth := []Param{
		{Key: "oauth_consumer_key", Value: s.creds.APIKey},
		{Key: "oauth_nonce", Value: s.Nonce()},
		{Key: "oauth_signature_method", Value: signatureMethod},
		{Key: "oauth_timestamp", Value: strconv.FormatInt(s.Now().Unix(), 10)},
		{Key: "oauth_token", Value: s.creds.AccessToken},
		{Key: "oauth_version", Value: oauthVersion},
	}

	encoded := make([]Param, 0, len(oauth)+len(params))
	for _, p := range slices.Concat(oauth, params) {
		encoded = append(encoded, Param{Key: percentEncode(p.Key), Value: percentEncode(p.Value)})
	}
	slices.SortFunc(encoded, func(a, b Param) int {
		if c := cmp.Compare(a.Key, b.Key); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})

	pairs := make([]string, len(encoded))
	for i, p := range encoded {
		pairs[i] = p.Key + "=" + p.Value
	}

	base := strings.ToUpper(method) + "&" + percentEncode(baseURL) + "&" + percentEncode(strings.Join(pairs, "&"))
	key := percentEncode(s.creds.APISecret) + "&" + percentEncode(s.creds.AccessSecret)

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	var b strings.Builder
	b.WriteString(authScheme)
	b.WriteByte(' ')
	for i, p := range append(oauth, Param{Key: "oauth_signature", Value: signature}) {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(percentEncode(p.Key))
		b.WriteString(`="`)
		b.WriteString(percentEncode(p.Value))
		b.WriteByte('"')
	}
	return b.String()
}

// percentEncode escapes everything except ALPHA, DIGIT, '-', '.', '_' and '~' (RFC 3986)
func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// encodeQuery renders params as a query string using the same encoding as the signature
func encodeQuery(params []Param) string {
	pairs := make([]string, len(params))
	for i, p := range params {
		pairs[i] = percentEncode(p.Key) + "=" + percentEncode(p.Value)
	}
	return strings.Join(pairs, "&")
}
