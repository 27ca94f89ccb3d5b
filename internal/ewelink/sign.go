package ewelink

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

const apiVersion = "8"

var _ http.RoundTripper = &signer{}

// signer adds the eWeLink application headers to each request and signs it with the application secret.
type signer struct {
	appID     string
	appSecret string
	region    string
	next      http.RoundTripper
	now       func() time.Time
}

func (s *signer) RoundTrip(req *http.Request) (*http.Response, error) {
	nonce := newNonce(8)
	ts := strconv.FormatInt(s.now().Unix(), 10)

	r := req.Clone(req.Context())
	r.Header.Set("X-CK-Appid", s.appID)
	r.Header.Set("X-CK-Nonce", nonce)
	r.Header.Set("X-CK-Ts", ts)
	r.Header.Set("X-CK-Sign", sign(s.appSecret, s.appID, nonce, ts, req.URL))
	if s.region != "" {
		r.Header.Set("X-CK-Region", s.region)
	}
	return s.next.RoundTrip(r)
}

// sign computes the request signature: an HMAC-SHA256 of the sorted application and query parameters, followed by the path.
func sign(secret, appID, nonce, ts string, u *url.URL) string {
	params := map[string]string{
		"appid":   appID,
		"nonce":   nonce,
		"ts":      ts,
		"version": apiVersion,
	}
	for key, values := range u.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, key := range keys {
		b.WriteString(key + "=" + params[key] + "&")
	}
	b.WriteString(u.EscapedPath())

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

const nonceChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func newNonce(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = nonceChars[int(b[i])%len(nonceChars)]
	}
	return string(b)
}
