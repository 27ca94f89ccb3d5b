package ewelinktools

import (
	"bytes"
	"errors"
	"github.com/clambin/go-common/http/roundtripper"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
)

func TestInstrumentedRoundTripper(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "root",
			path: "/",
			want: `
# HELP opendoor_ewelink_http_requests_total total number of http requests
# TYPE opendoor_ewelink_http_requests_total counter
opendoor_ewelink_http_requests_total{application="opendoor",code="404",method="GET",path="/"} 1
`,
		},
		{
			name: "status",
			path: "/v2/device/thing/status?thingid=1000abcd",
			want: `
# HELP opendoor_ewelink_http_requests_total total number of http requests
# TYPE opendoor_ewelink_http_requests_total counter
opendoor_ewelink_http_requests_total{application="opendoor",code="404",method="GET",path="/v2/device/thing/status"} 1
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewRequestMetrics("opendoor", "ewelink", map[string]string{"application": "opendoor"})
			final := roundtripper.RoundTripperFunc(func(*http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(&bytes.Buffer{})}, nil
			})

			c := http.Client{Transport: instrumentedRoundTripper(final, m)}
			resp, err := c.Get("http://localhost" + tt.path)
			require.NoError(t, err)
			_ = resp.Body.Close()

			assert.NoError(t, testutil.CollectAndCompare(m, strings.NewReader(tt.want), "opendoor_ewelink_http_requests_total"))
		})
	}
}

type fakeStore struct {
	token *oauth2.Token
	err   error
}

func (f fakeStore) LoadToken() (*oauth2.Token, error)  { return f.token, f.err }
func (f fakeStore) SaveToken(token *oauth2.Token) error { return nil }

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		store   *fakeStore
		want    string
		wantErr assert.ErrorAssertionFunc
	}{
		{
			name:    "config",
			config:  "ewelink:\n  accessToken: config-token\n  refreshToken: refresh\n",
			want:    "config-token",
			wantErr: assert.NoError,
		},
		{
			name:    "store",
			config:  "ewelink:\n  accessToken: config-token\n",
			store:   &fakeStore{token: &oauth2.Token{AccessToken: "stored-token"}},
			want:    "stored-token",
			wantErr: assert.NoError,
		},
		{
			name:    "empty store",
			config:  "ewelink:\n  accessToken: config-token\n",
			store:   &fakeStore{},
			want:    "config-token",
			wantErr: assert.NoError,
		},
		{
			name:    "store fails",
			config:  "ewelink:\n  accessToken: config-token\n",
			store:   &fakeStore{err: errors.New("corrupt")},
			wantErr: assert.Error,
		},
		{
			name:    "no token",
			config:  "ewelink:\n  region: eu\n",
			wantErr: assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := viper.New()
			v.SetConfigType("yaml")
			require.NoError(t, v.ReadConfig(strings.NewReader(tt.config)))

			var c interface{ Token() (*oauth2.Token, error) }
			var err error
			if tt.store != nil {
				c, err = NewClient(v, tt.store, nil, slog.Default())
			} else {
				c, err = NewClient(v, nil, nil, slog.Default())
			}
			tt.wantErr(t, err)
			if err != nil {
				return
			}
			token, err := c.Token()
			require.NoError(t, err)
			assert.Equal(t, tt.want, token.AccessToken)
		})
	}
}
