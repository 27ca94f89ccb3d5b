// Package ewelinktools creates the eWeLink client from the configuration.
package ewelinktools

import (
	"errors"
	"fmt"
	"github.com/clambin/go-common/http/metrics"
	"github.com/clambin/go-common/http/roundtripper"
	"github.com/clambin/opendoor/internal/ewelink"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
	"log/slog"
	"net/http"
	"strconv"
)

var ErrNoToken = errors.New("no eWeLink token configured")

// Config returns the eWeLink application configuration.
func Config(v *viper.Viper) ewelink.Config {
	return ewelink.Config{
		Region:    v.GetString("ewelink.region"),
		AppID:     v.GetString("ewelink.appId"),
		AppSecret: v.GetString("ewelink.appSecret"),
		APIKey:    v.GetString("ewelink.apiKey"),
	}
}

// NewClient returns an eWeLink client. It uses the token saved in the store, if there is one, or the one in the
// configuration. store and requestMetrics may be nil.
func NewClient(v *viper.Viper, store ewelink.TokenStore, requestMetrics metrics.RequestMetrics, logger *slog.Logger) (*ewelink.Client, error) {
	token, err := initialToken(v, store)
	if err != nil {
		return nil, err
	}
	var rt http.RoundTripper = http.DefaultTransport
	if requestMetrics != nil {
		rt = instrumentedRoundTripper(rt, requestMetrics)
	}
	return ewelink.New(Config(v), token, store, rt, logger), nil
}

func initialToken(v *viper.Viper, store ewelink.TokenStore) (*oauth2.Token, error) {
	if store != nil {
		token, err := store.LoadToken()
		if err != nil {
			return nil, fmt.Errorf("token store: %w", err)
		}
		if token != nil {
			return token, nil
		}
	}
	token := oauth2.Token{
		AccessToken:  v.GetString("ewelink.accessToken"),
		RefreshToken: v.GetString("ewelink.refreshToken"),
		TokenType:    "Bearer",
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, ErrNoToken
	}
	return &token, nil
}

func instrumentedRoundTripper(rt http.RoundTripper, requestMetrics metrics.RequestMetrics) http.RoundTripper {
	return roundtripper.New(
		roundtripper.WithRequestMetrics(requestMetrics),
		roundtripper.WithRoundTripper(rt),
	)
}

// NewRequestMetrics measures the calls to the eWeLink API.
func NewRequestMetrics(namespace, subsystem string, labels prometheus.Labels) metrics.RequestMetrics {
	return metrics.NewRequestMetrics(metrics.Options{
		Namespace:   namespace,
		Subsystem:   subsystem,
		ConstLabels: labels,
		LabelValues: func(request *http.Request, code int) (string, string, string) {
			path := request.URL.Path
			if path == "" {
				path = "/"
			}
			return request.Method, path, strconv.Itoa(code)
		},
	})
}
