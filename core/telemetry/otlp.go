// Package telemetry relays browser trace exports to the observability collector.
package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/proxy"
)

const tracesPath = "/v1/traces"

// ParseHeaders reads the OTLP "KEY=VALUE,KEY=VALUE" header list. Values are URL-decoded;
// pairs without a key or "=" are skipped.
func ParseHeaders(s string) http.Header {
	header := make(http.Header)
	pairs := lo.FilterMap(strings.Split(s, ","), func(pair string, _ int) ([2]string, bool) {
		idx := strings.Index(pair, "=")
		if idx <= 0 {
			return [2]string{}, false
		}
		key := strings.TrimSpace(pair[:idx])
		val := strings.TrimSpace(pair[idx+1:])
		if decoded, err := url.QueryUnescape(val); err == nil {
			val = decoded
		}
		return [2]string{key, val}, key != ""
	})
	for _, kv := range pairs {
		header.Add(kv[0], kv[1])
	}
	return header
}

type Forwarder struct {
	endpoint string
	headers  http.Header
	client   proxy.Doer
}

// NewForwarder returns a Forwarder for conf. A nil client means http.DefaultClient.
func NewForwarder(conf core.TelemetryConfig, client proxy.Doer) *Forwarder {
	if client == nil {
		client = http.DefaultClient
	}
	return &Forwarder{
		endpoint: strings.TrimRight(conf.Endpoint, "/"),
		headers:  ParseHeaders(conf.Headers),
		client:   client,
	}
}

// TracesURL returns the collector URL traces are posted to.
func (f *Forwarder) TracesURL() string {
	if strings.HasSuffix(f.endpoint, tracesPath) {
		return f.endpoint
	}
	return f.endpoint + tracesPath
}

// ForwardTraces posts an OTLP payload to the collector with the server-held auth headers.
func (f *Forwarder) ForwardTraces(ctx context.Context, contentType string, body io.Reader) (*proxy.Reply, error) {
	if f.endpoint == "" {
		return nil, core.NewConfigError("GRAFANA_OTLP_ENDPOINT")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.TracesURL(), body)
	if err != nil {
		return nil, errors.Wrap(err, "building OTLP request")
	}
	for key, vals := range f.headers {
		req.Header[key] = append([]string(nil), vals...)
	}
	if contentType == "" {
		contentType = "application/x-protobuf"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, core.NewUpstreamError("OTLP collector", 0, err)
	}
	reply, err := proxy.Decode(resp)
	if err != nil {
		return nil, core.NewUpstreamError("OTLP collector", 0, err)
	}
	return reply, nil
}
