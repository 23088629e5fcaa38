// Package proxy forwards inbound requests to an upstream service and decodes its answer.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// MethodOverrideParam lets GET/POST-only transports (navigator.sendBeacon) ask for another verb.
const MethodOverrideParam = "_method"

var (
	// DeniedHeaders never reach the upstream.
	DeniedHeaders = []string{
		"Host",
		"Connection",
		"Content-Length",
		"Accept-Encoding",
		"X-Forwarded-For",
		"X-Forwarded-Host",
		"X-Forwarded-Proto",
	}
	deniedHeaders = lo.Associate(DeniedHeaders, func(h string) (string, struct{}) {
		return http.CanonicalHeaderKey(h), struct{}{}
	})

	// ErrProxy is the only failure the caller gets to see.
	ErrProxy = errors.New("API proxy error")
)

// NewClient returns a client that waits at most headerTimeout for response headers.
// Bodies are not bounded, so long binary replies stream to completion.
func NewClient(headerTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: transport}
}

// Doer sends HTTP requests; *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Forwarder struct {
	base   string
	client Doer
}

// NewForwarder returns a Forwarder rooted at base. A nil client means http.DefaultClient.
func NewForwarder(base string, client Doer) *Forwarder {
	if client == nil {
		client = http.DefaultClient
	}
	return &Forwarder{
		base:   strings.TrimRight(base, "/"),
		client: client,
	}
}

// Base returns the upstream base URL.
func (f *Forwarder) Base() string {
	return f.base
}

// Reply is a decoded upstream response.
type Reply struct {
	Status      int
	ContentType string
	// JSON holds the body when the upstream answered with JSON.
	JSON json.RawMessage
	// Body streams any other payload; nil for JSON and 204 replies. Callers must close it.
	Body io.ReadCloser
}

// IsEmpty reports whether the upstream answered 204 No Content.
func (r *Reply) IsEmpty() bool {
	return r.Status == http.StatusNoContent
}

// FilterHeaders copies in without the DeniedHeaders.
func FilterHeaders(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for key, vals := range in {
		if _, denied := deniedHeaders[http.CanonicalHeaderKey(key)]; denied {
			continue
		}
		out[key] = append([]string(nil), vals...)
	}
	return out
}

// EffectiveMethod returns the verb to forward: the _method override when present, else r.Method.
func EffectiveMethod(r *http.Request) string {
	if m := strings.TrimSpace(r.URL.Query().Get(MethodOverrideParam)); m != "" {
		return strings.ToUpper(m)
	}
	return r.Method
}

// ForwardQuery encodes q without the method override.
func ForwardQuery(q url.Values) string {
	fwd := make(url.Values, len(q))
	for key, vals := range q {
		if key == MethodOverrideParam {
			continue
		}
		fwd[key] = vals
	}
	return fwd.Encode()
}

// URL returns the upstream URL for suffix and the inbound query.
func (f *Forwarder) URL(suffix string, q url.Values) string {
	u := f.base + suffix
	if rawQuery := ForwardQuery(q); rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

// NewRequest builds the upstream request for r. suffix is appended verbatim to the base URL.
func (f *Forwarder) NewRequest(ctx context.Context, r *http.Request, suffix string) (*http.Request, error) {
	method := EffectiveMethod(r)
	header := FilterHeaders(r.Header)

	var body io.Reader
	if method != http.MethodGet && method != http.MethodHead && r.Body != nil {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, errors.Wrap(err, "reading request body")
		}
		if header.Get("Content-Type") == "" && len(raw) > 0 && json.Valid(raw) {
			header.Set("Content-Type", "application/json")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, f.URL(suffix, r.URL.Query()), body)
	if err != nil {
		return nil, errors.Wrap(err, "building upstream request")
	}
	req.Header = header
	return req, nil
}

// Forward sends r upstream and decodes the answer. Any failure is wrapped around ErrProxy;
// nothing is retried.
func (f *Forwarder) Forward(ctx context.Context, r *http.Request, suffix string) (*Reply, error) {
	req, err := f.NewRequest(ctx, r, suffix)
	if err != nil {
		return nil, wrapProxyErr(err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, wrapProxyErr(errors.Wrap(err, "calling upstream"))
	}

	reply, err := Decode(resp)
	if err != nil {
		return nil, wrapProxyErr(err)
	}
	return reply, nil
}

// Decode turns resp into a Reply, consuming and closing the body unless it is streamed.
func Decode(resp *http.Response) (*Reply, error) {
	reply := &Reply{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		_ = resp.Body.Close()
		reply.ContentType = ""
	case strings.Contains(reply.ContentType, "application/json"):
		defer func() { _ = resp.Body.Close() }()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "reading upstream body")
		}
		if !json.Valid(raw) {
			return nil, errors.New("upstream sent malformed JSON")
		}
		reply.JSON = raw
	default:
		if reply.ContentType == "" {
			reply.ContentType = "application/octet-stream"
		}
		reply.Body = resp.Body
	}
	return reply, nil
}

type proxyError struct {
	cause error
}

func wrapProxyErr(cause error) error {
	return &proxyError{cause: cause}
}

func (e *proxyError) Error() string {
	return ErrProxy.Error() + ": " + e.cause.Error()
}

// Cause lets errors.Cause resolve to ErrProxy.
func (e *proxyError) Cause() error {
	return ErrProxy
}

// Unwrap exposes the underlying failure for logging.
func (e *proxyError) Unwrap() error {
	return e.cause
}
