// Package cloud talks to the cloud identity endpoint (the JSXC external
// API of a Nextcloud instance) that answers password and user-existence
// queries.
package cloud

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/xcauth/internal/common"
	"github.com/dmitrijs2005/xcauth/internal/logging"
	"github.com/dmitrijs2005/xcauth/internal/observe"
	"go.opentelemetry.io/otel/attribute"
)

// ResultSuccess is the only result value that grants anything.
const ResultSuccess = "success"

// maxAnswerSize bounds the response body read from the endpoint.
const maxAnswerSize = 1 << 20

// Answer is the endpoint's JSON reply. Data is kept raw: its shape
// depends on the operation and only isuser reads it.
type Answer struct {
	Result string          `json:"result"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// IsUser reports whether Data carries a true or non-zero isUser field.
// Any other shape of Data reports false.
func (a *Answer) IsUser() bool {
	var data struct {
		IsUser any `json:"isUser"`
	}
	if len(a.Data) == 0 || json.Unmarshal(a.Data, &data) != nil {
		return false
	}
	switch v := data.IsUser.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return false
	}
}

// Client signs and sends requests to the cloud endpoint.
type Client struct {
	endpoint   string
	secret     []byte
	timeout    time.Duration
	header     string
	httpClient *http.Client
	logger     logging.Logger
	obs        *observe.Observer
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request. Default: 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient sets the underlying HTTP client. Its redirect policy is
// replaced: redirects are never followed.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithObserver records every call in obs.
func WithObserver(obs *observe.Observer) Option {
	return func(c *Client) { c.obs = obs }
}

// WithSignatureHeader overrides the name of the signature header.
func WithSignatureHeader(name string) Option {
	return func(c *Client) { c.header = name }
}

// NewClient creates a Client for endpoint, signing with secret.
func NewClient(endpoint string, secret []byte, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		secret:   secret,
		timeout:  10 * time.Second,
		header:   common.SignatureHeaderName,
		logger:   logging.Nop(),
		obs:      observe.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	var h http.Client
	if c.httpClient != nil {
		h = *c.httpClient
	}
	h.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	c.httpClient = &h

	return c
}

// Sign returns the signature header value for body: "sha1=" followed by
// the hex HMAC-SHA1 of body under secret.
func Sign(secret []byte, body string) string {
	mac := hmac.New(sha1.New, secret)
	mac.Write([]byte(body))
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

// Call posts form to the endpoint and decodes the answer. Errors match
// common.ErrCloudTransport, ErrCloudStatus or ErrCloudDecode.
func (c *Client) Call(ctx context.Context, form url.Values) (*Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := form.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", common.ErrCloudTransport, err)
	}

	req.Header.Set(c.header, Sign(c.secret, body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCloudTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxAnswerSize))
		return nil, fmt.Errorf("%w: %s", common.ErrCloudStatus, resp.Status)
	}

	answer := &Answer{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxAnswerSize)).Decode(answer); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCloudDecode, err)
	}

	return answer, nil
}

// call wraps Call with logging, metrics and a span. It returns nil on any
// failure; the caller treats that as a negative answer.
func (c *Client) call(ctx context.Context, form url.Values) *Answer {
	op := form.Get("operation")
	jid := form.Get("username") + "@" + form.Get("domain")

	ctx, span := c.obs.StartSpan(ctx, "cloud."+op, attribute.String("xmpp.domain", form.Get("domain")))
	start := time.Now()

	answer, err := c.Call(ctx, form)

	outcome := callOutcome(answer, err)
	c.obs.RecordCloudCall(ctx, op, outcome, time.Since(start))
	observe.EndSpan(span, outcome == ResultSuccess, err)

	if err != nil {
		c.logger.Warn(ctx, "cloud request failed", "operation", op, "jid", jid, "error", err.Error())
		return nil
	}

	c.logger.Debug(ctx, "cloud answered", "operation", op, "jid", jid, "result", answer.Result)
	return answer
}

func callOutcome(answer *Answer, err error) string {
	switch {
	case errors.Is(err, common.ErrCloudStatus):
		return "status"
	case errors.Is(err, common.ErrCloudDecode):
		return "decode"
	case err != nil:
		return "transport"
	case answer.Result == ResultSuccess:
		return ResultSuccess
	default:
		return "failure"
	}
}

// VerifyPassword asks the cloud whether password is valid for
// username@domain.
func (c *Client) VerifyPassword(ctx context.Context, username, domain, password string) bool {
	answer := c.call(ctx, url.Values{
		"operation": {common.OperationAuth},
		"username":  {username},
		"domain":    {domain},
		"password":  {password},
	})

	return answer != nil && answer.Result == ResultSuccess
}

// IsUser asks the cloud whether username@domain exists.
func (c *Client) IsUser(ctx context.Context, username, domain string) bool {
	answer := c.call(ctx, url.Values{
		"operation": {common.OperationIsUser},
		"username":  {username},
		"domain":    {domain},
	})

	return answer != nil && answer.Result == ResultSuccess && answer.IsUser()
}
