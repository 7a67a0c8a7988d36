package cloud

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/xcauth/internal/common"
	"github.com/dmitrijs2005/xcauth/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("shared-secret")

type captured struct {
	method      string
	contentType string
	signature   string
	body        string
	form        url.Values
}

// newEndpoint starts a fake cloud endpoint replying with status and body.
func newEndpoint(t *testing.T, status int, body string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.contentType = r.Header.Get("Content-Type")
		got.signature = r.Header.Get("X-JSXC-SIGNATURE")
		b, _ := io.ReadAll(r.Body)
		got.body = string(b)
		got.form, _ = url.ParseQuery(got.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts, got
}

func TestSign(t *testing.T) {
	// HMAC-SHA1("key", "The quick brown fox jumps over the lazy dog")
	assert.Equal(t, "sha1=de7c9b85b8b78aa6bc8a7a36f70a90701c9db4d9",
		Sign([]byte("key"), "The quick brown fox jumps over the lazy dog"))
}

func TestClient_VerifyPassword_SignedFormRequest(t *testing.T) {
	ts, got := newEndpoint(t, http.StatusOK, `{"result":"success"}`)
	c := NewClient(ts.URL, testSecret)

	ok := c.VerifyPassword(context.Background(), "alice", "example.com", "pa:ss&word=1")
	require.True(t, ok)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "application/x-www-form-urlencoded", got.contentType)
	assert.Equal(t, Sign(testSecret, got.body), got.signature)
	assert.Equal(t, "auth", got.form.Get("operation"))
	assert.Equal(t, "alice", got.form.Get("username"))
	assert.Equal(t, "example.com", got.form.Get("domain"))
	assert.Equal(t, "pa:ss&word=1", got.form.Get("password"))
}

func TestClient_VerifyPassword_Answers(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{name: "success", status: http.StatusOK, body: `{"result":"success"}`, want: true},
		{name: "created counts as 2xx", status: http.StatusCreated, body: `{"result":"success"}`, want: true},
		{name: "noauth", status: http.StatusOK, body: `{"result":"noauth"}`},
		{name: "error result", status: http.StatusOK, body: `{"result":"error","data":{"msg":"x"}}`},
		{name: "missing result", status: http.StatusOK, body: `{}`},
		{name: "success with empty array data", status: http.StatusOK, body: `{"result":"success","data":[]}`, want: true},
		{name: "success with string data", status: http.StatusOK, body: `{"result":"success","data":"x"}`, want: true},
		{name: "success with numeric isUser", status: http.StatusOK, body: `{"result":"success","data":{"isUser":1}}`, want: true},
		{name: "server error", status: http.StatusInternalServerError, body: `{"result":"success"}`},
		{name: "forbidden", status: http.StatusForbidden, body: ``},
		{name: "malformed json", status: http.StatusOK, body: `<html>`},
		{name: "empty body", status: http.StatusOK, body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _ := newEndpoint(t, tt.status, tt.body)
			c := NewClient(ts.URL, testSecret)
			assert.Equal(t, tt.want, c.VerifyPassword(context.Background(), "alice", "example.com", "pw"))
		})
	}
}

func TestClient_IsUser_Answers(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{name: "exists", body: `{"result":"success","data":{"isUser":true}}`, want: true},
		{name: "does not exist", body: `{"result":"success","data":{"isUser":false}}`},
		{name: "no data", body: `{"result":"success"}`},
		{name: "numeric isUser", body: `{"result":"success","data":{"isUser":1}}`, want: true},
		{name: "zero isUser", body: `{"result":"success","data":{"isUser":0}}`},
		{name: "empty array data", body: `{"result":"success","data":[]}`},
		{name: "string data", body: `{"result":"success","data":"x"}`},
		{name: "null data", body: `{"result":"success","data":null}`},
		{name: "failure with isUser", body: `{"result":"error","data":{"isUser":true}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, got := newEndpoint(t, http.StatusOK, tt.body)
			c := NewClient(ts.URL, testSecret)

			assert.Equal(t, tt.want, c.IsUser(context.Background(), "bob", "example.com"))
			assert.Equal(t, "isuser", got.form.Get("operation"))
			assert.False(t, got.form.Has("password"))
		})
	}
}

func TestClient_Call_ErrorKinds(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		ts, _ := newEndpoint(t, http.StatusBadGateway, "")
		_, err := NewClient(ts.URL, testSecret).Call(context.Background(), url.Values{"operation": {"auth"}})
		assert.ErrorIs(t, err, common.ErrCloudStatus)
	})

	t.Run("decode", func(t *testing.T) {
		ts, _ := newEndpoint(t, http.StatusOK, "not json")
		_, err := NewClient(ts.URL, testSecret).Call(context.Background(), url.Values{"operation": {"auth"}})
		assert.ErrorIs(t, err, common.ErrCloudDecode)
	})

	t.Run("transport", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()
		_, err := NewClient(ts.URL, testSecret).Call(context.Background(), url.Values{"operation": {"auth"}})
		assert.ErrorIs(t, err, common.ErrCloudTransport)
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := NewClient("://nope", testSecret).Call(context.Background(), url.Values{})
		assert.ErrorIs(t, err, common.ErrCloudTransport)
	})
}

func TestClient_DoesNotFollowRedirects(t *testing.T) {
	var followed atomic.Bool
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		followed.Store(true)
		_, _ = io.WriteString(w, `{"result":"success"}`)
	}))
	t.Cleanup(target.Close)

	redirector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusTemporaryRedirect)
	}))
	t.Cleanup(redirector.Close)

	c := NewClient(redirector.URL, testSecret, WithHTTPClient(&http.Client{}))

	assert.False(t, c.VerifyPassword(context.Background(), "alice", "example.com", "pw"))
	assert.False(t, followed.Load(), "redirect target must not be contacted")
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		ts.Close()
	})

	c := NewClient(ts.URL, testSecret, WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := c.Call(context.Background(), url.Values{"operation": {"auth"}})
	assert.ErrorIs(t, err, common.ErrCloudTransport)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_LogsFailuresWithoutPassword(t *testing.T) {
	ts, _ := newEndpoint(t, http.StatusInternalServerError, "")
	var buf bytes.Buffer
	c := NewClient(ts.URL, testSecret, WithLogger(logging.NewTextLogger(&buf, true)))

	require.False(t, c.VerifyPassword(context.Background(), "alice", "example.com", "hunter2"))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "jid=alice@example.com")
	assert.NotContains(t, out, "hunter2")
}

func TestClient_CustomSignatureHeader(t *testing.T) {
	var header string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("X-Custom-Signature")
		_, _ = io.WriteString(w, `{"result":"success"}`)
	}))
	t.Cleanup(ts.Close)

	c := NewClient(ts.URL, testSecret, WithSignatureHeader("X-Custom-Signature"))
	require.True(t, c.VerifyPassword(context.Background(), "a", "b", "c"))
	assert.Contains(t, header, "sha1=")
}
