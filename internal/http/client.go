package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/spacetrack/internal/constants"
	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

// Client is the HTTP transport for Space-Track. It never retries on its
// own; rate limit retries are decided by the caller.
type Client struct {
	baseURL      string
	httpClient   *retryablehttp.Client
	logger       spacetrack.Logger
	debug        bool
	userAgent    string
	timeout      time.Duration
	customClient bool
}

// Request represents an HTTP request relative to the base URL.
type Request struct {
	Method string
	// Path is relative to the base URL and already escaped.
	Path    string
	Query   url.Values
	Form    url.Values
	File    *FilePart
	Headers map[string]string
}

// FilePart is the single file of a multipart upload.
type FilePart struct {
	Field    string
	FileName string
	Reader   io.Reader
}

// Option configures the HTTP client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger spacetrack.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug logs every request and response at debug level.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithHTTPClient sends requests through httpClient. The client is owned by
// the transport from then on; a session cookie jar is attached when its Jar
// is nil.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient.HTTPClient = httpClient
			c.customClient = true
		}
	}
}

// WithTimeout bounds the wait for response headers. Bodies may stream for
// longer. Ignored when WithHTTPClient supplies the transport.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient creates a new HTTP client for baseURL. A trailing slash is
// added to baseURL when missing.
func NewClient(baseURL string, opts ...Option) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.CheckRetry = neverRetry
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil

	client := &Client{
		baseURL:    baseURL,
		httpClient: retryClient,
		logger:     spacetrack.NopLogger{},
		userAgent:  constants.DefaultUserAgent,
		timeout:    constants.DefaultHTTPTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	if !client.customClient && client.timeout > 0 {
		if transport, ok := retryClient.HTTPClient.Transport.(*http.Transport); ok {
			transport.ResponseHeaderTimeout = client.timeout
		}
	}

	if retryClient.HTTPClient.Jar == nil {
		// Space-Track keeps the login session in a cookie.
		jar, err := cookiejar.New(nil)
		if err == nil {
			retryClient.HTTPClient.Jar = jar
		}
	}

	retryClient.Logger = &leveledLogger{logger: client.logger}
	if client.debug {
		retryClient.RequestLogHook = client.logRequest
		retryClient.ResponseLogHook = client.logResponse
	}

	return client
}

// BaseURL returns the normalised base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// NewRequest builds a sendable request. The body is buffered, so the
// request can be sent more than once.
func (c *Client) NewRequest(ctx context.Context, req *Request) (*retryablehttp.Request, error) {
	fullURL := c.baseURL + strings.TrimPrefix(req.Path, "/")
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	var (
		body        interface{}
		contentType string
	)

	switch {
	case req.File != nil:
		data, ct, err := encodeMultipart(req.File)
		if err != nil {
			return nil, err
		}

		body, contentType = data, ct
	case req.Form != nil:
		body = []byte(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-Id", uuid.NewString())

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
}

// Send sends req and returns the response with its body unread. Error
// statuses are not errors here; see CheckResponse.
func (c *Client) Send(req *retryablehttp.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}

		return nil, fmt.Errorf("%s %s: %w", req.Method, redactURL(req.URL), err)
	}

	return resp, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.HTTPClient.CloseIdleConnections()
}

// CheckResponse returns an *HTTPError when resp has an error status. body
// is the full response body; the server message is its JSON "error" field
// if present and non-empty, otherwise the raw body.
func CheckResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	httpErr := &spacetrack.HTTPError{
		StatusCode:    resp.StatusCode,
		Status:        resp.Status,
		ServerMessage: serverMessage(body, Charset(resp.Header.Get("Content-Type"))),
	}

	if resp.Request != nil {
		httpErr.Method = resp.Request.Method
		httpErr.URL = resp.Request.URL.String()
	}

	return httpErr
}

func serverMessage(body []byte, charset string) string {
	var payload map[string]interface{}

	err := json.Unmarshal(body, &payload)
	if err == nil {
		if msg, ok := payload["error"].(string); ok && msg != "" {
			return msg
		}
	}

	text, err := DecodeString(body, charset)
	if err != nil {
		return string(body)
	}

	return text
}

func encodeMultipart(file *FilePart) ([]byte, string, error) {
	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	field := file.Field
	if field == "" {
		field = "file"
	}

	fileName := file.FileName
	if fileName == "" {
		fileName = field
	}

	part, err := writer.CreateFormFile(field, fileName)
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}

	_, err = io.Copy(part, file.Reader)
	if err != nil {
		return nil, "", fmt.Errorf("copying file content: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

func (c *Client) logRequest(_ retryablehttp.Logger, req *http.Request, attempt int) {
	c.logger.Debug("HTTP request", map[string]interface{}{
		"method":     req.Method,
		"url":        redactURL(req.URL),
		"attempt":    attempt,
		"request_id": req.Header.Get("X-Request-Id"),
	})
}

func (c *Client) logResponse(_ retryablehttp.Logger, resp *http.Response) {
	fields := map[string]interface{}{
		"status": resp.StatusCode,
	}

	if resp.Request != nil {
		fields["method"] = resp.Request.Method
		fields["url"] = redactURL(resp.Request.URL)
		fields["request_id"] = resp.Request.Header.Get("X-Request-Id")
	}

	c.logger.Debug("HTTP response", fields)
}

func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	return u.Redacted()
}

func neverRetry(ctx context.Context, _ *http.Response, _ error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	return false, nil
}
