package soap

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/google/uuid"

	"github.com/soapcall/soapcall/pkg/loader"
	"github.com/soapcall/soapcall/pkg/logging"
	"github.com/soapcall/soapcall/pkg/wsdl"
)

// maxResponseSize bounds how much of a response body is read into memory.
const maxResponseSize = 64 << 20 // 64MB

// rootContentID identifies the envelope part of an outgoing multipart
// request.
const rootContentID = "root.envelope@soapcall"

// Client dispatches SOAP calls: resolve operation, build envelope, invoke
// the HTTP transport, decode the response. A Client mutates no shared state
// during a call and is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	doc        *wsdl.Document
	version    Version
	endpoint   string
	namespace  string
	headers    http.Header
	cookies    []*http.Cookie
}

// Option configures a Client.
type Option func(*Client)

// WithWSDL attaches a parsed WSDL document; operations then resolve against
// its catalog.
func WithWSDL(doc *wsdl.Document) Option {
	return func(c *Client) { c.doc = doc }
}

// WithEndpoint sets a global endpoint override.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithNamespace sets a global target namespace override, required in
// schema-less mode.
func WithNamespace(ns string) Option {
	return func(c *Client) { c.namespace = ns }
}

// WithVersion selects the SOAP version. Defaults to 1.1.
func WithVersion(v Version) Option {
	return func(c *Client) { c.version = v }
}

// WithHTTPClient injects the HTTP transport. Timeouts and TLS settings
// belong here; the Client itself never retries.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHeader adds an HTTP header sent with every call.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Add(key, value) }
}

// WithCookie adds a cookie sent with every call.
func WithCookie(cookie *http.Cookie) Option {
	return func(c *Client) { c.cookies = append(c.cookies, cookie) }
}

// New builds a Client. Without a WSDL it runs in schema-less mode: any valid
// operation identifier is accepted and endpoint plus namespace must be set
// via options.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		logger:     logging.Nop(),
		version:    V11,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromWSDL fetches and parses the WSDL at location, then builds a Client
// bound to it. ld defaults to the standard loader.
func NewFromWSDL(ctx context.Context, location string, ld loader.Loader, opts ...Option) (*Client, error) {
	if ld == nil {
		ld = loader.New(nil)
	}
	data, err := ld.Load(ctx, location)
	if err != nil {
		return nil, err
	}
	doc, err := wsdl.Parse(ctx, data, location, ld)
	if err != nil {
		return nil, err
	}
	return New(append([]Option{WithWSDL(doc)}, opts...)...), nil
}

// WSDL returns the attached WSDL document, nil in schema-less mode.
func (c *Client) WSDL() *wsdl.Document {
	return c.doc
}

// CallOption adjusts a single call.
type CallOption func(*callOptions)

type callOptions struct {
	action      string
	endpoint    string
	header      Mapping
	attachments []Attachment
}

// Action overrides the SOAP action for this call. Takes precedence over the
// WSDL-declared action and the name-derived fallback.
func Action(action string) CallOption {
	return func(o *callOptions) { o.action = action }
}

// To overrides the endpoint for this call.
func To(endpoint string) CallOption {
	return func(o *callOptions) { o.endpoint = endpoint }
}

// Header adds SOAP header entries to the envelope.
func Header(entries Mapping) CallOption {
	return func(o *callOptions) { o.header = append(o.header, entries...) }
}

// Attach adds attachments; the envelope then travels as the root part of a
// MIME multipart/related request.
func Attach(attachments ...Attachment) CallOption {
	return func(o *callOptions) { o.attachments = append(o.attachments, attachments...) }
}

// Request is a fully built SOAP request that has not been sent. Useful for
// inspection and testing.
type Request struct {
	Method    string
	URL       string
	Header    http.Header
	Body      []byte
	Operation *ResolvedOperation
}

// Request resolves the operation and builds the HTTP request that Call
// would send, without sending it.
func (c *Client) Request(ctx context.Context, name string, params Mapping, opts ...CallOption) (*Request, error) {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	endpoint := co.endpoint
	if endpoint == "" {
		endpoint = c.endpoint
	}
	op, err := Resolve(name, c.doc, Overrides{
		Endpoint:   endpoint,
		Namespace:  c.namespace,
		SOAPAction: co.action,
	})
	if err != nil {
		return nil, err
	}

	envelope, err := BuildEnvelope(op, params, co.header, c.version)
	if err != nil {
		return nil, err
	}

	body := []byte(envelope)
	header := make(http.Header)
	for key, values := range c.headers {
		for _, v := range values {
			header.Add(key, v)
		}
	}

	contentType := c.version.ContentType()
	if c.version == V11 {
		header.Set("SOAPAction", strconv.Quote(op.SOAPAction))
	} else if op.SOAPAction != "" {
		// SOAP 1.2 carries the action as a content type parameter.
		contentType = contentType + `; action="` + op.SOAPAction + `"`
	}

	if len(co.attachments) > 0 {
		body, contentType, err = wrapMultipart(body, contentType, co.attachments)
		if err != nil {
			return nil, err
		}
	}

	header.Set("Content-Type", contentType)
	header.Set("Content-Length", strconv.Itoa(len(body)))

	return &Request{
		Method:    http.MethodPost,
		URL:       op.Endpoint,
		Header:    header,
		Body:      body,
		Operation: op,
	}, nil
}

// Call performs the full round trip: resolve, build, send, decode.
//
// Transport failures and HTTP status >= 400 come back as *HTTPError carrying
// the original response body. A decoded SOAP Fault comes back as a
// *FaultError alongside the decoded Response.
func (c *Client) Call(ctx context.Context, name string, params Mapping, opts ...CallOption) (*Response, error) {
	req, err := c.Request(ctx, name, params, opts...)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, &HTTPError{URL: req.URL, Cause: err}
	}
	httpReq.Header = req.Header
	httpReq.ContentLength = int64(len(req.Body))
	for _, cookie := range c.cookies {
		httpReq.AddCookie(cookie)
	}

	c.logger.Debug("dispatching soap call",
		"operation", name,
		"endpoint", req.URL,
		"action", req.Operation.SOAPAction,
		"bytes", len(req.Body))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &HTTPError{URL: req.URL, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &HTTPError{URL: req.URL, StatusCode: resp.StatusCode, Status: resp.Status, Cause: err}
	}

	c.logger.Debug("soap response received",
		"operation", name,
		"status", resp.StatusCode,
		"bytes", len(respBody))

	if resp.StatusCode >= 400 {
		httpErr := &HTTPError{
			URL:        req.URL,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       respBody,
		}
		// Fault responses commonly ride a 500; surface the fault as the
		// cause so callers can errors.As either way.
		if decoded, decodeErr := Decode(resp.Header.Get("Content-Type"), respBody); decodeErr == nil && decoded.Fault != nil {
			httpErr.Cause = decoded.Fault
		}
		return nil, httpErr
	}

	decoded, err := Decode(resp.Header.Get("Content-Type"), respBody)
	if err != nil {
		return nil, err
	}
	if decoded.Fault != nil {
		return decoded, decoded.Fault
	}
	return decoded, nil
}

// wrapMultipart wraps the envelope as the root part of a multipart/related
// message, followed by the attachments.
func wrapMultipart(envelope []byte, envelopeType string, attachments []Attachment) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.SetBoundary("soapcall-" + uuid.NewString()); err != nil {
		return nil, "", err
	}

	rootHeader := make(textproto.MIMEHeader)
	rootHeader.Set("Content-Type", envelopeType)
	rootHeader.Set("Content-Transfer-Encoding", "8bit")
	rootHeader.Set("Content-ID", "<"+rootContentID+">")
	root, err := writer.CreatePart(rootHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := root.Write(envelope); err != nil {
		return nil, "", err
	}

	for _, a := range attachments {
		contentID := a.ContentID
		if contentID == "" {
			contentID = uuid.NewString() + "@soapcall"
		}
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		partHeader := make(textproto.MIMEHeader)
		partHeader.Set("Content-Type", contentType)
		partHeader.Set("Content-Transfer-Encoding", "binary")
		partHeader.Set("Content-ID", "<"+contentID+">")
		part, err := writer.CreatePart(partHeader)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(a.Content); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	contentType := `multipart/related; type="text/xml"; start="<` + rootContentID + `>"; boundary="` + writer.Boundary() + `"`
	return buf.Bytes(), contentType, nil
}
