package caller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

type (
	HTTPMethod string

	// Request is a reusable request template. Every Build produces a fresh
	// *http.Request, so a single template can be sent by many clients.
	Request struct {
		ID       string            `bson:"id,omitempty" json:"id,omitempty"`
		Method   HTTPMethod        `bson:"method" json:"method"`
		URL      string            `bson:"url" json:"url"`
		Headers  map[string]string `bson:"headers,omitempty" json:"headers,omitempty"`
		Body     string            `bson:"body,omitempty" json:"body,omitempty"`
		Expected []int             `bson:"expected,omitempty" json:"expected,omitempty"`
	}
)

const (
	GET     HTTPMethod = "GET"
	HEAD    HTTPMethod = "HEAD"
	POST    HTTPMethod = "POST"
	PUT     HTTPMethod = "PUT"
	DELETE  HTTPMethod = "DELETE"
	PATCH   HTTPMethod = "PATCH"
	OPTIONS HTTPMethod = "OPTIONS"
)

// RequestIDHeader carries a fresh id on every built request.
const RequestIDHeader = "X-Request-Id"

var (
	ValidHTTPMethods = map[HTTPMethod]bool{
		GET:     true,
		HEAD:    true,
		POST:    true,
		PUT:     true,
		DELETE:  true,
		PATCH:   true,
		OPTIONS: true,
	}

	ErrInvalidMethod = errors.New("invalid HTTP method")
	ErrInvalidURL    = errors.New("invalid URL")
)

// NewRequest creates a validated template.
func NewRequest(method HTTPMethod, rawURL string) (*Request, error) {
	r := &Request{
		ID:     uuid.New().String(),
		Method: method,
		URL:    rawURL,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Get creates a GET template. Validation is deferred to Build.
func Get(rawURL string) *Request {
	return &Request{
		ID:     uuid.New().String(),
		Method: GET,
		URL:    rawURL,
	}
}

// NewRequestFromMap decodes a template from loosely typed attributes,
// e.g. a section of a config file.
func NewRequestFromMap(attributes map[string]any) (*Request, error) {
	r, err := convertToStruct[Request](attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if r.Method == "" {
		r.Method = GET
	}
	r.Method = HTTPMethod(strings.ToUpper(string(r.Method)))
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Request) WithHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}

func (r *Request) WithBody(contentType string, body string) *Request {
	r.Body = body
	return r.WithHeader("Content-Type", contentType)
}

// Expect replaces the accepted status codes. Without any, 2xx and 3xx are accepted.
func (r *Request) Expect(codes ...int) *Request {
	r.Expected = codes
	return r
}

func (r *Request) Validate() error {
	if !ValidHTTPMethods[r.Method] {
		return fmt.Errorf("%w: '%s'", ErrInvalidMethod, r.Method)
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: '%s' needs an http(s) scheme and a host", ErrInvalidURL, r.URL)
	}
	return nil
}

// Build creates a new *http.Request bound to ctx.
func (r *Request) Build(ctx context.Context) (*http.Request, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, string(r.Method), r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.New().String())
	}
	return req, nil
}

// Accepts reports whether code is an expected status.
func (r *Request) Accepts(code int) bool {
	if len(r.Expected) == 0 {
		return code >= 200 && code < 400
	}
	for _, expected := range r.Expected {
		if code == expected {
			return true
		}
	}
	return false
}

func (r *Request) String() string {
	return fmt.Sprintf("%s %s", r.Method, r.URL)
}

func convertToStruct[T any](source any) (T, error) {
	var result T

	raw, err := bson.Marshal(source)
	if err != nil {
		return result, fmt.Errorf("marshal error: %v", err)
	}

	err = bson.Unmarshal(raw, &result)
	if err != nil {
		return result, fmt.Errorf("unmarshal error: %v", err)
	}

	return result, nil
}
