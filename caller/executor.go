package caller

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBodySize bounds how much of a response body Execute keeps.
const maxBodySize = 1 << 20

type (
	Response struct {
		StatusCode int
		Header     http.Header
		Body       []byte
		Latency    time.Duration
	}

	// StatusError reports a response whose status the template does not accept.
	StatusError struct {
		StatusCode int
		Status     string
		Body       string
	}
)

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s, body: %s", e.Status, e.Body)
}

// Execute sends the template through client and reads the response.
// The body is always drained so that the connection can be reused.
func (r *Request) Execute(ctx context.Context, client *http.Client) (*Response, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := r.Build(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request %s: %w", r, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	result := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Latency:    time.Since(start),
	}

	if !r.Accepts(resp.StatusCode) {
		return result, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       truncate(string(body), 256),
		}
	}
	return result, nil
}

// String returns the body as text.
func (r *Response) String() string {
	return string(r.Body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
