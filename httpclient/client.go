// ABOUTME: HTTP client contract injected into the data and auth providers.
// ABOUTME: Defines request options, decoded responses, and the default JSON fetcher.

package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Client performs one HTTP call. Implementations decide what counts as a
// failure; FetchJSON rejects every non-2xx status with *HTTPError.
type Client interface {
	Do(ctx context.Context, url string, opts *Options) (*Response, error)
}

// ClientFunc adapts a plain function to the Client interface.
type ClientFunc func(ctx context.Context, url string, opts *Options) (*Response, error)

func (f ClientFunc) Do(ctx context.Context, url string, opts *Options) (*Response, error) {
	return f(ctx, url, opts)
}

// User carries the credentials FetchJSON turns into an Authorization header.
type User struct {
	Authenticated bool
	Token         string // full header value, e.g. "Token abc123"
}

// Options describes a single request. A nil *Options means a plain GET.
type Options struct {
	Method string
	Header http.Header
	Body   io.Reader
	User   *User
}

// Response is a completed HTTP exchange with its body already read.
type Response struct {
	Status     int
	StatusText string
	Header     http.Header
	Body       []byte
	JSON       any // nil when the body is empty or not JSON
}

// DecodeJSON unmarshals the response into v. Responses built by custom
// clients may only set JSON, so that is re-encoded when Body is empty.
func (r *Response) DecodeJSON(v any) error {
	raw := r.Body
	if len(raw) == 0 {
		if r.JSON == nil {
			return fmt.Errorf("response has no JSON body")
		}
		var err error
		raw, err = json.Marshal(r.JSON)
		if err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, v)
}

// FetchJSON returns a Client that sends JSON requests with hc (or
// http.DefaultClient when nil) and rejects non-2xx responses.
func FetchJSON(hc *http.Client) Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return ClientFunc(func(ctx context.Context, url string, opts *Options) (*Response, error) {
		if opts == nil {
			opts = &Options{}
		}
		method := opts.Method
		if method == "" {
			method = http.MethodGet
		}

		req, err := http.NewRequestWithContext(ctx, method, url, opts.Body)
		if err != nil {
			return nil, err
		}
		for key, values := range opts.Header {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}
		if req.Header.Get("Accept") == "" {
			req.Header.Set("Accept", "application/json")
		}
		if opts.Body != nil && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}
		if opts.User != nil && opts.User.Authenticated && opts.User.Token != "" {
			req.Header.Set("Authorization", opts.User.Token)
		}

		resp, err := hc.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		out := &Response{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Header:     resp.Header,
			Body:       body,
		}
		if len(bytes.TrimSpace(body)) > 0 {
			var decoded any
			if json.Unmarshal(body, &decoded) == nil {
				out.JSON = decoded
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, newHTTPError(out)
		}
		return out, nil
	})
}
