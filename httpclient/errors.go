// ABOUTME: Error type returned by FetchJSON for non-2xx responses.
// ABOUTME: Carries the status code so auth error checks can inspect it.

package httpclient

import "fmt"

// HTTPError is a rejected response. Message is taken from the body's
// "message" or "detail" field when present, else the status text.
type HTTPError struct {
	Status  int
	Message string
	Body    any
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// StatusCode exposes the HTTP status to callers that only see an error.
func (e *HTTPError) StatusCode() int {
	return e.Status
}

func newHTTPError(resp *Response) *HTTPError {
	msg := resp.StatusText
	if obj, ok := resp.JSON.(map[string]any); ok {
		for _, key := range []string{"message", "detail"} {
			if s, ok := obj[key].(string); ok && s != "" {
				msg = s
				break
			}
		}
	}
	return &HTTPError{
		Status:  resp.Status,
		Message: msg,
		Body:    resp.JSON,
	}
}
