package tg

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// DefaultAPIBaseURL is the public Bot API endpoint. Method URLs are built
// as <base>/bot<token>/<method>.
const DefaultAPIBaseURL = "https://api.telegram.org"

// Response is the envelope every Bot API method returns.
type Response struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Description string              `json:"description,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

// ResponseParameters explains why a request was unsuccessful.
type ResponseParameters struct {
	RetryAfter      int   `json:"retry_after,omitempty"`
	MigrateToChatID int64 `json:"migrate_to_chat_id,omitempty"`
}

// Err converts a failed envelope into an *APIError for method.
// It returns nil when the response is OK.
//
// retry_after is read from the JSON body first and the Retry-After header
// second; httpResp may be nil.
func (r *Response) Err(method string, httpResp *http.Response) error {
	if r.OK {
		return nil
	}
	if retryAfter := r.retryAfter(httpResp); retryAfter > 0 {
		return NewAPIErrorWithRetry(method, r.ErrorCode, r.Description, retryAfter)
	}
	return NewAPIError(method, r.ErrorCode, r.Description)
}

func (r *Response) retryAfter(httpResp *http.Response) time.Duration {
	if r.Parameters != nil && r.Parameters.RetryAfter > 0 {
		return time.Duration(r.Parameters.RetryAfter) * time.Second
	}
	if httpResp != nil {
		if h := httpResp.Header.Get("Retry-After"); h != "" {
			if seconds, err := strconv.Atoi(h); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}
	return 0
}
