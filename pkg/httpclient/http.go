package httpclient

import (
	"context"
	"net/http"
)

// BaseResponse is the transport-level view of an upstream reply. The decoded body is
// written into the result argument of the call.
type BaseResponse struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// IsSuccess reports a 2xx status.
func (r *BaseResponse) IsSuccess() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

type HTTPClient interface {
	Get(ctx context.Context, endpoint string, queryParams map[string]string, headers map[string]string, result interface{}) (*BaseResponse, error)
	Post(ctx context.Context, endpoint string, body interface{}, headers map[string]string, result interface{}) (*BaseResponse, error)
	Put(ctx context.Context, endpoint string, body interface{}, headers map[string]string, result interface{}) (*BaseResponse, error)
	Delete(ctx context.Context, endpoint string, headers map[string]string, result interface{}) (*BaseResponse, error)
}
