package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	arkmodel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"google.golang.org/genai"
)

var (
	ErrAuth      = errors.New("provider rejected credentials")
	ErrTransient = errors.New("provider temporarily unavailable")
	ErrProvider  = errors.New("provider error")
	ErrTimeout   = errors.New("provider timed out")
)

// Kind classifies a completion failure.
type Kind string

const (
	KindAuth      Kind = "auth"
	KindTransient Kind = "transient"
	KindProvider  Kind = "provider"
	KindTimeout   Kind = "timeout"
)

// Failure is the error returned by Gateway.Complete.
type Failure struct {
	Kind   Kind
	Status int
	Err    error
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("completion failed (%s, status %d): %v", f.Kind, f.Status, f.Err)
	}
	return fmt.Sprintf("completion failed (%s): %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Is lets errors.Is match the sentinel for the failure kind.
func (f *Failure) Is(target error) bool {
	switch target {
	case ErrAuth:
		return f.Kind == KindAuth
	case ErrTransient:
		return f.Kind == KindTransient
	case ErrProvider:
		return f.Kind == KindProvider
	case ErrTimeout:
		return f.Kind == KindTimeout
	}
	return false
}

// Retryable reports whether repeating the same request may succeed.
func (f *Failure) Retryable() bool {
	return f.Kind == KindTransient || f.Kind == KindTimeout
}

// Classify turns a raw provider error into a *Failure.
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}

	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Failure{Kind: KindTransient, Err: err}
	}

	if status := statusCode(err); status != 0 {
		return &Failure{Kind: kindForStatus(status), Status: status, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &Failure{Kind: KindTimeout, Err: err}
		}
		return &Failure{Kind: KindTransient, Err: err}
	}

	return &Failure{Kind: KindProvider, Err: err}
}

func statusCode(err error) int {
	var arkAPIErr *arkmodel.APIError
	if errors.As(err, &arkAPIErr) {
		return arkAPIErr.HTTPStatusCode
	}
	var arkReqErr *arkmodel.RequestError
	if errors.As(err, &arkReqErr) {
		return arkReqErr.HTTPStatusCode
	}
	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return genaiErr.Code
	}
	var genaiPtrErr *genai.APIError
	if errors.As(err, &genaiPtrErr) {
		return genaiPtrErr.Code
	}
	return 0
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status == http.StatusTooManyRequests || status >= 500:
		return KindTransient
	default:
		return KindProvider
	}
}
