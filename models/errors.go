package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeFetchFailed        = "FETCH_FAILED"
	ErrCodeRenderLaunchFailed = "RENDER_LAUNCH_FAILED"
	ErrCodeRenderTimeout      = "RENDER_TIMEOUT"
	ErrCodeNavigation         = "NAVIGATION_FAILED"
	ErrCodeBrowserUnavailable = "BROWSER_UNAVAILABLE"
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// Pipeline stages an error can originate from.
const (
	StageFetch     = "fetch"
	StageRender    = "render"
	StageIntercept = "intercept"
	StageExtract   = "extract"
	StageInput     = "input"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Stage string `json:"stage,omitempty"`
}

// PipelineError is the internal error type carrying an error code and the
// pipeline stage that produced it. It supports wrapping via Unwrap.
type PipelineError struct {
	Code    string
	Stage   string
	Message string
	Err     error // wrapped original error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Code, e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Code, e.Stage, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a new PipelineError.
func NewPipelineError(code, stage, message string, err error) *PipelineError {
	return &PipelineError{Code: code, Stage: stage, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *PipelineError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Error: e.Message, Code: e.Code, Stage: e.Stage}
}

// WithStage returns a copy of e attributed to stage. Errors raised by the
// render driver carry StageRender; the tracking flow relabels them.
func (e *PipelineError) WithStage(stage string) *PipelineError {
	cp := *e
	cp.Stage = stage
	return &cp
}
