package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/florex/pkg/errorbank"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ErrorBody     `json:"error,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// ErrorBody describes a failed request. Kind is one of the errorbank kinds
// and Details carries per-field or per-id context.
type ErrorBody struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Builder helps construct consistent HTTP responses.
type Builder struct {
	ctx    echo.Context
	status int
	data   any
	err    error
	meta   map[string]any
}

// New instantiates a Builder for the provided request context.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx, status: http.StatusOK}
}

// WithStatus overrides the response status code. For errors it only applies
// when it is itself an error status.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

// WithData attaches a success payload.
func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

// WithError records an error to be rendered.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// WithMeta appends auxiliary metadata to the response.
func (b *Builder) WithMeta(key string, value any) *Builder {
	if key == "" {
		return b
	}
	if b.meta == nil {
		b.meta = make(map[string]any)
	}
	b.meta[key] = value
	return b
}

// WithPagination records page metadata for list responses.
func (b *Builder) WithPagination(page, pageSize, total, totalPages int) *Builder {
	return b.WithMeta("page", page).
		WithMeta("page_size", pageSize).
		WithMeta("total", total).
		WithMeta("total_pages", totalPages)
}

// Build writes the envelope. The request id set by the RequestID middleware
// is echoed in meta so clients can quote it when reporting failures.
func (b *Builder) Build() error {
	if id := b.ctx.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		b.WithMeta("request_id", id)
	}

	env := Envelope{Success: b.err == nil, Data: b.data, Meta: b.meta}
	status := b.status
	if b.err != nil {
		appErr := errorbank.From(b.err)
		env.Data = nil
		env.Error = &ErrorBody{
			Kind:    string(appErr.Kind()),
			Message: appErr.Message(),
			Details: appErr.Details(),
		}
		if status < http.StatusBadRequest {
			status = appErr.StatusCode()
		}
	}
	return b.ctx.JSON(status, env)
}
