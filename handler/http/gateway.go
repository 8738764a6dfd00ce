package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"mipgate/src/core/job"
)

// CompletionScheduler hands a confirmed job to the background completion
// queue. Implemented by agent.Runner.
type CompletionScheduler interface {
	Enqueue(ctx context.Context, jobID string) error
}

// VectorStore is the slice of the vector database the gateway surfaces
// through its health endpoint.
type VectorStore interface {
	Ready(ctx context.Context) (bool, error)
}

// GatewayHandler serves the MIP-003 job lifecycle endpoints.
type GatewayHandler struct {
	jobs    *job.Service
	repo    job.Repository
	tasks   CompletionScheduler
	vectors VectorStore
	limits  RateLimitConfig
}

func NewGatewayHandler(
	jobs *job.Service,
	repo job.Repository,
	tasks CompletionScheduler,
	vectors VectorStore,
	limits RateLimitConfig,
) *GatewayHandler {
	return &GatewayHandler{
		jobs:    jobs,
		repo:    repo,
		tasks:   tasks,
		vectors: vectors,
		limits:  limits,
	}
}

// RegisterRoutes registers the MIP-003 routes
func (h *GatewayHandler) RegisterRoutes(r *gin.Engine) {
	// Request bodies with unexpected fields are rejected outright.
	binding.EnableDecoderDisallowUnknownFields = true

	r.GET("/availability", h.Availability)
	r.GET("/input_schema", h.InputSchema)
	r.POST("/start_job", rateLimitMiddleware(h.limits), h.StartJob)
	r.GET("/status/:job_id", h.GetStatus)
	r.POST("/provide_input", h.ProvideInput)
	r.GET("/health", h.CheckHealth)
}

// Common error response structure
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func sendError(c *gin.Context, err error) {
	var (
		notFound   *job.NotFoundError
		transition *job.InvalidTransitionError
		signature  *job.InvalidSignatureError
	)

	var code string
	var status int
	switch {
	case errors.As(err, &notFound):
		code = "JOB_NOT_FOUND"
		status = http.StatusNotFound
	case errors.As(err, &transition):
		code = "INVALID_STATE_TRANSITION"
		status = http.StatusConflict
	case errors.As(err, &signature):
		code = "INVALID_SIGNATURE"
		status = http.StatusForbidden
	default:
		code = "INTERNAL_ERROR"
		status = http.StatusInternalServerError
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func sendBindError(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Code:    "INVALID_REQUEST",
		Message: err.Error(),
	})
}
