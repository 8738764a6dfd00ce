package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"mipgate/src/core/job"
	"mipgate/src/infrastructure/log"
)

// Inputs stays raw so canonicalization sees the original number literals.
type startJobRequest struct {
	Inputs json.RawMessage `json:"inputs" binding:"required"`
}

type provideInputRequest struct {
	JobID     string         `json:"job_id" binding:"required"`
	Signature string         `json:"signature" binding:"required"`
	Data      map[string]any `json:"data"`
}

// Availability reports the MIP-003 service descriptor.
func (h *GatewayHandler) Availability(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "available",
		"service_type": "masumi-agent",
	})
}

// InputSchema returns the JSON Schema of the start_job request body.
func (h *GatewayHandler) InputSchema(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"type": "object",
		"properties": gin.H{
			"inputs": gin.H{
				"type":        "object",
				"description": "Arbitrary task inputs; hashed canonically into the payment request.",
			},
		},
		"required":             []string{"inputs"},
		"additionalProperties": false,
	})
}

// StartJob registers a payment request for the submitted inputs and creates
// the job in awaiting_payment.
func (h *GatewayHandler) StartJob(c *gin.Context) {
	var req startJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBindError(c, err)
		return
	}

	inputHash, err := job.HashRawInputs(req.Inputs)
	if err != nil {
		sendBindError(c, err)
		return
	}

	created, err := h.jobs.CreateJob(c.Request.Context(), inputHash)
	if err != nil {
		log.Error(err, "Failed to create job", "input_hash", inputHash)
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Code:    "PAYMENT_UPSTREAM_ERROR",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, created)
}

// GetStatus returns the current snapshot of a job.
func (h *GatewayHandler) GetStatus(c *gin.Context) {
	j, err := h.repo.Get(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

// ProvideInput confirms payment for a job: the signature is verified, the
// job advances to running, and the completion task is enqueued after the
// response is written.
func (h *GatewayHandler) ProvideInput(c *gin.Context) {
	var req provideInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBindError(c, err)
		return
	}

	if _, err := h.repo.Get(c.Request.Context(), req.JobID); err != nil {
		sendError(c, err)
		return
	}
	if err := job.VerifySignature(req.JobID, req.Signature); err != nil {
		sendError(c, err)
		return
	}

	updated, err := h.jobs.AdvanceState(c.Request.Context(), req.JobID, job.StatusRunning, nil, nil)
	if err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)

	// The response is flushed; the task queue takes it from here.
	if err := h.tasks.Enqueue(c.Request.Context(), req.JobID); err != nil {
		log.Error(err, "Failed to enqueue completion task", "job_id", req.JobID)
	}
}

// CheckHealth reports component liveness alongside the always-on gateway.
func (h *GatewayHandler) CheckHealth(c *gin.Context) {
	vectorStatus := "down"
	if h.vectors != nil {
		if ready, err := h.vectors.Ready(c.Request.Context()); err == nil && ready {
			vectorStatus = "up"
		}
	}

	status := "healthy"
	if vectorStatus == "down" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"components": gin.H{
			"vector_store": vectorStatus,
		},
	})
}
