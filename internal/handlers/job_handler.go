package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sjperalta/village-settlement-api/internal/services"
)

type JobHandler struct {
	jobService *services.JobService
}

func NewJobHandler(jobSvc *services.JobService) *JobHandler {
	return &JobHandler{
		jobService: jobSvc,
	}
}

// Status returns the current worker status
// @Summary Get background job status
// @Description Get statistics about background jobs (active, completed, failed, queue length, last run per job)
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /jobs/status [get]
func (h *JobHandler) Status(c *gin.Context) {
	status := h.jobService.GetStatus()
	c.JSON(http.StatusOK, status)
}

// Trigger queues a job to run now
// @Summary Run a background job
// @Tags Jobs
// @Produce json
// @Param name path string true "Job name (overdue_sweep, verify_all)"
// @Security BearerAuth
// @Success 202 {object} map[string]string
// @Failure 400 {object} ErrorBody
// @Router /jobs/{name} [post]
func (h *JobHandler) Trigger(c *gin.Context) {
	name := c.Param("name")
	if err := h.jobService.Trigger(name); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job": name, "status": "queued"})
}
