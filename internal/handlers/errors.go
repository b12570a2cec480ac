package handlers

import (
	"net/http"
	"strconv"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/sjperalta/village-settlement-api/internal/repository"
	"github.com/sjperalta/village-settlement-api/internal/services"
	"github.com/sjperalta/village-settlement-api/pkg/logger"
)

// ErrorBody is the error envelope every endpoint returns.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine code and a human message.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError renders err.
func respondError(c *gin.Context, err error) {
	status, detail := describeError(c, err)
	c.JSON(status, ErrorBody{Error: detail})
}

// describeError maps err to a status and body. Unknown errors are hidden
// behind INTERNAL_ERROR; invariant violations are also reported to Sentry.
func describeError(c *gin.Context, err error) (int, ErrorDetail) {
	e, ok := services.AsError(err)
	if !ok {
		logger.Error("Unhandled error", "path", c.FullPath(), "error", err)
		_ = c.Error(err)
		return http.StatusInternalServerError, ErrorDetail{Code: "INTERNAL_ERROR", Message: "internal server error"}
	}

	if e.Kind == services.KindInvariant {
		logger.Error("Invariant violation", "path", c.FullPath(), "code", e.Code, "error", e.Message)
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}

	message := e.Message
	if message == "" {
		message = e.Code
	}
	return statusFor(e.Kind), ErrorDetail{Code: e.Code, Message: message, Retryable: e.Retryable()}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorBody{Error: ErrorDetail{Code: "INVALID_INPUT", Message: message}})
}

// parseID reads a numeric path parameter, answering 400 when it is not one.
func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, param+" must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

// listQuery reads page, per_page and sort from the query string.
func listQuery(c *gin.Context) *repository.ListQuery {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PerPage < 1 || query.PerPage > 200 {
		query.PerPage = 20
	}
	query.SortDir = c.DefaultQuery("sort", "desc")
	return query
}

func pagination(query *repository.ListQuery, total int64) gin.H {
	return gin.H{
		"page":        query.Page,
		"per_page":    query.PerPage,
		"total":       total,
		"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
	}
}
