package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"vendor-service/internal/repository"
	"vendor-service/internal/validation"
	"vendor-service/pkg/logger"
	"vendor-service/pkg/oauth"
)

// ErrorResponse is the body of every error answer
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// MessageResponse is the body of every successful mutation
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorHandler renders errors as {"detail": "..."} and logs server errors
// with the request logger.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	detail := http.StatusText(code)

	var he *echo.HTTPError
	var ve *validation.Error
	switch {
	case errors.As(err, &he):
		code = he.Code
		if he.Internal != nil && code >= http.StatusInternalServerError {
			err = he.Internal
		}
		if msg, ok := he.Message.(string); ok {
			detail = msg
		} else {
			detail = fmt.Sprint(he.Message)
		}
	case errors.As(err, &ve):
		code = http.StatusBadRequest
		detail = ve.Message
	}

	if code >= http.StatusInternalServerError {
		logger.FromEcho(c).Error("Request failed", zap.Int("status", code), zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Detail: detail})
	}
	if err != nil {
		logger.FromEcho(c).Warn("Failed to write error response", zap.Error(err))
	}
}

// parsePage reads limit and offset, applying the defaults when absent
func parsePage(c echo.Context) (repository.Page, error) {
	page := repository.Page{Limit: repository.DefaultLimit}

	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return page, echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		page.Limit = limit
	}
	if raw := c.QueryParam("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return page, echo.NewHTTPError(http.StatusBadRequest, "offset must be an integer")
		}
		page.Offset = offset
	}

	if !page.Valid() {
		if page.Offset < 0 {
			return page, echo.NewHTTPError(http.StatusBadRequest, "offset must be greater than or equal to 0")
		}
		return page, echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("limit must be between 1 and %d", repository.MaxLimit))
	}
	return page, nil
}

// parseID reads a positive integer path parameter
func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a positive integer")
	}
	return uint(id), nil
}

// bindAndValidate decodes the request body into req and runs its rules
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		logger.FromEcho(c).Warn("Invalid request data", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request data")
	}
	return validate(c, req)
}

func validate(c echo.Context, req interface{}) error {
	if err := c.Validate(req); err != nil {
		var ve *validation.Error
		if errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusBadRequest, ve.Message)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// bindList decodes a JSON array body
func bindList(c echo.Context, dst interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		logger.FromEcho(c).Warn("Invalid request data", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request data")
	}
	return nil
}

// storeError maps repository errors to HTTP errors
func storeError(c echo.Context, err error, notFound, duplicate string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	case errors.Is(err, repository.ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, duplicate)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
	}
}

// callerID returns the authenticated user id, 0 when the route is public
func callerID(c echo.Context) uint {
	if identity, ok := oauth.IdentityFromEcho(c); ok {
		return identity.UserID
	}
	return 0
}

func describeIDs(ids []uint) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}
