package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/reconcile"
	"github.com/healthportal/internal/service"
	"github.com/shopspring/decimal"
)

// Result 是所有写操作统一的 JSON 返回体。
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Result{Success: true, Message: message, Data: data})
}

// respondFailure 按错误类型选择状态码；系统错误只返回通用提示。
func (a *API) respondFailure(c *gin.Context, err error) {
	c.JSON(statusForError(err), Result{Success: false, Message: a.errorMessage(c, err)})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, access.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, access.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case isUserError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func isUserError(err error) bool {
	if service.IsValidationError(err) {
		return true
	}
	for _, target := range []error{
		service.ErrValidation, service.ErrPasswordMismatch, service.ErrPasswordTooShort,
		service.ErrInvalidRole, service.ErrProvinceRequired, service.ErrInvalidCredentials,
		service.ErrPendingApproval,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// parseOptionalUint 空值返回 0，表示使用默认（例如当前用户所属地点）。
func parseOptionalUint(raw string) (uint, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(trimmed, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", service.ErrLocationNotFound, raw)
	}
	return uint(id), nil
}

// parseCount 空字段或无法解析的输入按 0 处理，只有负数视为输入错误。
func parseCount(raw string) (int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, nil
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %q", service.ErrNegativeValue, raw)
	}
	return n, nil
}

// parseAmount 规则同 parseCount，允许小数。
func parseAmount(raw string) (decimal.Decimal, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, nil
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q", service.ErrNegativeValue, raw)
	}
	return amount, nil
}

// parseOptionalDate 空值返回零时间。
func parseOptionalDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return reconcile.ParseCalendarDate(raw)
}
