package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go-erp-backend/internal/apperror"
	"go-erp-backend/internal/auth"
	"go-erp-backend/internal/logger"
	"go-erp-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// respondError maps err onto the standard error body. Unclassified errors are
// logged in full and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	log := logger.FromContext(c.Request.Context())
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.String("route", c.FullPath()), zap.Error(err))
	} else {
		log.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	}
	_ = c.Error(err)
	middleware.Abort(c, status, err)
}

// bindJSON decodes and validates the body into dst, turning binding failures
// into classified errors.
func bindJSON(c *gin.Context, dst interface{}) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, describeFieldError(fe))
		}
		return apperror.ErrValidation.WithDetails(details...)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return apperror.ErrMalformedBody.Withf("request body is empty")
	case errors.As(err, &syntaxErr):
		return apperror.ErrMalformedBody.Withf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return apperror.ErrMalformedBody.Withf("field %s must be %s", typeErr.Field, typeErr.Type)
	default:
		return apperror.ErrMalformedBody.Wrap(err)
	}
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return field + ": is required"
	case "min":
		return fmt.Sprintf("%s: must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s: must be at most %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s: must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s: must be greater than or equal to %s", field, fe.Param())
	case "alphanum":
		return field + ": must contain only letters and digits"
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s]", field, fe.Param())
	case "strongpassword":
		return field + ": must contain an uppercase letter, a lowercase letter, a digit and a special character"
	default:
		return fmt.Sprintf("%s: failed %s validation", field, fe.Tag())
	}
}

// parseID reads a positive numeric path parameter.
func parseID(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.ErrValidation.WithDetails(fmt.Sprintf("%s: must be a positive integer, got %q", name, raw))
	}
	return uint(id), nil
}

// principal returns the caller authorized by middleware.Authorize.
func principal(c *gin.Context) (auth.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return auth.Principal{}, apperror.ErrUnauthenticated
	}
	return p, nil
}
