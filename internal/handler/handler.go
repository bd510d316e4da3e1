// Package handler holds the helpers shared by the resource handlers.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/jwalitptl/dogfinder/pkg/errors"
	"github.com/jwalitptl/dogfinder/pkg/httputil"
)

// ParseID reads a positive integer path parameter.
func ParseID(c *gin.Context, param, resource string) (int64, error) {
	raw := strings.TrimSpace(c.Param(param))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest("Invalid "+resource+" id: "+raw, nil)
	}
	return id, nil
}

// BindError turns a gin binding failure into a 400. Missing required fields
// get the same message the forms have always shown.
func BindError(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if fe.Tag() == "required" {
				return apperrors.BadRequest("Please fill all required fields", nil)
			}
		}
	}
	return apperrors.BadRequest("Invalid request", err)
}

// RespondWithResult sends the alert text of an admin action along with the affected record.
func RespondWithResult(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, httputil.Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created is RespondWithResult for inserts.
func Created(c *gin.Context, message string, data interface{}) {
	RespondWithResult(c, http.StatusCreated, message, data)
}
