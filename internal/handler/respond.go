package handler

import (
	"net/http"

	"securechain/pkg/apperror"
	"securechain/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// parseUUIDParam reads a uuid path parameter.
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

// respondError maps a service error to the JSON envelope. Business-rule
// violations surface with their kind's status; anything else is logged and
// returned as a generic 500.
func respondError(c *gin.Context, err error) {
	status := apperror.Status(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(status, response.Error(status, apperror.Message(err)))
}
