// Package serviceutils holds the JSON envelope shared by the HTTP handlers.
package serviceutils

import (
	"github.com/labstack/echo/v4"

	"github.com/locvowork/vacation_reports/internal/logger"
)

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ResponseSuccess(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Response{Success: true, Message: message, Data: data})
}

// ResponseError logs err and writes the error envelope. data may carry a
// partial result such as an operation log.
func ResponseError(c echo.Context, status int, message string, err error, data ...interface{}) error {
	resp := Response{Success: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
		logger.ErrorLog(c.Request().Context(), err, "%s", message)
	}
	if len(data) > 0 {
		resp.Data = data[0]
	}
	return c.JSON(status, resp)
}
