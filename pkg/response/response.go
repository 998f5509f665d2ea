package response

import (
	"errors"
	"net/http"

	appErr "zkpoker-client/pkg/errors"

	"github.com/gin-gonic/gin"
)

type Body struct {
	Code  int                `json:"code"`
	Data  interface{}        `json:"data"`
	Msg   string             `json:"msg"`
	Error *appErr.Classified `json:"error,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data, "")
}

func SuccessWithMsg(c *gin.Context, data interface{}, msg string) {
	JSON(c, http.StatusOK, data, msg)
}

func Error(c *gin.Context, status int, msg string) {
	JSON(c, status, gin.H{}, msg)
}

// Fail writes a classified orchestrator error with a status derived from its kind.
func Fail(c *gin.Context, err error) {
	classified := appErr.Classify(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, appErr.ErrGameNotFound), errors.Is(err, appErr.ErrKeyNotFound):
		status = http.StatusNotFound
	case errors.Is(err, appErr.ErrUnauthorized):
		status = http.StatusUnauthorized
	case classified.Kind == appErr.KindValidation:
		status = http.StatusUnprocessableEntity
	case classified.Kind == appErr.KindLedger:
		status = http.StatusConflict
	case classified.Kind == appErr.KindEngine:
		status = http.StatusBadGateway
	case classified.Kind == appErr.KindTimeout:
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, Body{
		Code:  status,
		Data:  gin.H{},
		Msg:   classified.Message,
		Error: &classified,
	})
}

func JSON(c *gin.Context, status int, data interface{}, msg string) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, Body{
		Code: status,
		Data: data,
		Msg:  msg,
	})
}
