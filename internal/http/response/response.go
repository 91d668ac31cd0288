package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/matside-backend/internal/platform/apierr"
	"github.com/yungbote/matside-backend/internal/platform/logger"
)

const genericUserMessage = "Something went wrong. Please try again or contact us if the problem continues."

// ErrorBody is the error shape the storefront reads. userFriendlyMessage is shown verbatim.
type ErrorBody struct {
	Error               string   `json:"error"`
	Message             string   `json:"message"`
	UserFriendlyMessage string   `json:"userFriendlyMessage,omitempty"`
	Details             []string `json:"details,omitempty"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorBody{Error: code, Message: msg})
}

// RespondAPIError writes err using its apierr mapping. Server errors are logged
// and their internal message is not exposed.
func RespondAPIError(c *gin.Context, log *logger.Logger, err error) {
	ae := apierr.As(err)
	if ae == nil {
		ae = apierr.As(errors.New("unknown error"))
	}
	status := ae.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	body := ErrorBody{
		Error:               ae.Code,
		Message:             ae.Error(),
		UserFriendlyMessage: ae.UserMessage,
		Details:             ae.Details,
	}
	if status >= http.StatusInternalServerError {
		if log != nil {
			log.Error("Request failed", "path", c.Request.URL.Path, "code", ae.Code, "error", err)
		}
		if ae.Code == "internal_error" {
			body.Message = "internal server error"
		}
		if body.UserFriendlyMessage == "" {
			body.UserFriendlyMessage = genericUserMessage
		}
	}
	c.AbortWithStatusJSON(status, body)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
