package middleware

import (
	"fmt"
	"net/http"

	"github.com/courselibrary/backend/internal/infrastructure/logger"
	"github.com/courselibrary/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// UnexpectedFaultMessage is returned for every unhandled error
const UnexpectedFaultMessage = "An unexpected fault happened. Try again later"

// ExceptionResponder answers a recovered panic with a generic 500. In
// development the panic value is added as a detail.
func ExceptionResponder(development bool) logger.PanicResponder {
	return func(c *gin.Context, recovered any) {
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeInternal, UnexpectedFaultMessage, GetRequestID(c))
		if development {
			resp.Error.Details = []dto.ValidationDetail{{
				Field:   "panic",
				Message: fmt.Sprint(recovered),
			}}
		}
		if c.Writer.Written() {
			return
		}
		c.JSON(http.StatusInternalServerError, resp)
	}
}
