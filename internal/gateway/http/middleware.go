package http

import (
	"net/http"

	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderCorrelationID follows a request through the gateway and every
// upstream it reaches.
const HeaderCorrelationID = "X-Correlation-ID"

// CorrelationID strips client supplied identity headers and makes sure the
// request carries a correlation id, keeping one the caller already sent.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		stripIdentityHeaders(c.Request.Header)

		id := c.GetHeader(HeaderCorrelationID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		c.Request.Header.Set(HeaderCorrelationID, id)
		c.Header(HeaderCorrelationID, id)

		ctx := slogx.WithContext(c.Request.Context(), slogx.FromContext(c.Request.Context()).With("correlation_id", id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Recovery turns a panic into a 500 JSON body and logs it.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		slogx.FromContext(c.Request.Context()).Error("panic recovered",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"panic", recovered,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeServerError,
			ErrorDescription: "internal server error",
		})
	})
}
