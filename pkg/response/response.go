package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// The dashboard contract is soft-fail: a handler failure still produces a
// well-formed, renderable payload with HTTP 200 and an error message, so
// the client never sees a broken response shape. Client errors at the
// routing boundary (missing or unknown action) are the only 400s, and an
// unhandled panic is the only 500.

// OK sends the payload as-is with HTTP 200.
func OK(c *gin.Context, payload gin.H) {
	c.JSON(http.StatusOK, payload)
}

// SoftFail sends HTTP 200 with an empty payload of the expected shape and
// the error message alongside it.
func SoftFail(c *gin.Context, message string, empty gin.H) {
	body := gin.H{"error": message}
	for key, value := range empty {
		body[key] = value
	}
	c.JSON(http.StatusOK, body)
}

// BadRequest sends a 400 with an error payload. Reserved for request
// validation failures at the routing boundary.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// Unauthorized sends a 401 with an error payload.
func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": message})
}

// InternalError sends a 500 with an error payload. Reserved for unhandled
// faults caught by the recovery middleware.
func InternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}
