package response

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
)

// OK sends a 200 response. Arrays/slices are wrapped in {data: [...]}.
func OK(c *gin.Context, data interface{}) {
	if data != nil {
		v := reflect.ValueOf(data)
		if v.Kind() == reflect.Slice {
			c.JSON(http.StatusOK, gin.H{"data": data})
			return
		}
	}
	c.JSON(http.StatusOK, data)
}

// RawJSON sends a 200 response with an already-serialized JSON body.
func RawJSON(c *gin.Context, body []byte) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// BadRequest sends a 400 error response naming the failed check.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}

// MethodNotAllowed sends a 405 error response advertising the allowed verbs.
func MethodNotAllowed(c *gin.Context, allow string) {
	c.Header("Allow", allow)
	c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{"error": "Method Not Allowed"})
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Not Found"})
}

// TooManyRequests sends a 429 error response.
func TooManyRequests(c *gin.Context) {
	c.Header("Retry-After", "1")
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too Many Requests"})
}

// InternalError sends a 500 error response. The message must stay generic:
// internal detail and credentials belong in server logs only.
func InternalError(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": message})
}

// UpstreamFailure forwards a provider failure with the provider's own
// status code so the caller keeps diagnosability.
func UpstreamFailure(c *gin.Context, status int, statusText, details string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":   statusText,
		"status":  status,
		"details": details,
	})
}
