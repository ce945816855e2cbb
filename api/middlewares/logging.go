package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/fileserver-admin/tool"
)

// RequestLogger logs one line per request through the shared logger.
func RequestLogger(c *gin.Context) {
	started := time.Now()
	c.Next()
	tool.DefaultLogger.Debugf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(started))
}
