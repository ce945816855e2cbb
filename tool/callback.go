package tool

import (
	"github.com/gin-gonic/gin"
)

func FastReturnError(msg string) gin.H {
	return gin.H{
		"success": false,
		"error":   msg,
	}
}

func FastReturnSuccess() gin.H {
	return gin.H{
		"success": true,
	}
}

func FastReturnSuccessWithData(data any) gin.H {
	return gin.H{
		"success": true,
		"data":    data,
	}
}
