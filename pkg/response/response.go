package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the envelope every endpoint answers with.
type Body struct {
	Code int         `json:"code"`
	Data interface{} `json:"data"`
	Msg  string      `json:"msg"`
}

// Page is the data shape of list endpoints.
type Page struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
}

func Success(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data, "")
}

func SuccessWithMsg(c *gin.Context, data interface{}, msg string) {
	JSON(c, http.StatusOK, data, msg)
}

// Paged answers a list request. A nil items slice is sent as an empty list.
func Paged[T any](c *gin.Context, items []T, total int64, page, size int) {
	if items == nil {
		items = []T{}
	}
	Success(c, Page{Items: items, Total: total, Page: page, Size: size})
}

func Error(c *gin.Context, status int, msg string) {
	JSON(c, status, gin.H{}, msg)
}

// Abort answers with an error and stops the handler chain; for middleware.
func Abort(c *gin.Context, status int, msg string) {
	c.Abort()
	Error(c, status, msg)
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
