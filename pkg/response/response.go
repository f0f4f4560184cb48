package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 统一响应格式
// ============================================================
//
// 成功:      200 {"success": true, "data": ...}
// 认证失败:  401 {"error": "..."}
// 权限不足:  403 {"error": "..."}
// 参数错误:  400 {"error": "..."}
// 不存在:    404 {"error": "..."}
// 服务错误:  500 {"success": false, "error": "..."}
//
// 错误种类是封闭枚举，调用方按状态码分支即可，
// 文案可以自由调整而不影响语义

// Kind 错误种类
type Kind int

const (
	KindParamError Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindServerError
)

var kindStatus = map[Kind]int{
	KindParamError:   http.StatusBadRequest,
	KindUnauthorized: http.StatusUnauthorized,
	KindForbidden:    http.StatusForbidden,
	KindNotFound:     http.StatusNotFound,
	KindServerError:  http.StatusInternalServerError,
}

// Status 种类对应的 HTTP 状态码
func (k Kind) Status() int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

type SuccessBody struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorBody struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessBody{
		Success: true,
		Data:    data,
	})
}

// Error 按种类输出错误响应
// 5xx 额外带 success:false，与 4xx 的纯 error 信封区分
func Error(c *gin.Context, kind Kind, message string) {
	status := kind.Status()
	if status >= http.StatusInternalServerError {
		f := false
		c.JSON(status, ErrorBody{Success: &f, Error: message})
		return
	}
	c.JSON(status, ErrorBody{Error: message})
}

func ParamError(c *gin.Context, message string) {
	Error(c, KindParamError, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, KindUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, KindForbidden, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, KindNotFound, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, KindServerError, message)
}
