package response

import "github.com/gin-gonic/gin"

// AppError 处理器错误：业务码、提示文案与可选的拒绝原因
type AppError struct {
	Code    int
	Message string
	Reason  string
	Err     error
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Err == nil {
		return msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Write 写出错误响应，携带原因码时放入 data.reason
func (e *AppError) Write(c *gin.Context) {
	if e.Reason != "" {
		Reject(c, e.Code, e.Message, e.Reason)
		return
	}
	Error(c, e.Code, e.Message)
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
