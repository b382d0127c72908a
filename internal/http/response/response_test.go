package response

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	assert.Equal(t, int64(3), NewPagination(1, 20, 41).TotalPage)
	assert.Equal(t, int64(0), NewPagination(1, 20, 0).TotalPage)
	assert.Equal(t, int64(0), NewPagination(1, 0, 10).TotalPage)
}

func TestAppErrorWriteCarriesReasonAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-1")

	appErr := WrapError(CodeBadRequest, "已抢光", nil)
	appErr.Reason = "sold_out"
	appErr.Write(c)

	var body struct {
		StatusCode int               `json:"status_code"`
		Msg        string            `json:"msg"`
		Data       map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, CodeBadRequest, body.StatusCode)
	assert.Equal(t, "sold_out", body.Data["reason"])
	assert.Equal(t, "req-1", body.Data["request_id"])
	assert.Equal(t, "已抢光 (sold_out)", appErr.Error())
}

func TestErrorWithoutRequestIDHasNullData(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, CodeInternal, "boom")
	assert.JSONEq(t, `{"status_code":500,"msg":"boom","data":null}`, w.Body.String())
}
