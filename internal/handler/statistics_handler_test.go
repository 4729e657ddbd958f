package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestStatisticsHandlerDayRequiresDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStatisticsHandler(nil, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/classes/class-1/students/s1/statistics/day", nil)
	c.Params = gin.Params{
		{Key: "class_id", Value: "class-1"},
		{Key: "student_id", Value: "s1"},
	}

	handler.StudentDayStatistics(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
