package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestPathID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		param    string
		wantID   int64
		wantOK   bool
		wantCode int
	}{
		{name: "valid id", param: "42", wantID: 42, wantOK: true, wantCode: http.StatusOK},
		{name: "zero rejected", param: "0", wantCode: http.StatusBadRequest},
		{name: "negative rejected", param: "-3", wantCode: http.StatusBadRequest},
		{name: "non-numeric rejected", param: "abc", wantCode: http.StatusBadRequest},
		{name: "empty rejected", param: "", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Params = gin.Params{{Key: "id", Value: tt.param}}

			id, ok := pathID(c, "id")
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantID, id)
			if !tt.wantOK {
				require.Equal(t, tt.wantCode, w.Code)
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/articles?skip=5&limit=oops", nil)

	require.Equal(t, 5, queryInt(c, "skip", 0))
	require.Equal(t, 20, queryInt(c, "limit", 20), "unparseable value falls back")
	require.Equal(t, 50, queryInt(c, "missing", 50))
}
