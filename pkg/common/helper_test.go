package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"redpacket.com/pkg/xerr"
)

func TestFailErr_MapsBizCode(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
	}{
		{"过期", xerr.NewReason(xerr.StateConflict, "packet_expired", "Packet expired"), http.StatusGone, "packet_expired"},
		{"风控", xerr.NewReason(xerr.EligibilityFailure, "account_too_new", "too new"), http.StatusForbidden, "account_too_new"},
		{"上游", xerr.NewReason(xerr.UpstreamUnavailable, "follow_check_failed", "x api down"), http.StatusServiceUnavailable, "follow_check_failed"},
		{"未知错误", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/api/packets/x/claim", nil)

			FailErr(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantReason, resp.Reason)
			assert.Nil(t, resp.Data)
		})
	}
}
