package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"redpacket.com/internal/redpacket/config"
	"redpacket.com/internal/redpacket/domain"
	"redpacket.com/internal/redpacket/service"
	"redpacket.com/pkg/common"
	"redpacket.com/pkg/middleware"
	"redpacket.com/pkg/xerr"
)

const testSecret = "test-secret"

type fakePackets struct {
	registered service.RegisterRequest
	released   [2]string
}

func (f *fakePackets) View(_ context.Context, publicID string) (*domain.PacketView, error) {
	if publicID != "p-1" {
		return nil, xerr.New(xerr.RecordNotFound, "packet not found")
	}
	return &domain.PacketView{PacketID: 7, TotalAmount: "10", TotalClaims: 5}, nil
}

func (f *fakePackets) Register(_ context.Context, req service.RegisterRequest) (*service.RegisterResult, error) {
	f.registered = req
	return &service.RegisterResult{PacketID: req.PacketID, UUID: "u-1"}, nil
}

func (f *fakePackets) List(_ context.Context, id domain.Identity, _ int) (*service.ListResult, error) {
	return &service.ListResult{Created: []domain.CreatedItem{{PublicID: "p-" + id.TwitterID}}, Claimed: []domain.ClaimedItem{}}, nil
}

func (f *fakePackets) Release(_ context.Context, publicID, twitterID string) (bool, error) {
	f.released = [2]string{publicID, twitterID}
	return true, nil
}

type fakeClaims struct {
	req service.ClaimRequest
	err error
}

func (f *fakeClaims) Claim(_ context.Context, req service.ClaimRequest) (*domain.ClaimVoucher, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ClaimVoucher{Signature: "0xabc", Nonce: "42", TwitterUserID: req.Identity.TwitterID}, nil
}

type fakeReconciler struct{}

func (fakeReconciler) Confirm(_ context.Context, _ string, _ domain.Identity, txHash string) (string, error) {
	if txHash == "bad" {
		return "", xerr.New(xerr.RequestParamsError, "invalid transaction hash")
	}
	return "1.5", nil
}

type fixture struct {
	engine  *gin.Engine
	packets *fakePackets
	claims  *fakeClaims
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = testSecret
	cfg.Admin.Token = "admin-token"
	cfg.HTTP.RateLimitRPS = 1000
	cfg.HTTP.RateBurst = 1000
	cfg.Normalize()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &fixture{packets: &fakePackets{}, claims: &fakeClaims{}}
	f.engine = NewEngine(ctx, cfg, Services{
		Packets:    f.packets,
		Claims:     f.claims,
		Reconciler: fakeReconciler{},
	})
	return f
}

func sessionToken(t *testing.T, sub string, followers *int64) string {
	t.Helper()
	tok, err := middleware.SignSession(testSecret, &middleware.SessionClaims{
		Handle:         "alice",
		FollowersCount: followers,
		AccessToken:    "user-token",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) common.Response {
	t.Helper()
	var resp common.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRouter_View(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/packets/p-1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalAmount":"10"`)

	w = f.do(http.MethodGet, "/api/packets/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ClaimRequiresSession(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/packets/p-1/claim", `{"claimerAddress":"0x1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_Claim(t *testing.T) {
	f := newFixture(t)
	zero := int64(0)
	auth := map[string]string{"Authorization": "Bearer " + sessionToken(t, "123", &zero)}

	w := f.do(http.MethodPost, "/api/packets/p-1/claim", `{"claimerAddress":"0xabc"}`, auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"signature":"0xabc"`)
	assert.Contains(t, w.Body.String(), `"twitterUserId":"123"`)

	assert.Equal(t, "p-1", f.claims.req.PublicID)
	assert.Equal(t, "0xabc", f.claims.req.ClaimerAddress)
	assert.Equal(t, "user-token", f.claims.req.Identity.AccessToken)
	// 0 粉丝是存在的值
	require.NotNil(t, f.claims.req.Identity.Profile.FollowersCount)
	assert.Nil(t, f.claims.req.Identity.Profile.CreatedAt)

	w = f.do(http.MethodPost, "/api/packets/p-1/claim", `{}`, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_ClaimErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{"eligibility", xerr.NewReason(xerr.EligibilityFailure, domain.ReasonAccountTooNew, "account is too new"), http.StatusForbidden, domain.ReasonAccountTooNew},
		{"follow", xerr.NewReason(xerr.FollowFailure, domain.ReasonNotFollowingCreator, "not following creator"), http.StatusForbidden, domain.ReasonNotFollowingCreator},
		{"race", xerr.NewReason(xerr.AlreadyReserved, domain.ReasonAlreadyClaimed, "already claimed"), http.StatusForbidden, domain.ReasonAlreadyClaimed},
		{"expired", xerr.NewReason(xerr.StateConflict, domain.ReasonPacketExpired, "packet expired"), http.StatusGone, domain.ReasonPacketExpired},
		{"upstream", xerr.NewReason(xerr.UpstreamUnavailable, domain.ReasonFollowCheckFailed, "unable to verify"), http.StatusServiceUnavailable, domain.ReasonFollowCheckFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.claims.err = tt.err
			auth := map[string]string{"Authorization": "Bearer " + sessionToken(t, "123", nil)}

			w := f.do(http.MethodPost, "/api/packets/p-1/claim", `{"claimerAddress":"0xabc"}`, auth)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.reason, decode(t, w).Reason)
		})
	}
}

func TestRouter_Confirm(t *testing.T) {
	f := newFixture(t)
	auth := map[string]string{"Authorization": "Bearer " + sessionToken(t, "123", nil)}

	w := f.do(http.MethodPost, "/api/packets/p-1/confirm", `{"txHash":"0x01"}`, auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"amount":"1.5"`)

	w = f.do(http.MethodPost, "/api/packets/p-1/confirm", `{"txHash":"bad"}`, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_RegisterAndList(t *testing.T) {
	f := newFixture(t)
	auth := map[string]string{"Authorization": "Bearer " + sessionToken(t, "c1", nil)}

	w := f.do(http.MethodPost, "/api/packets", `{"packetId":42,"creatorAddress":"0xabc","txHash":"0x01"}`, auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"uuid":"u-1"`)
	assert.EqualValues(t, 42, f.packets.registered.PacketID)
	assert.Equal(t, "c1", f.packets.registered.Identity.TwitterID)

	w = f.do(http.MethodPost, "/api/packets", `{"packetId":"-1","creatorAddress":"0xabc","txHash":"0x01"}`, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/packets", "", auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"p-c1"`)
}

func TestRouter_AdminRelease(t *testing.T) {
	f := newFixture(t)
	path := "/api/admin/packets/p-1/claims/123/release"

	w := f.do(http.MethodPost, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, path, "", map[string]string{middleware.HeaderAdminToken: "admin-token"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"released":true`)
	assert.Equal(t, [2]string{"p-1", "123"}, f.packets.released)
}

func TestRouter_GeoBlockAndHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/packets/p-1", "", map[string]string{"X-Vercel-IP-Country": "KP"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodGet, "/healthz", "", map[string]string{"X-Vercel-IP-Country": "KP"})
	assert.Equal(t, http.StatusOK, w.Code)
}
