package router

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hotelpricing/internal/ai"
	"hotelpricing/internal/analysis"
	"hotelpricing/internal/approvals"
	"hotelpricing/internal/auth"
	"hotelpricing/internal/documents"
	"hotelpricing/internal/llm"
	"hotelpricing/internal/ocr"
	"hotelpricing/internal/pricing"
	"hotelpricing/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cookieName = "hp_session"

type nopRecognizer struct{}

func (nopRecognizer) Recognize(ctx context.Context, fileName string, data []byte) (string, error) {
	return "", errors.New("not used")
}

func newTestRouter(t *testing.T, ping func(context.Context) error) (*gin.Engine, *auth.TokenManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := auth.NewTokenManager("router-test-secret", time.Hour)
	store := storage.NewMemoryStorage()

	analyses := analysis.NewInMemoryRepository()
	insights := analysis.NewInMemoryInsightRepository()
	uploads := documents.NewInMemoryRepository()

	docs := documents.NewService(uploads, store, 10<<20, analyses, insights)
	t.Cleanup(docs.Wait)

	provider := llm.ProviderFunc(func(ctx context.Context, req llm.Request) (string, error) {
		return `{"summary":"ok"}`, nil
	})
	aiService := ai.NewService(analyses, insights, provider, nil)

	r := New(Deps{
		Tokens:     tokens,
		CookieName: cookieName,
		Ping:       ping,
		Auth: auth.NewHandler(
			auth.NewService(auth.NewInMemoryUserRepository()),
			tokens,
			auth.CookieConfig{Name: cookieName},
		),
		Documents: documents.NewHandler(docs),
		Analyses:  analysis.NewHandler(analyses, insights, docs),
		OCR:       ocr.NewHandler(ocr.NewService(analyses, uploads, store, nopRecognizer{}, 1)),
		AI:        ai.NewHandler(aiService, ai.NewJobManager(aiService), docs),
		Pricing:   pricing.NewHandler(pricing.NewService(analyses), docs),
		Approvals: approvals.NewHandler(approvals.NewService(approvals.NewInMemoryRepository())),
	})
	return r, tokens
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	r, _ := newTestRouter(t, func(context.Context) error { return nil })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealthCheck_DatabaseDown(t *testing.T) {
	r, _ := newTestRouter(t, func(context.Context) error { return errors.New("connection refused") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	for _, path := range []string{
		"/api/auth/user",
		"/api/document-uploads",
		"/api/document-analyses",
		"/api/document-insights",
		"/api/pricing/summary",
		"/api/approvals",
	} {
		w := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestLoginCookieOpensProtectedRoutes(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	body := `{"name":"Front Desk","email":"desk@example.com","password":"supersecret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusCreated, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login",
		bytes.NewBufferString(`{"email":"desk@example.com","password":"supersecret"}`))
	req.Header.Set("Content-Type", "application/json")
	w := serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			session = c
		}
	}
	require.NotNil(t, session)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	req.AddCookie(session)
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "desk@example.com")

	req = httptest.NewRequest(http.MethodGet, "/api/pricing/summary", nil)
	req.AddCookie(session)
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}

func TestApprovalDecisionsAreAdminOnly(t *testing.T) {
	r, tokens := newTestRouter(t, nil)

	userToken, err := tokens.GenerateToken("user-1", "user@example.com", auth.RoleUser)
	require.NoError(t, err)
	adminToken, err := tokens.GenerateToken("admin-1", "admin@example.com", auth.RoleAdmin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/approvals/missing/approve", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/approvals/missing/approve", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	assert.Equal(t, http.StatusNotFound, serve(r, req).Code)
}
