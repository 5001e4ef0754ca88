package pricing

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hotelpricing/internal/analysis"
	"hotelpricing/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverage_EmptyIsZero(t *testing.T) {
	got := Average(nil)
	assert.Equal(t, 0.0, got)
	assert.False(t, math.IsNaN(got))

	s := Compute(nil)
	assert.Equal(t, 0.0, s.AveragePrice)
	assert.Empty(t, s.Currencies)
}

func TestCompute(t *testing.T) {
	s := Compute([]analysis.PricePoint{
		{Value: 100, Currency: "eur"},
		{Value: 140, Currency: "EUR"},
		{Value: 120, Currency: "EUR "},
		{Value: 90, Currency: "USD"},
		{Value: 0, Currency: "USD"},
	})

	require.Len(t, s.Currencies, 2)
	eur := s.Currencies[0]
	assert.Equal(t, "EUR", eur.Currency)
	assert.Equal(t, 3, eur.SampleSize)
	assert.Equal(t, 120.0, eur.Average)
	assert.Equal(t, 120.0, eur.Median)
	assert.Equal(t, 100.0, eur.Min)
	assert.Equal(t, 140.0, eur.Max)
	assert.Equal(t, 4, s.TotalSamples)
}

func TestMedian_Even(t *testing.T) {
	assert.Equal(t, 15.0, Median([]float64{10, 20}))
}

func TestDeterminePosition(t *testing.T) {
	assert.Equal(t, PositionUnderMarket, DeterminePosition(80, 100))
	assert.Equal(t, PositionMarketAverage, DeterminePosition(90, 100))
	assert.Equal(t, PositionMarketAverage, DeterminePosition(110, 100))
	assert.Equal(t, PositionPremium, DeterminePosition(111, 100))
}

func TestHandler_Summary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	repo := analysis.NewInMemoryRepository()
	a := &analysis.Analysis{UploadID: "u1", FileName: "rates.pdf", AnalysisType: analysis.TypeMistralOCR}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Complete(ctx, a.ID, "", []analysis.PricePoint{
		{Value: 100, Currency: "EUR"}, {Value: 200, Currency: "EUR"},
	}, time.Second))

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("userID", "owner") })
	r.GET("/api/pricing/summary", NewHandler(NewService(repo), analysis.OwnerMap{"u1": "owner"}).Summary)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/pricing/summary?price=200", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var s Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	require.Len(t, s.Currencies, 1)
	assert.Equal(t, 150.0, s.Currencies[0].Median)
	assert.Equal(t, PositionPremium, s.Currencies[0].Positioning)

	for _, bad := range []string{"abc", "-5", "NaN", "Inf", "-Inf", "1e400"} {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/pricing/summary?price="+bad, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestHandler_SummaryCoversOwnUploadsOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	repo := analysis.NewInMemoryRepository()
	for upload, price := range map[string]float64{"mine": 100, "theirs": 900} {
		a := &analysis.Analysis{UploadID: upload, FileName: upload + ".pdf", AnalysisType: analysis.TypeMistralOCR}
		require.NoError(t, repo.Create(ctx, a))
		require.NoError(t, repo.Complete(ctx, a.ID, "", []analysis.PricePoint{{Value: price, Currency: "EUR"}}, 0))
	}
	owners := analysis.OwnerMap{"mine": "alice", "theirs": "bob"}

	serve := func(role, query string) *httptest.ResponseRecorder {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			c.Set("userID", "alice")
			c.Set("userRole", role)
		})
		r.GET("/api/pricing/summary", NewHandler(NewService(repo), owners).Summary)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/pricing/summary"+query, nil))
		return w
	}

	w := serve(auth.RoleUser, "")
	require.Equal(t, http.StatusOK, w.Code)
	var s Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, 1, s.AnalysesCount)
	assert.Equal(t, 100.0, s.AveragePrice)

	assert.Equal(t, http.StatusNotFound, serve(auth.RoleUser, "?uploadId=theirs").Code)

	w = serve(auth.RoleAdmin, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, 2, s.AnalysesCount)
}
