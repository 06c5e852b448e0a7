package projection

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	httperr "github.com/aevon-lab/revenue-engine/internal/core/errors"
	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
	"github.com/aevon-lab/revenue-engine/internal/core/storage"
	storagemocks "github.com/aevon-lab/revenue-engine/internal/mocks/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHandlers_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		url            string
		expectedStatus int
		expectedType   string
		configure      func(reader *storagemocks.BucketReader)
	}{
		{
			name:           "bucket found",
			url:            "/v1/revenue/buckets/2025-03",
			expectedStatus: http.StatusOK,
			configure: func(reader *storagemocks.BucketReader) {
				reader.EXPECT().FindByPeriod(mock.Anything, revenue.MustParsePeriod("2025-03")).
					Return(bucket("2025-03", 1, 100, 0), nil).Once()
			},
		},
		{
			name:           "bucket missing returns 404",
			url:            "/v1/revenue/buckets/2025-04-01",
			expectedStatus: http.StatusNotFound,
			expectedType:   httperr.HttpBucketNotFoundError,
			configure: func(reader *storagemocks.BucketReader) {
				reader.EXPECT().FindByPeriod(mock.Anything, revenue.MustParsePeriod("2025-04")).
					Return(revenue.Bucket{}, storage.ErrNotFound).Once()
			},
		},
		{
			name:           "invalid period returns 400",
			url:            "/v1/revenue/buckets/2025-13",
			expectedStatus: http.StatusBadRequest,
			expectedType:   httperr.HttpInvalidPeriodError,
			configure:      func(_ *storagemocks.BucketReader) {},
		},
		{
			name:           "range missing end returns 400",
			url:            "/v1/revenue/buckets?start=2025-01",
			expectedStatus: http.StatusBadRequest,
			expectedType:   httperr.HttpInvalidPeriodError,
			configure:      func(_ *storagemocks.BucketReader) {},
		},
		{
			name:           "range store error returns 500",
			url:            "/v1/revenue/buckets?start=2025-01&end=2025-03",
			expectedStatus: http.StatusInternalServerError,
			expectedType:   httperr.HttpInternalError,
			configure: func(reader *storagemocks.BucketReader) {
				reader.EXPECT().QueryRange(mock.Anything, mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("db failure")).Once()
			},
		},
		{
			name:           "range ok",
			url:            "/v1/revenue/buckets?start=2025-01&end=2025-03&granularity=total",
			expectedStatus: http.StatusOK,
			configure: func(reader *storagemocks.BucketReader) {
				reader.EXPECT().QueryRange(mock.Anything, revenue.MustParsePeriod("2025-01"), revenue.MustParsePeriod("2025-03")).
					Return([]revenue.Bucket{bucket("2025-02", 1, 100, 0)}, nil).Once()
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reader := storagemocks.NewBucketReader(t)
			tc.configure(reader)

			r := gin.New()
			NewService(reader).RegisterRoutes(r)

			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)

			if resp.Code != tc.expectedStatus {
				t.Logf("unexpected response body: %s", resp.Body.String())
			}
			require.Equal(t, tc.expectedStatus, resp.Code)

			if tc.expectedType != "" {
				var errResp httperr.ErrorResponse
				require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
				require.Equal(t, tc.expectedType, errResp.ErrorType)
			}
		})
	}
}

func TestHandleQueryRange_Body(t *testing.T) {
	gin.SetMode(gin.TestMode)

	reader := storagemocks.NewBucketReader(t)
	reader.EXPECT().QueryRange(mock.Anything, mock.Anything, mock.Anything).
		Return([]revenue.Bucket{bucket("2025-02", 2, 300, 100)}, nil).Once()

	r := gin.New()
	NewService(reader).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/v1/revenue/buckets?start=2025-01&end=2025-03", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Buckets []BucketView `json:"buckets"`
		Summary struct {
			TotalAmount    int64  `json:"total_amount"`
			CollectionRate string `json:"collection_rate"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Buckets, 1)
	require.Equal(t, "2025-02-01", body.Buckets[0].Period)
	require.Equal(t, int64(400), body.Summary.TotalAmount)
	require.Equal(t, "0.75", body.Summary.CollectionRate)
}
