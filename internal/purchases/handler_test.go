package purchases

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockkeep/stockkeep/internal/ledger"
	"github.com/stockkeep/stockkeep/internal/policy"
)

func postPurchase(t *testing.T, svc *Service, actor policy.Subject, body string) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, policy.Middleware{})
	req := httptest.NewRequest(http.MethodPost, "/purchases", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(policy.ContextWithSubject(req.Context(), actor))
	res := httptest.NewRecorder()
	handler.record(res, req)
	return res
}

func TestRecordEndpointAcceptsZeroUnitPrice(t *testing.T) {
	svc, repo, _ := newTestService()

	// Zero-price inward lines carry donated or promotional stock.
	res := postPurchase(t, svc, buyer(), `{
		"supplier": {"name": "Ambuja Distributors"},
		"godownId": 10,
		"items": [{"productId": 1, "quantity": 5, "unitPrice": 0}]
	}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	var purchase Purchase
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &purchase))
	require.Equal(t, 0.0, purchase.TotalAmount)
	require.Equal(t, int64(5), repo.balances[ledger.BalanceKey{ProductID: 1, GodownID: 10}])
}

func TestRecordEndpointRejectsNegativeUnitPrice(t *testing.T) {
	svc, _, _ := newTestService()

	res := postPurchase(t, svc, buyer(), `{
		"supplier": {"name": "Ambuja Distributors"},
		"godownId": 10,
		"items": [{"productId": 1, "quantity": 5, "unitPrice": -1}]
	}`)
	require.Equal(t, http.StatusBadRequest, res.Code)
}
