package sales

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

func postSale(t *testing.T, svc *Service, actor policy.Subject, body string) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, policy.Middleware{})
	req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(policy.ContextWithSubject(req.Context(), actor))
	res := httptest.NewRecorder()
	handler.record(res, req)
	return res
}

func TestRecordEndpointAcceptsZeroUnitPrice(t *testing.T) {
	svc, repo := newTestService()
	repo.balances[ledger.BalanceKey{ProductID: 1, GodownID: 10}] = 10

	// Free-of-charge lines are legitimate, e.g. samples or replacements.
	res := postSale(t, svc, seller(), `{
		"customer": {"name": "Sharma Traders"},
		"godownId": 10,
		"items": [{"productId": 1, "quantity": 2, "unitPrice": 0}]
	}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	var sale Sale
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &sale))
	require.Equal(t, 0.0, sale.TotalAmount)
	require.Equal(t, int64(8), repo.balances[ledger.BalanceKey{ProductID: 1, GodownID: 10}])
}

func TestRecordEndpointRejectsNegativeUnitPrice(t *testing.T) {
	svc, _ := newTestService()

	res := postSale(t, svc, seller(), `{
		"customer": {"name": "Sharma Traders"},
		"godownId": 10,
		"items": [{"productId": 1, "quantity": 2, "unitPrice": -5}]
	}`)
	require.Equal(t, http.StatusBadRequest, res.Code)
}
