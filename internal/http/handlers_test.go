package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/donaldtakou/huguesfront/internal/cache"
	"github.com/donaldtakou/huguesfront/internal/cart"
	"github.com/donaldtakou/huguesfront/internal/checkout"
	"github.com/donaldtakou/huguesfront/internal/payment"
	"github.com/donaldtakou/huguesfront/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*checkout.Order
}

func (m *mockOrderRepo) CreateOrder(_ context.Context, order *checkout.Order, _ []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) GetOrder(_ context.Context, id string) (*checkout.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, checkout.ErrOrderNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) GetUnprocessedEvents(context.Context, int) ([]*checkout.OutboxEvent, error) {
	return nil, nil
}
func (m *mockOrderRepo) MarkEventAsProcessed(context.Context, int) error { return nil }
func (m *mockOrderRepo) RunMigrations(*checkout.Credentials) error       { return nil }
func (m *mockOrderRepo) Close() error                                    { return nil }

// instantOrange approves orange money charges without the simulated delay.
type instantOrange struct{}

func (instantOrange) Method() payment.Method { return payment.MethodOrangeMoney }

func (instantOrange) Charge(_ context.Context, req payment.Request) (*payment.Receipt, error) {
	if req.Mobile == nil {
		return nil, payment.ErrInvalidPhone
	}
	return &payment.Receipt{
		TransactionID: "OM_1700000000000",
		Status:        payment.StatusCompleted,
		Message:       "mobile money payment confirmed",
		PhoneNumber:   req.Mobile.PhoneNumber,
		Fee:           50,
	}, nil
}

func newTestRouter(t *testing.T) (*chi.Mux, *mockOrderRepo) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cartSvc := cart.NewService(repository.NewMemoryRepository(), cache.NewRedisCache(client))

	registry := payment.DefaultRegistry()
	orderRepo := &mockOrderRepo{orders: map[string]*checkout.Order{}}
	providers := payment.NewSet(instantOrange{})
	checkoutSvc := checkout.NewService(cartSvc, registry, providers, orderRepo, "XAF")

	cartHandler := NewCartHandler(cartSvc, 5*time.Second)
	checkoutHandler := NewCheckoutHandler(checkoutSvc, registry, 5*time.Second)
	paymentHandler := NewPaymentHandler(providers, 5*time.Second)

	r := chi.NewRouter()
	r.Use(MockAuthMiddleware)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			r.Post("/toggle", cartHandler.ToggleCart)
		})
		r.Route("/payment", func(r chi.Router) {
			r.Get("/methods", checkoutHandler.ListMethods)
			r.Post("/verify", paymentHandler.Verify)
			r.Post("/refund", paymentHandler.Refund)
		})
		r.Post("/checkout", checkoutHandler.Checkout)
	})
	return r, orderRepo
}

func doRequest(t *testing.T, router http.Handler, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) CartResponseDTO {
	t.Helper()
	var dto CartResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	return dto
}

func addItemBody(productID string, price int64, qty int) map[string]interface{} {
	return map[string]interface{}{
		"product": map[string]interface{}{
			"id":    productID,
			"name":  "Galaxy S21",
			"brand": "Samsung",
			"price": price,
		},
		"quantity": qty,
	}
}

func TestCartEndpoints_AddMergeUpdateRemove(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "u1", addItemBody("p1", 150000, 2))
	require.Equal(t, http.StatusCreated, rec.Code)
	dto := decodeCart(t, rec)
	assert.Equal(t, 2, dto.TotalItems)
	assert.Equal(t, int64(300000), dto.TotalPrice)

	// Same product again merges into one line
	rec = doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "u1", addItemBody("p1", 150000, 3))
	require.Equal(t, http.StatusCreated, rec.Code)
	dto = decodeCart(t, rec)
	require.Len(t, dto.Cart.Items, 1)
	assert.Equal(t, 5, dto.Cart.Items[0].Quantity)

	rec = doRequest(t, router, http.MethodPut, "/api/v1/cart/items/p1", "u1", map[string]int{"quantity": 10})
	require.Equal(t, http.StatusOK, rec.Code)
	dto = decodeCart(t, rec)
	assert.Equal(t, 10, dto.TotalItems)

	// Quantity zero removes the line
	rec = doRequest(t, router, http.MethodPut, "/api/v1/cart/items/p1", "u1", map[string]int{"quantity": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	dto = decodeCart(t, rec)
	assert.Empty(t, dto.Cart.Items)
}

func TestCartEndpoints_RemoveAndClear(t *testing.T) {
	router, _ := newTestRouter(t)

	doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "u1", addItemBody("p1", 1000, 1))
	doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "u1", addItemBody("p2", 2000, 1))

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/cart/items/p1", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decodeCart(t, rec)
	require.Len(t, dto.Cart.Items, 1)
	assert.Equal(t, "p2", dto.Cart.Items[0].ProductID)

	// Removing an absent product is still OK
	rec = doRequest(t, router, http.MethodDelete, "/api/v1/cart/items/nope", "u1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/cart/", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dto = decodeCart(t, rec)
	assert.Empty(t, dto.Cart.Items)
}

func TestAddItem_Validation(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "u1", addItemBody("", 1000, 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "u1", addItemBody("p1", 1000, 100))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Quantity zero is coerced to one
	rec = doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "u1", addItemBody("p1", 1000, 0))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, decodeCart(t, rec).TotalItems)
}

func TestCartEndpoints_UsersAreIsolated(t *testing.T) {
	router, _ := newTestRouter(t)

	doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "u1", addItemBody("p1", 1000, 3))

	rec := doRequest(t, router, http.MethodGet, "/api/v1/cart/", "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decodeCart(t, rec).TotalItems)
}

func TestCartEndpoints_MissingHeaderFallsBackToDemoUser(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "", addItemBody("p1", 1000, 2))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/cart/", "demo-user", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeCart(t, rec).TotalItems)
}

func TestToggleCart(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/cart/toggle", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body["is_open"])

	rec = doRequest(t, router, http.MethodGet, "/api/v1/cart/", "u1", nil)
	assert.True(t, decodeCart(t, rec).IsOpen)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/cart/toggle", "u1", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body["is_open"])
}

func TestListMethods(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/payment/methods", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var methods []payment.Descriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &methods))
	require.Len(t, methods, 4)
	assert.Equal(t, payment.MethodCard, methods[0].ID)
	assert.Equal(t, int64(50), methods[2].FeeFixed)
	assert.Equal(t, int64(2000000), methods[2].Limits.Max)
}

func TestCheckout_SuccessClearsCart(t *testing.T) {
	router, orders := newTestRouter(t)

	doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "u1", addItemBody("p1", 150000, 2))

	rec := doRequest(t, router, http.MethodPost, "/api/v1/checkout", "u1", map[string]interface{}{
		"method":   "orange_money",
		"customer": map[string]string{"name": "John Doe"},
		"mobile":   map[string]string{"phone_number": "237650123456"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp checkout.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Result.Success)
	assert.Equal(t, int64(300000), resp.Amount)
	assert.Equal(t, int64(50), resp.Fee)
	assert.Equal(t, int64(300050), resp.Total)
	require.NotEmpty(t, resp.OrderID)

	order, err := orders.GetOrder(context.Background(), resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "u1", order.UserID)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/cart/", "u1", nil)
	assert.Equal(t, 0, decodeCart(t, rec).TotalItems)
}

func TestCheckout_ValidationFailureKeepsCart(t *testing.T) {
	router, orders := newTestRouter(t)

	doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "u1", addItemBody("p1", 150000, 2))

	rec := doRequest(t, router, http.MethodPost, "/api/v1/checkout", "u1", map[string]interface{}{
		"method": "orange_money",
		"mobile": map[string]string{"phone_number": "237250123456"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp checkout.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Result.Success)
	assert.Empty(t, resp.OrderID)
	assert.Empty(t, orders.orders)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/cart/", "u1", nil)
	assert.Equal(t, 2, decodeCart(t, rec).TotalItems)
}

func TestCheckout_EmptyCart(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/checkout", "u1", map[string]interface{}{
		"method": "orange_money",
		"mobile": map[string]string{"phone_number": "237650123456"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "empty_cart", errResp.Code)
}

func TestVerify_MissingTransactionID(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/payment/verify", "u1", map[string]string{})
	require.Equal(t, http.StatusNotFound, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "transaction_not_found", errResp.Code)
}

func TestVerify_KnownTransaction(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/payment/verify", "u1", map[string]string{
		"transaction_id": "OM_1700000000000",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var receipt payment.Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.Equal(t, "OM_1700000000000", receipt.TransactionID)
	assert.Equal(t, payment.StatusCompleted, receipt.Status)
}

func TestRefund_Validation(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/payment/refund", "u1", map[string]interface{}{
		"transaction_id": "OM_1700000000000",
		"amount":         0,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/payment/refund", "u1", map[string]interface{}{
		"amount": 5000,
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckout_UnknownMethod(t *testing.T) {
	router, _ := newTestRouter(t)

	doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "u1", addItemBody("p1", 150000, 1))

	rec := doRequest(t, router, http.MethodPost, "/api/v1/checkout", "u1", map[string]interface{}{
		"method": "bitcoin",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "method_not_supported", errResp.Code)
}
