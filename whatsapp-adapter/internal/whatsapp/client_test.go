package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/commerce-adapters/pkg/model"
)

var testCreds = StaticCredentials{
	AccessToken:   "test-token",
	PhoneNumberID: "1098765",
	CatalogID:     "cat-1",
}

func newTestClient(t *testing.T, creds CredentialSource, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	return newPagedTestClient(t, creds, 5, handler)
}

func newPagedTestClient(t *testing.T, creds CredentialSource, maxPages int, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(zap.NewNop(), ClientConfig{
		BaseURL:     server.URL,
		APIVersion:  "v23.0",
		Timeout:     5 * time.Second,
		ReadRetries: 1,
		MaxPages:    maxPages,
	}, creds, NewMapper(nil, "https://shop.example.com"), nil)
	require.NoError(t, err)
	return client, server
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ─── Catalog reads ───────────────────────────────────────────────────────────

func TestClient_ListProducts_FollowsPaging(t *testing.T) {
	var serverURL string
	client, server := newTestClient(t, testCreds, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v23.0/cat-1/products", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, ProductFields, r.URL.Query().Get("fields"))

		if r.URL.Query().Get("after") == "" {
			writeJSON(w, http.StatusOK, map[string]any{
				"data":   []map[string]any{{"id": "g1", "retailer_id": "p1", "name": "Widget", "price": "SGD50.00"}},
				"paging": map[string]any{"next": serverURL + "/v23.0/cat-1/products?fields=" + ProductFields + "&after=c1"},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data": []map[string]any{{"id": "g2", "retailer_id": "p2", "name": "Gadget", "price": 1999}},
		})
	})
	serverURL = server.URL

	products, err := client.ListProducts(context.Background(), "cat-1")
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "p1", products[0].ExternalID())
	assert.Equal(t, "p2", products[1].ExternalID())
}

func TestClient_ListProducts_IgnoresForeignPagingHost(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, testCreds, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"data":   []map[string]any{{"id": "g1"}},
			"paging": map[string]any{"next": "https://evil.example.com/steal"},
		})
	})

	products, err := client.ListProducts(context.Background(), "cat-1")
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.EqualValues(t, 1, calls.Load())
}

// endlessPages serves one product per page and always links a next page.
func endlessPages(serverURL *string, calls *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"data":   []map[string]any{{"id": fmt.Sprintf("g%d", n), "retailer_id": fmt.Sprintf("p%d", n)}},
			"paging": map[string]any{"next": fmt.Sprintf("%s/v23.0/cat-1/products?after=c%d", *serverURL, n)},
		})
	}
}

func TestClient_ListProducts_StopsAtPageLimit(t *testing.T) {
	var serverURL string
	var calls atomic.Int32
	client, server := newPagedTestClient(t, testCreds, 3, endlessPages(&serverURL, &calls))
	serverURL = server.URL

	products, err := client.ListProducts(context.Background(), "cat-1")
	require.NoError(t, err)
	assert.Len(t, products, 3)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_ListAllProducts_FailsWhenTruncated(t *testing.T) {
	var serverURL string
	var calls atomic.Int32
	client, server := newPagedTestClient(t, testCreds, 2, endlessPages(&serverURL, &calls))
	serverURL = server.URL

	products, err := client.ListAllProducts(context.Background(), "cat-1")
	assert.Nil(t, products)
	assert.True(t, errors.Is(err, ErrCatalogTruncated))
	assert.True(t, errors.Is(err, ErrUpstreamUnavailable))
	assert.EqualValues(t, 2, calls.Load())
}

func TestClient_ListAllProducts_ForeignPagingHostIsTruncation(t *testing.T) {
	client, _ := newTestClient(t, testCreds, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"data":   []map[string]any{{"id": "g1"}},
			"paging": map[string]any{"next": "https://evil.example.com/steal"},
		})
	})

	_, err := client.ListAllProducts(context.Background(), "cat-1")
	assert.True(t, errors.Is(err, ErrCatalogTruncated))
}

func TestClient_ListAllProducts_Complete(t *testing.T) {
	client, _ := newPagedTestClient(t, testCreds, 1, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"id": "g1", "retailer_id": "p1"}}})
	})

	products, err := client.ListAllProducts(context.Background(), "cat-1")
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestClient_ListProducts_UpstreamUnavailable(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, testCreds, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error": map[string]any{"message": "Unsupported get request", "type": "GraphMethodException", "code": 100, "fbtrace_id": "AbC"},
		})
	})

	_, err := client.ListProducts(context.Background(), "cat-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamUnavailable))

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusForbidden, ue.Status)
	assert.Contains(t, ue.Body, "Unsupported get request")
	require.NotNil(t, ue.Graph)
	assert.Equal(t, 100, ue.Graph.Code)
	assert.Equal(t, "AbC", ue.Graph.FBTraceID)
	assert.EqualValues(t, 1, calls.Load(), "4xx reads are not retried")
}

func TestClient_ListProducts_Retries5xx(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, testCreds, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{}})
	})

	_, err := client.ListProducts(context.Background(), "cat-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestClient_GetCatalog_Raw(t *testing.T) {
	client, _ := newTestClient(t, testCreds, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"g1","price":"SGD1.00"}],"paging":{}}`))
	})

	raw, err := client.GetCatalog(context.Background(), "cat-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[{"id":"g1","price":"SGD1.00"}],"paging":{}}`, string(raw))
}

// ─── Configuration errors fail before any network call ──────────────────────

func TestClient_MissingCredentials(t *testing.T) {
	var calls atomic.Int32
	handler := func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }

	tests := []struct {
		name  string
		creds StaticCredentials
		call  func(*Client) error
		field string
	}{
		{
			name:  "list without token",
			creds: StaticCredentials{CatalogID: "cat-1"},
			call: func(c *Client) error {
				_, err := c.ListProducts(context.Background(), "cat-1")
				return err
			},
			field: "WHATSAPP_ACCESS_TOKEN",
		},
		{
			name:  "create without catalog",
			creds: StaticCredentials{AccessToken: "tok"},
			call: func(c *Client) error {
				_, err := c.CreateProduct(context.Background(), "", model.Product{ID: "x"})
				return err
			},
			field: "WHATSAPP_CATALOG_ID",
		},
		{
			name:  "update without token",
			creds: StaticCredentials{},
			call: func(c *Client) error {
				name := "n"
				return c.UpdateProduct(context.Background(), "cat-1", "g1", model.ProductPatch{Name: &name})
			},
			field: "WHATSAPP_ACCESS_TOKEN",
		},
		{
			name:  "send without phone number id",
			creds: StaticCredentials{AccessToken: "tok"},
			call: func(c *Client) error {
				_, err := c.SendMessage(context.Background(), &outboundMessage{To: "1", Type: "text"})
				return err
			},
			field: "WHATSAPP_PHONE_NUMBER_ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.creds, handler)
			err := tt.call(client)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
	assert.EqualValues(t, 0, calls.Load(), "no request may reach the network")
}

// ─── Catalog writes ──────────────────────────────────────────────────────────

func TestClient_CreateProduct(t *testing.T) {
	client, _ := newTestClient(t, testCreds, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v23.0/cat-1/products", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "mug", body["retailer_id"])
		assert.EqualValues(t, 1250, body["price"])
		assert.Equal(t, "USD", body["currency"])
		assert.Equal(t, "in stock", body["availability"])
		assert.Equal(t, "https://cdn/mug.jpg", body["image_url"])
		assert.Equal(t, "https://shop.example.com/products/mug", body["url"])

		writeJSON(w, http.StatusOK, map[string]string{"id": "g-new"})
	})

	id, err := client.CreateProduct(context.Background(), "cat-1", model.Product{
		ID:       "mug",
		Name:     "Mug",
		Price:    decimal.RequireFromString("12.50"),
		ImageURL: "https://cdn/mug.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "g-new", id)
}

func TestClient_CreateProduct_RejectedNotRetried(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, testCreds, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": map[string]any{"message": "(#10800) Duplicate retailer_id", "code": 10800},
		})
	})

	_, err := client.CreateProduct(context.Background(), "cat-1", model.Product{ID: "mug", Name: "Mug"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamRejected))
	assert.Contains(t, err.Error(), "Duplicate retailer_id")
	assert.EqualValues(t, 1, calls.Load(), "writes are never retried")
}

func TestClient_UpdateProduct_Sparse(t *testing.T) {
	client, _ := newTestClient(t, testCreds, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v23.0/g1", r.URL.Path)

		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"price":999,"availability":"out of stock"}`, string(b))
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})

	price := decimal.RequireFromString("9.99")
	avail := model.AvailabilityOutOfStock
	err := client.UpdateProduct(context.Background(), "cat-1", "g1", model.ProductPatch{Price: &price, Availability: &avail})
	require.NoError(t, err)
}

func TestClient_UpdateProduct_MissingProductIDRejectedLocally(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, testCreds, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

	name := "Mug"
	err := client.UpdateProduct(context.Background(), "cat-1", "", model.ProductPatch{Name: &name})
	var pe *InvalidProductError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "product id is required", pe.Reason)
	assert.False(t, errors.Is(err, ErrUpstreamRejected))
	assert.EqualValues(t, 0, calls.Load())
}

func TestClient_UpdateProduct_EmptyPatchIsNoop(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, testCreds, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

	require.NoError(t, client.UpdateProduct(context.Background(), "cat-1", "g1", model.ProductPatch{}))
	assert.EqualValues(t, 0, calls.Load())
}

// ─── Messages ────────────────────────────────────────────────────────────────

func TestClient_SendMessage(t *testing.T) {
	client, _ := newTestClient(t, testCreds, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v23.0/1098765/messages", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"messaging_product": "whatsapp",
			"contacts":          []map[string]string{{"input": "6584373362", "wa_id": "6584373362"}},
			"messages":          []map[string]string{{"id": "wamid.ABC"}},
		})
	})

	res, err := client.SendMessage(context.Background(), &outboundMessage{MessagingProduct: "whatsapp", To: "6584373362", Type: "text", Text: &textPayload{Body: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "wamid.ABC", res.MessageID)
	assert.Equal(t, "6584373362", res.WaID)
}

func TestClient_SendMessage_DeliveryFailed(t *testing.T) {
	client, _ := newTestClient(t, testCreds, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{"message": "Recipient phone number not in allowed list", "code": 131030},
		})
	})

	_, err := client.SendMessage(context.Background(), &outboundMessage{To: "1", Type: "text"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeliveryFailed))

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusBadRequest, ue.Status)
	assert.Contains(t, ue.Body, "131030")
}

func TestClient_UnauthorizedInvalidatesCredentials(t *testing.T) {
	busted := false
	creds := ResolvedCredentials{
		Resolve: func(context.Context) (Credentials, error) { return Credentials(testCreds), nil },
		Bust:    func() { busted = true },
	}
	client, _ := newTestClient(t, creds, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"message": "Session has expired", "code": 190}})
	})

	_, err := client.ListProducts(context.Background(), "cat-1")
	require.Error(t, err)
	assert.True(t, busted)
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient(zap.NewNop(), ClientConfig{BaseURL: "not a url"}, testCreds, nil, nil)
	assert.Error(t, err)
}
