package rfq

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/portcall/adapters/internal/httpclient"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	exec := httpclient.New(zap.NewNop(), nil, server.Client(), httpclient.Config{
		BaseURL:  server.URL,
		RetryMax: 2,
		Tag:      "rfq",
	})
	return NewClient(exec), server
}

func steelRodsPayload() RFQCreatePayload {
	return RFQCreatePayload{
		Title:        "Steel Rods",
		BuyerCompany: "Acme",
		Port:         "Jebel Ali",
		DeadlineDays: 14,
		RequiredItems: []RFQItem{
			{Name: "Rod 10mm", Quantity: Ptr(500.0), Unit: Ptr(UnitUnits)},
		},
	}
}

const steelRodsCreated = `{
	"id": 42,
	"user_id": 7,
	"created_at": "2024-01-01T00:00:00Z",
	"title": "Steel Rods",
	"buyer_company": "Acme",
	"port": "Jebel Ali",
	"deadline_days": 14,
	"tags": [],
	"required_items": [{"name": "Rod 10mm", "quantity": 500, "unit": "units", "essential": false}],
	"terms": {}
}`

func TestClient_Create(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/rfqs", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"title": "Steel Rods",
			"buyer_company": "Acme",
			"port": "Jebel Ali",
			"deadline_days": 14,
			"required_items": [{"name": "Rod 10mm", "quantity": 500, "unit": "units"}]
		}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(steelRodsCreated))
	})

	got, err := client.Create(context.Background(), steelRodsPayload())
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load(), "create issues exactly one POST")

	var want RFQ
	require.NoError(t, json.Unmarshal([]byte(steelRodsCreated), &want))
	assert.Equal(t, want, *got)
	assert.EqualValues(t, 42, got.ID)
	require.NotNil(t, got.UserID)
	assert.EqualValues(t, 7, *got.UserID)
	assert.Equal(t, "2024-01-01T00:00:00Z", got.CreatedAt)
	require.NotNil(t, got.RequiredItems[0].Essential)
	assert.False(t, *got.RequiredItems[0].Essential)
}

func TestClient_CreateWithoutItemsSendsEmptyList(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"required_items":[]`)
		assert.NotContains(t, string(body), "null")

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(steelRodsCreated))
	})

	p := steelRodsPayload()
	p.RequiredItems = nil
	_, err := client.Create(context.Background(), p)
	require.NoError(t, err)
	assert.Nil(t, p.RequiredItems, "caller's payload is not modified")
}

func TestClient_CreateServerErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Create(context.Background(), steelRodsPayload())
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_CreateForbiddenPropagates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"Only shipping companies can create RFQs"}`))
	})

	got, err := client.Create(context.Background(), steelRodsPayload())
	assert.Nil(t, got)

	var se *httpclient.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
}

func TestClient_List_PreservesOrderAndLength(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/rfqs", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery, "no pagination or filtering is added")
		_, _ = w.Write([]byte(`[
			{"id": 9, "title": "Paint", "buyer_company": "B", "port": "Rotterdam", "deadline_days": 5, "required_items": [], "created_at": "2024-02-01T00:00:00Z"},
			{"id": 3, "title": "Rope", "buyer_company": "A", "port": "Singapore", "deadline_days": 7, "required_items": [], "created_at": "2024-01-01T00:00:00Z"},
			{"id": 5, "title": "Bolts", "buyer_company": "C", "port": "Jebel Ali", "deadline_days": 3, "required_items": [], "created_at": "2024-01-15T00:00:00Z"}
		]`))
	})

	got, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.EqualValues(t, []int64{9, 3, 5}, []int64{got[0].ID, got[1].ID, got[2].ID})
}

func TestClient_List_Empty(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	got, err := client.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestClient_Market(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/rfqs/market", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id": 11, "title": "Fuel", "buyer_company": "A", "port": "Fujairah", "deadline_days": 2, "required_items": [], "created_at": "2024-03-01T00:00:00Z"}]`))
	})

	got, err := client.Market(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Fujairah", got[0].Port)
}

func TestClient_Get_StringAndNumericIDs(t *testing.T) {
	var paths []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(steelRodsCreated))
	})

	a, err := client.Get(context.Background(), "42")
	require.NoError(t, err)
	b, err := client.Get(context.Background(), IntID(42))
	require.NoError(t, err)

	assert.Equal(t, []string{"/api/v1/rfqs/42", "/api/v1/rfqs/42"}, paths)
	assert.Equal(t, a, b)
	assert.Equal(t, "Steel Rods", a.Title)
}

func TestClient_Get_NotFoundPropagates(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"RFQ not found"}`))
	})

	got, err := client.Get(context.Background(), "999")
	assert.Nil(t, got)
	var se *httpclient.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_Get_DecodeFailurePropagates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": "not-a-number"}`))
	})

	_, err := client.Get(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode failed")
}

func TestClient_LegacyQtyDecodes(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": 1, "title": "Old", "buyer_company": "A", "port": "Piraeus", "deadline_days": 5,
			"required_items": [{"name": "Cable", "qty": "2 rolls"}], "created_at": "2023-05-01T00:00:00Z"}`))
	})

	got, err := client.Get(context.Background(), "1")
	require.NoError(t, err)
	item := got.RequiredItems[0]
	require.NotNil(t, item.Qty)
	assert.Equal(t, "2 rolls", *item.Qty)
	assert.Nil(t, item.Quantity, "legacy qty is not migrated")
	assert.Nil(t, item.Unit)
}

// recordingTransport counts calls so PDFURL can be shown to do no I/O.
type recordingTransport struct {
	base  string
	calls int
}

func (r *recordingTransport) BaseURL() string { return r.base }
func (r *recordingTransport) GetJSON(context.Context, string, any) error {
	r.calls++
	return nil
}
func (r *recordingTransport) PostJSON(context.Context, string, any, any) error {
	r.calls++
	return nil
}

func TestClient_PDFURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		id   ID
		want string
	}{
		{"numeric", "https://api.example.com", IntID(42), "https://api.example.com/api/v1/rfqs/42/pdf"},
		{"string", "https://api.example.com", "42", "https://api.example.com/api/v1/rfqs/42/pdf"},
		{"empty base", "", "7", "/api/v1/rfqs/7/pdf"},
		{"unvalidated id", "https://api.example.com", "a b", "https://api.example.com/api/v1/rfqs/a b/pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &recordingTransport{base: tt.base}
			c := NewClient(tr)

			assert.Equal(t, tt.want, c.PDFURL(tt.id))
			assert.Equal(t, tt.want, c.PDFURL(tt.id), "deterministic")
			assert.Zero(t, tr.calls, "no network call")
		})
	}
}

func TestRFQ_Ref(t *testing.T) {
	assert.Equal(t, ID("42"), RFQ{ID: 42}.Ref())
}
