package rfq

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/portcall/adapters/rfq-adapter/internal/metrics"
)

const collectionPath = "/api/v1/rfqs"

// Transport is the HTTP collaborator the client delegates to.
// *httpclient.Executor satisfies it.
type Transport interface {
	BaseURL() string
	GetJSON(ctx context.Context, path string, out any) error
	PostJSON(ctx context.Context, path string, body any, out any) error
}

// Client is a thin facade over the RFQ resource. It adds no caching,
// retries or validation; transport errors are returned unchanged.
type Client struct {
	http Transport
}

// NewClient returns a Client backed by t.
func NewClient(t Transport) *Client {
	return &Client{http: t}
}

// List returns every RFQ visible to the caller.
// GET /api/v1/rfqs
func (c *Client) List(ctx context.Context) ([]RFQ, error) {
	var out []RFQ
	err := c.get(ctx, "rfqs.list", collectionPath, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Market returns the vendor market feed: RFQs at ports the caller serves.
// GET /api/v1/rfqs/market
func (c *Client) Market(ctx context.Context) ([]RFQ, error) {
	var out []RFQ
	err := c.get(ctx, "rfqs.market", collectionPath+"/market", &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Create submits a new RFQ and returns the record the server stored.
// POST /api/v1/rfqs
func (c *Client) Create(ctx context.Context, payload RFQCreatePayload) (*RFQ, error) {
	start := time.Now()
	var out RFQ
	err := c.http.PostJSON(ctx, collectionPath, payload.withItems(), &out)
	metrics.ObserveRequest("rfqs.create", http.MethodPost, start, err)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches a single RFQ.
// GET /api/v1/rfqs/{id}
func (c *Client) Get(ctx context.Context, id ID) (*RFQ, error) {
	var out RFQ
	if err := c.get(ctx, "rfqs.get", itemPath(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PDFURL returns the download URL of the RFQ's PDF. It performs no I/O and no
// validation; with an empty base URL the result is a bare path.
func (c *Client) PDFURL(id ID) string {
	return c.http.BaseURL() + itemPath(id) + "/pdf"
}

func (c *Client) get(ctx context.Context, endpoint, path string, out any) error {
	start := time.Now()
	err := c.http.GetJSON(ctx, path, out)
	metrics.ObserveRequest(endpoint, http.MethodGet, start, err)
	return err
}

func itemPath(id ID) string {
	return fmt.Sprintf("%s/%s", collectionPath, id)
}
