// Package reqdevice talks to the tablet's USB web interface over HTTP.
package reqdevice

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"

	"github.com/mcdonaldj/rmbak/internal/ports"
)

// DefaultURL is the address the tablet serves on when connected over USB.
const DefaultURL = "http://10.11.99.1"

const userAgent = "rmbak"

// ErrHTTPStatus is returned when the device answers with a non-2xx status.
var ErrHTTPStatus = errors.New("device: unexpected http status")

// Client implements ports.Device on top of a req client.
type Client struct {
	client *req.Client
}

// New creates a device client for baseURL. A zero timeout keeps the
// transport default.
func New(baseURL string, timeout time.Duration) *Client {
	client := req.C().
		SetBaseURL(baseURL).
		SetUserAgent(userAgent)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &Client{client: client}
}

func listPath(collectionID string) string {
	if collectionID == "" {
		return "/documents/"
	}
	return "/documents/" + url.PathEscape(collectionID) + "/"
}

func downloadPath(documentID string) string {
	return "/download/" + url.PathEscape(documentID) + "/placeholder"
}

// ListChildren returns the nodes of a collection in the order the device
// sends them.
func (c *Client) ListChildren(ctx context.Context, collectionID string) ([]ports.Node, error) {
	path := listPath(collectionID)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}

	var nodes []ports.Node
	if err := json.Unmarshal(body, &nodes); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return nodes, nil
}

// FetchDocument downloads the document's bytes.
func (c *Client) FetchDocument(ctx context.Context, node ports.Node) (ports.Document, error) {
	path := downloadPath(node.ID)
	body, err := c.get(ctx, path)
	if err != nil {
		return ports.Document{}, fmt.Errorf("downloading %s: %w", node.VisibleName, err)
	}

	return ports.Document{Content: body}, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("http request error: %w", err)
	}

	if !resp.IsSuccessState() {
		return nil, fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status)
	}

	return resp.Bytes(), nil
}

// Compile-time check that Client implements ports.Device.
var _ ports.Device = (*Client)(nil)
