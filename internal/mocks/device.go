package mocks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mcdonaldj/rmbak/internal/ports"
)

// ErrInjected is returned by Device for nodes listed in FailOn.
var ErrInjected = errors.New("mock: injected device failure")

// Device implements ports.Device from an in-memory tree.
type Device struct {
	// Children maps collection IDs ("" is the root) to their nodes
	Children map[string][]ports.Node
	// Contents maps document IDs to their bytes
	Contents map[string][]byte
	// FailOn makes ListChildren or FetchDocument fail for these IDs
	FailOn map[string]bool

	// Listed and Fetched record call order
	Listed  []string
	Fetched []string
}

// NewDevice creates an empty device.
func NewDevice() *Device {
	return &Device{
		Children: make(map[string][]ports.Node),
		Contents: make(map[string][]byte),
		FailOn:   make(map[string]bool),
	}
}

// AddCollection adds a collection under parent and returns its ID.
func (d *Device) AddCollection(parent, id, name string) string {
	d.Children[parent] = append(d.Children[parent], ports.Node{
		ID:             id,
		VisibleName:    name,
		Type:           ports.CollectionType,
		ModifiedClient: "2024-01-01T00:00:00Z",
	})
	if _, ok := d.Children[id]; !ok {
		d.Children[id] = nil
	}
	return id
}

// AddDocument adds a document under parent.
func (d *Device) AddDocument(parent, id, name string, content []byte, modified time.Time) {
	d.Children[parent] = append(d.Children[parent], ports.Node{
		ID:             id,
		VisibleName:    name,
		Type:           "DocumentType",
		ModifiedClient: modified.UTC().Format(time.RFC3339Nano),
	})
	d.Contents[id] = content
}

// ListChildren returns the nodes registered under collectionID.
func (d *Device) ListChildren(ctx context.Context, collectionID string) ([]ports.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.Listed = append(d.Listed, collectionID)
	if d.FailOn[collectionID] {
		return nil, fmt.Errorf("listing %q: %w", collectionID, ErrInjected)
	}
	children, ok := d.Children[collectionID]
	if !ok {
		return nil, fmt.Errorf("listing %q: collection not found", collectionID)
	}
	return children, nil
}

// FetchDocument returns the registered content.
func (d *Device) FetchDocument(ctx context.Context, node ports.Node) (ports.Document, error) {
	if err := ctx.Err(); err != nil {
		return ports.Document{}, err
	}
	d.Fetched = append(d.Fetched, node.ID)
	if d.FailOn[node.ID] {
		return ports.Document{}, fmt.Errorf("fetching %q: %w", node.ID, ErrInjected)
	}
	content, ok := d.Contents[node.ID]
	if !ok {
		return ports.Document{}, fmt.Errorf("fetching %q: document not found", node.ID)
	}
	return ports.Document{Content: content}, nil
}

var _ ports.Device = (*Device)(nil)
