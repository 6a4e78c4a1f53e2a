package ports

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CollectionType is the node type of folder-like entries on the device.
const CollectionType = "CollectionType"

// Node is one entry of the device's document tree.
type Node struct {
	ID             string `json:"ID"`
	VisibleName    string `json:"VissibleName"` // sic, the device misspells it
	Type           string `json:"Type"`
	ModifiedClient string `json:"ModifiedClient"`
}

// IsCollection reports whether the node is a folder.
func (n Node) IsCollection() bool {
	return n.Type == CollectionType
}

// ErrBadTimestamp is returned for a ModifiedClient value that is not ISO-8601.
var ErrBadTimestamp = errors.New("malformed timestamp")

// timestampLayouts cover the ISO-8601 forms the device may send. Fractional
// seconds are accepted after any of them; a missing zone means UTC.
var timestampLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO-8601 date-time.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
}

// Modified parses the node's ModifiedClient timestamp.
func (n Node) Modified() (time.Time, error) {
	return ParseTimestamp(n.ModifiedClient)
}

// Document is a downloaded document.
type Document struct {
	Content []byte
}

// Device abstracts the tablet's document API.
// Production code uses the reqdevice adapter; tests use mocks.Device.
type Device interface {
	// ListChildren returns the children of a collection in device order.
	// An empty collectionID lists the root.
	ListChildren(ctx context.Context, collectionID string) ([]Node, error)

	// FetchDocument downloads a document's bytes.
	FetchDocument(ctx context.Context, node Node) (Document, error)
}
