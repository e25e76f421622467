// Package store is the document database used by the proposal workflows:
// collections of JSON documents addressed by path and id, with equality
// queries, ordering, server-assigned timestamps and transactions.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("document not found")

// Document is a stored JSON object. Fields are normalized through JSON, so
// numbers come back as float64 and timestamps as RFC 3339 strings.
type Document struct {
	ID         string
	Collection string
	Fields     map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Decode unmarshals the document fields into target.
func (d Document) Decode(target any) error {
	raw, err := json.Marshal(d.Fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", d.Collection, d.ID, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode %s/%s: %w", d.Collection, d.ID, err)
	}
	return nil
}

type Filter struct {
	Field string
	Value any
}

type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Tx is the set of operations available both on the store and inside a
// transaction started by RunInTx.
type Tx interface {
	GetDocument(ctx context.Context, collection, id string) (Document, error)
	QueryDocuments(ctx context.Context, collection string, q Query) ([]Document, error)
	SetDocument(ctx context.Context, collection, id string, fields map[string]any) error
	UpdateDocument(ctx context.Context, collection, id string, patch map[string]any) error
	AddDocument(ctx context.Context, collection string, fields map[string]any) (string, error)
}

type DocumentStore interface {
	Tx
	// RunInTx runs fn as one unit of work. Documents read through tx stay
	// locked until fn returns; any error rolls back every write made by fn.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
}

type serverTimestamp struct{}

func (serverTimestamp) MarshalJSON() ([]byte, error) {
	return nil, errors.New("server timestamp must be resolved by the store")
}

// ServerTimestamp is a field value the store replaces with its own clock at
// write time.
var ServerTimestamp any = serverTimestamp{}

// SubCollection returns the path of a collection nested under a document.
func SubCollection(collection, id, name string) string {
	return collection + "/" + id + "/" + name
}

func resolveTimestamps(fields map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if _, ok := value.(serverTimestamp); ok {
			out[key] = now.UTC()
			continue
		}
		out[key] = value
	}
	return out
}

func hasServerTimestamp(fields map[string]any) bool {
	for _, value := range fields {
		if _, ok := value.(serverTimestamp); ok {
			return true
		}
	}
	return false
}

// normalize round-trips fields through JSON so every backend hands back the
// same shapes.
func normalize(fields map[string]any) (map[string]any, []byte, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, nil, fmt.Errorf("encode fields: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, nil, fmt.Errorf("decode fields: %w", err)
	}
	return out, raw, nil
}
