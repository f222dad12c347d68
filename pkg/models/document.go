package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Document is a raw, semi-structured API object. Values are whatever
// encoding/json produces with UseNumber: json.Number, string, bool, nil,
// []interface{} and map[string]interface{}.
type Document map[string]interface{}

// Object returns the nested object stored under key, or nil when the key is
// absent or holds something other than an object.
func (d Document) Object(key string) Document {
	switch v := d[key].(type) {
	case map[string]interface{}:
		return Document(v)
	case Document:
		return v
	default:
		return nil
	}
}

// AccountBatch is the raw activity list cached for one account.
type AccountBatch struct {
	Account string
	Records []Document
}

func newDecoder(r io.Reader) *json.Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec
}

func DecodeDocument(data []byte) (Document, error) {
	return ReadDocument(bytes.NewReader(data))
}

func DecodeDocuments(data []byte) ([]Document, error) {
	return ReadDocuments(bytes.NewReader(data))
}

// ReadDocument decodes a single object from r.
func ReadDocument(r io.Reader) (Document, error) {
	var doc Document
	if err := newDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

// ReadDocuments decodes a JSON array of objects from r.
func ReadDocuments(r io.Reader) ([]Document, error) {
	var docs []Document
	if err := newDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("failed to decode document list: %w", err)
	}
	return docs, nil
}
