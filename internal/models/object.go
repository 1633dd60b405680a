package models

import "time"

// ContentObject is the on-disk envelope of a stored file body
type ContentObject struct {
	Hash                 string      `json:"hash"`
	Content              string      `json:"content"` // base64 of the (possibly compressed) payload
	OriginalSize         int64       `json:"originalSize"`
	CompressionAlgorithm Compression `json:"compressionAlgorithm,omitempty"`
	MimeType             string      `json:"mimeType"`
	Encoding             Encoding    `json:"encoding"`
	CreatedAt            time.Time   `json:"createdAt"`
}

// DiffObject is a precomputed unified patch between two text states of a file
type DiffObject struct {
	Hash      string    `json:"hash"`
	Path      string    `json:"path"`
	FromHash  string    `json:"fromHash"`
	ToHash    string    `json:"toHash"`
	Patch     string    `json:"patch"`
	Additions int       `json:"additions"`
	Deletions int       `json:"deletions"`
	CreatedAt time.Time `json:"createdAt"`
}
