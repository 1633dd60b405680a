package store

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pders01/checkpoint/internal/logging"
	"github.com/pders01/checkpoint/internal/models"
	"github.com/pterm/pterm"
)

// compressionThreshold is the largest compressed/original ratio for which
// the gzip form is kept
const compressionThreshold = 0.9

// ContentStore persists file bodies keyed by content hash. Objects are
// immutable; storing an existing hash is a successful no-op.
type ContentStore struct {
	layout *Layout
	log    *pterm.Logger
	now    func() time.Time
}

// NewContentStore creates a content store on layout
func NewContentStore(layout *Layout, logger *pterm.Logger) *ContentStore {
	return &ContentStore{layout: layout, log: logging.OrDiscard(logger), now: time.Now}
}

// Store writes content under hash in branch. content is the text of a text
// file or the base64 form of a binary file, matching encoding. written is
// false when the object already existed.
func (s *ContentStore) Store(branch, hash, content, mimeType string, encoding models.Encoding) (bool, error) {
	path := s.layout.ContentPath(branch, hash)
	if exists(s.layout.fs, path) {
		return false, nil
	}

	raw := []byte(content)
	payload, algo, err := compress(raw)
	if err != nil {
		return false, fmt.Errorf("failed to compress %s: %w", hash, err)
	}

	obj := models.ContentObject{
		Hash:                 hash,
		Content:              base64.StdEncoding.EncodeToString(payload),
		OriginalSize:         int64(len(raw)),
		CompressionAlgorithm: algo,
		MimeType:             mimeType,
		Encoding:             encoding,
		CreatedAt:            s.now().UTC(),
	}
	if _, err := writeJSONAtomic(s.layout.fs, path, obj); err != nil {
		return false, fmt.Errorf("failed to store content %s: %w", hash, err)
	}

	s.log.Trace("stored content", s.log.Args("branch", branch, "hash", hash, "compression", algo))
	return true, nil
}

// Load reads the envelope of an object without decoding its payload
func (s *ContentStore) Load(branch, hash string) (*models.ContentObject, error) {
	var obj models.ContentObject
	if err := readJSON(s.layout.fs, s.layout.ContentPath(branch, hash), &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// Get returns the stored content in the form it was given to Store.
// Missing or corrupt objects yield ("", false) and are logged.
func (s *ContentStore) Get(branch, hash string) (string, bool) {
	obj, err := s.Load(branch, hash)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn("unreadable content object", s.log.Args("branch", branch, "hash", hash, "error", err))
		} else {
			s.log.Debug("content object not found", s.log.Args("branch", branch, "hash", hash))
		}
		return "", false
	}

	data, err := Decode(obj)
	if err != nil {
		s.log.Warn("failed to decode content object", s.log.Args("branch", branch, "hash", hash, "error", err))
		return "", false
	}
	return string(data), true
}

// Exists reports whether an object for hash is present in branch
func (s *ContentStore) Exists(branch, hash string) bool {
	return exists(s.layout.fs, s.layout.ContentPath(branch, hash))
}

// List returns every content hash stored in branch, sorted
func (s *ContentStore) List(branch string) ([]string, error) {
	return listSharded(s.layout.fs, s.layout.ContentDir(branch))
}

// Remove deletes the object for hash. Removing a missing object is not an error.
func (s *ContentStore) Remove(branch, hash string) error {
	path := s.layout.ContentPath(branch, hash)
	if !exists(s.layout.fs, path) {
		return nil
	}
	return s.layout.fs.Remove(path)
}

// Decode returns the original payload of obj. Tagged objects are decoded by
// their tag; untagged objects from older stores try gzip and fall back to
// the raw bytes.
func Decode(obj *models.ContentObject) ([]byte, error) {
	payload, err := base64.StdEncoding.DecodeString(obj.Content)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}

	switch obj.CompressionAlgorithm {
	case models.CompressionNone:
		return payload, nil
	case models.CompressionGzip:
		return gunzip(payload)
	case "":
		if data, err := gunzip(payload); err == nil {
			return data, nil
		}
		return payload, nil
	default:
		return nil, fmt.Errorf("unknown compression algorithm: %s", obj.CompressionAlgorithm)
	}
}

// compress gzips raw and keeps the result only when it is small enough
func compress(raw []byte) ([]byte, models.Compression, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, "", err
	}
	if err := zw.Close(); err != nil {
		return nil, "", err
	}

	if len(raw) > 0 && float64(buf.Len()) <= float64(len(raw))*compressionThreshold {
		return buf.Bytes(), models.CompressionGzip, nil
	}
	return raw, models.CompressionNone, nil
}

func gunzip(payload []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
