// Package classify decides whether a file is text or binary and infers its
// MIME type. Detection is a chain of strategies tried in order; the first one
// that reaches a decision wins.
package classify

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/pders01/checkpoint/internal/models"
	"github.com/spf13/afero"
)

// SampleSize is the number of leading bytes inspected by the heuristic
const SampleSize = 1024

// Strategy is a single text/binary detection rule.
// ok is false when the strategy cannot decide.
type Strategy interface {
	Detect(path string, sample []byte) (isText, ok bool)
}

// Result is the persisted classification of a file
type Result struct {
	MimeType   string
	Encoding   models.Encoding
	IsTextFile bool
}

// Classifier runs strategies in order and always returns a definite answer
type Classifier struct {
	strategies []Strategy
}

// New creates a classifier trying each strategy in order
func New(strategies ...Strategy) *Classifier {
	return &Classifier{strategies: strategies}
}

// Default returns the sampling heuristic followed by the static allow-list
func Default() *Classifier {
	return New(SampleStrategy{}, NewAllowList())
}

// Classify classifies a file from an already-read sample
func (c *Classifier) Classify(path string, sample []byte) Result {
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}

	isText := c.detect(path, sample)
	res := Result{
		MimeType:   mimeType(path, sample, isText),
		Encoding:   models.EncodingBinary,
		IsTextFile: isText,
	}
	if isText {
		res.Encoding = models.EncodingUTF8
	}
	return res
}

// ClassifyFile reads up to SampleSize bytes of path from fsys and classifies it
func (c *Classifier) ClassifyFile(fsys afero.Fs, path string) (Result, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, SampleSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Result{}, fmt.Errorf("failed to read sample of %s: %w", path, err)
	}
	return c.Classify(path, buf[:n]), nil
}

func (c *Classifier) detect(path string, sample []byte) bool {
	for _, s := range c.strategies {
		if isText, ok := s.Detect(path, sample); ok {
			return isText
		}
	}
	// Nothing decided: an empty file is harmless as text, anything else is
	// kept byte-exact as binary.
	return len(sample) == 0
}

func mimeType(path string, sample []byte, isText bool) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		return t
	}
	if len(sample) > 0 {
		sniffed := http.DetectContentType(sample)
		// the sniffer falls back to octet-stream for anything unknown, which
		// contradicts a text decision
		if !(isText && sniffed == "application/octet-stream") {
			return sniffed
		}
	}
	if isText {
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}
