// Package scan walks a project tree and produces per-file records with a
// resolved encoding, skipping ignored paths and oversized files.
package scan

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pders01/checkpoint/internal/classify"
	"github.com/pders01/checkpoint/internal/digest"
	"github.com/pders01/checkpoint/internal/logging"
	"github.com/pders01/checkpoint/internal/models"
	"github.com/pterm/pterm"
	"github.com/spf13/afero"
)

// DefaultMaxFileSize is the per-file ceiling; larger files are skipped
const DefaultMaxFileSize int64 = 1 << 20

// DefaultExcludes are never scanned, at any depth
var DefaultExcludes = []string{
	".git", ".svn", ".hg",
	"node_modules", "bower_components", "vendor/bundle",
	".checkpoint", ".history",
	".DS_Store", "Thumbs.db", "desktop.ini",
	"dist", "build", "out", "target", ".next", ".nuxt",
	"__pycache__", ".cache", ".gradle",
}

// FileRecord describes one retained file
type FileRecord struct {
	Path       string // project-relative, slash-separated
	AbsPath    string
	Content    string // text, or base64 for binary files
	Hash       string // digest of the raw bytes
	Size       int64
	MimeType   string
	Encoding   models.Encoding
	IsTextFile bool
	ModTime    time.Time
}

// Bytes decodes Content back to the raw file bytes
func (r *FileRecord) Bytes() ([]byte, error) {
	if r.IsTextFile {
		return []byte(r.Content), nil
	}
	return base64.StdEncoding.DecodeString(r.Content)
}

// Options configures a Scanner
type Options struct {
	Classifier  *classify.Classifier
	MaxFileSize int64
	// MatcherKind selects the ignore matcher built from the ignore files
	// ("partial" or "glob"). Ignored when Matcher is set.
	MatcherKind   string
	Matcher       PathMatcher
	ExtraPatterns []string
	// ExtraExcludes are additional names excluded at any depth, e.g. the
	// storage directory when it lives inside the project.
	ExtraExcludes []string
	Logger        *pterm.Logger
}

// Scanner walks project trees
type Scanner struct {
	fs          afero.Fs
	classifier  *classify.Classifier
	maxFileSize int64
	matcherKind string
	matcher     PathMatcher
	extra       []string
	builtin     PathMatcher
	log         *pterm.Logger
}

// New creates a scanner over fsys
func New(fsys afero.Fs, opts Options) *Scanner {
	if opts.Classifier == nil {
		opts.Classifier = classify.Default()
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}

	excludes := append(append([]string{}, DefaultExcludes...), opts.ExtraExcludes...)

	return &Scanner{
		fs:          fsys,
		classifier:  opts.Classifier,
		maxFileSize: opts.MaxFileSize,
		matcherKind: opts.MatcherKind,
		matcher:     opts.Matcher,
		extra:       opts.ExtraPatterns,
		builtin:     NewPartialMatcher(excludes),
		log:         logging.OrDiscard(opts.Logger),
	}
}

// Scan walks root and returns every retained file. Unreadable files are
// logged and skipped; the order of the result is unspecified.
func (s *Scanner) Scan(root string) ([]FileRecord, error) {
	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root is not a directory: %s", root)
	}

	matcher, err := s.resolveMatcher(root)
	if err != nil {
		return nil, err
	}

	var records []FileRecord
	err = afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			s.log.Warn("skipping unreadable path", s.log.Args("path", path, "error", err))
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if s.builtin.Match(rel, true) || matcher.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}
		if s.builtin.Match(rel, false) || matcher.Match(rel, false) {
			return nil
		}
		if info.Size() > s.maxFileSize {
			s.log.Debug("skipping oversized file", s.log.Args("path", rel, "size", info.Size()))
			return nil
		}

		rec, err := s.readRecord(path, rel, info)
		if err != nil {
			s.log.Warn("skipping unreadable file", s.log.Args("path", rel, "error", err))
			return nil
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	return records, nil
}

func (s *Scanner) resolveMatcher(root string) (PathMatcher, error) {
	if s.matcher != nil {
		return s.matcher, nil
	}

	patterns, err := LoadIgnorePatterns(s.fs, root)
	if err != nil {
		return nil, err
	}
	patterns = append(patterns, s.extra...)
	return NewMatcher(s.matcherKind, patterns)
}

func (s *Scanner) readRecord(path, rel string, info os.FileInfo) (FileRecord, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return FileRecord{}, err
	}

	sample := data
	if len(sample) > classify.SampleSize {
		sample = sample[:classify.SampleSize]
	}
	class := s.classifier.Classify(rel, sample)

	rec := FileRecord{
		Path:       rel,
		AbsPath:    path,
		Hash:       digest.Sum(data),
		Size:       int64(len(data)),
		MimeType:   class.MimeType,
		Encoding:   class.Encoding,
		IsTextFile: class.IsTextFile,
		ModTime:    info.ModTime(),
	}
	if class.IsTextFile {
		rec.Content = string(data)
	} else {
		rec.Content = base64.StdEncoding.EncodeToString(data)
	}
	return rec, nil
}
