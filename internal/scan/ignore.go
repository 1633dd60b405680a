package scan

import (
	"bufio"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"
)

// PathMatcher decides whether a project-relative, slash-separated path is
// excluded from scanning. isDir is true when path names a directory.
type PathMatcher interface {
	Match(relPath string, isDir bool) bool
}

// IgnoreFiles are read from the project root, in order
var IgnoreFiles = []string{".gitignore", ".checkpointignore"}

// Matcher kinds accepted by NewMatcher
const (
	MatcherPartial = "partial"
	MatcherGlob    = "glob"
)

// NewMatcher builds the named matcher over patterns
func NewMatcher(kind string, patterns []string) (PathMatcher, error) {
	switch kind {
	case "", MatcherPartial:
		return NewPartialMatcher(patterns), nil
	case MatcherGlob:
		m, err := NewGlobMatcher(patterns)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown matcher: %s (must be: partial, glob)", kind)
	}
}

// LoadIgnorePatterns reads every ignore file present at root.
// Missing files are not an error.
func LoadIgnorePatterns(fsys afero.Fs, root string) ([]string, error) {
	var patterns []string
	for _, name := range IgnoreFiles {
		f, err := fsys.Open(filepath.Join(root, name))
		if err != nil {
			continue
		}
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, line)
		}
		err = sc.Err()
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
	}
	return patterns, nil
}

// pattern is a compiled single-path test
type pattern interface {
	Match(s string) bool
}

type rule struct {
	raw      string
	dirOnly  bool
	hasSlash bool
	pat      pattern
}

// ruleSet applies rules to a path and all of its ancestors, so a file
// beneath an ignored directory is ignored too
type ruleSet []rule

func (rs ruleSet) Match(relPath string, isDir bool) bool {
	relPath = strings.Trim(toSlash(relPath), "/")
	if relPath == "" || relPath == "." {
		return false
	}

	parts := strings.Split(relPath, "/")
	for i := range parts {
		prefix := strings.Join(parts[:i+1], "/")
		prefixIsDir := i < len(parts)-1 || isDir
		for _, r := range rs {
			if r.dirOnly && !prefixIsDir {
				continue
			}
			target := prefix
			if !r.hasSlash {
				target = parts[i]
			}
			if r.pat.Match(target) {
				return true
			}
		}
	}
	return false
}

// splitPattern normalizes an ignore line. Negations are not supported and
// are dropped.
func splitPattern(p string) (body string, dirOnly, hasSlash, ok bool) {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, "#") || strings.HasPrefix(p, "!") {
		return "", false, false, false
	}
	if strings.HasSuffix(p, "/") {
		dirOnly = true
		p = strings.TrimRight(p, "/")
	}
	if strings.HasPrefix(p, "/") {
		hasSlash = true
		p = strings.TrimLeft(p, "/")
	}
	if strings.Contains(p, "/") {
		hasSlash = true
	}
	if p == "" {
		return "", false, false, false
	}
	return p, dirOnly, hasSlash, true
}

// PartialMatcher supports exact paths, trailing-slash directories and
// simple wildcards translated to regular expressions
type PartialMatcher struct {
	rules ruleSet
}

// NewPartialMatcher compiles patterns. Invalid lines are skipped.
func NewPartialMatcher(patterns []string) *PartialMatcher {
	m := &PartialMatcher{}
	for _, p := range patterns {
		body, dirOnly, hasSlash, ok := splitPattern(p)
		if !ok {
			continue
		}
		var pat pattern
		if strings.ContainsAny(body, "*?") {
			re, err := regexp.Compile(wildcardToRegexp(body))
			if err != nil {
				continue
			}
			pat = regexpPattern{re}
		} else {
			pat = literalPattern(body)
		}
		m.rules = append(m.rules, rule{raw: p, dirOnly: dirOnly, hasSlash: hasSlash, pat: pat})
	}
	return m
}

// Match implements PathMatcher
func (m *PartialMatcher) Match(relPath string, isDir bool) bool {
	return m.rules.Match(relPath, isDir)
}

// wildcardToRegexp translates *, ** and ? into an anchored expression
func wildcardToRegexp(p string) string {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c == '*' && strings.HasPrefix(p[i:], "**/"):
			b.WriteString("(?:.*/)?")
			i += 2
		case c == '*' && strings.HasPrefix(p[i:], "**"):
			b.WriteString(".*")
			i++
		case c == '*':
			b.WriteString("[^/]*")
		case c == '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return b.String()
}

type literalPattern string

func (l literalPattern) Match(s string) bool { return string(l) == s }

type regexpPattern struct{ re *regexp.Regexp }

func (r regexpPattern) Match(s string) bool { return r.re.MatchString(s) }

// GlobMatcher compiles patterns with gobwas/glob using '/' as separator,
// which adds character classes and alternation on top of PartialMatcher
type GlobMatcher struct {
	rules ruleSet
}

// NewGlobMatcher compiles patterns, failing on the first invalid one
func NewGlobMatcher(patterns []string) (*GlobMatcher, error) {
	m := &GlobMatcher{}
	for _, p := range patterns {
		body, dirOnly, hasSlash, ok := splitPattern(p)
		if !ok {
			continue
		}
		g, err := glob.Compile(body, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern '%s': %w", p, err)
		}
		m.rules = append(m.rules, rule{raw: p, dirOnly: dirOnly, hasSlash: hasSlash, pat: g})
	}
	return m, nil
}

// Match implements PathMatcher
func (m *GlobMatcher) Match(relPath string, isDir bool) bool {
	return m.rules.Match(relPath, isDir)
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
