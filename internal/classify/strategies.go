package classify

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// SampleStrategy inspects the leading bytes of a file
type SampleStrategy struct{}

// Detect treats NUL bytes, invalid UTF-8 and a high share of control
// characters as binary. An empty sample is undecided.
func (SampleStrategy) Detect(_ string, sample []byte) (bool, bool) {
	if len(sample) == 0 {
		return false, false
	}

	control := 0
	for _, b := range sample {
		if b == 0 {
			return false, true
		}
		if b < 0x20 && b != '\n' && b != '\r' && b != '\t' && b != '\f' && b != '\b' {
			control++
		}
	}

	if !utf8.Valid(trimPartialRune(sample)) {
		return false, true
	}

	if control*100/len(sample) > 30 {
		return false, true
	}
	return true, true
}

// trimPartialRune drops a multi-byte rune cut off by the sample boundary
func trimPartialRune(b []byte) []byte {
	for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			break
		}
	}
	return b
}

// AllowListStrategy classifies by well-known filenames and extensions
type AllowListStrategy struct {
	textNames  map[string]bool
	textExts   map[string]bool
	binaryExts map[string]bool
}

// NewAllowList returns the built-in allow-list
func NewAllowList() *AllowListStrategy {
	return &AllowListStrategy{
		textNames:  toSet(textFilenames),
		textExts:   toSet(textExtensions),
		binaryExts: toSet(binaryExtensions),
	}
}

// Detect looks the base name up first, then the extension
func (a *AllowListStrategy) Detect(path string, _ []byte) (bool, bool) {
	base := strings.ToLower(filepath.Base(path))
	if a.textNames[base] {
		return true, true
	}

	ext := strings.ToLower(filepath.Ext(base))
	if ext == "" {
		return false, false
	}
	if a.textExts[ext] {
		return true, true
	}
	if a.binaryExts[ext] {
		return false, true
	}
	return false, false
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, s := range items {
		m[s] = true
	}
	return m
}

var textFilenames = []string{
	"makefile", "dockerfile", "license", "licence", "readme", "changelog",
	"authors", "contributing", "procfile", "gemfile", "rakefile", "vagrantfile",
	"jenkinsfile", "codeowners",
	".gitignore", ".gitattributes", ".gitmodules", ".dockerignore", ".npmignore",
	".editorconfig", ".env", ".env.local", ".env.example", ".npmrc", ".nvmrc",
	".prettierrc", ".eslintrc", ".babelrc", ".bashrc", ".zshrc", ".profile",
	".checkpointignore",
}

var textExtensions = []string{
	".txt", ".md", ".markdown", ".rst", ".adoc", ".csv", ".tsv", ".log",
	".go", ".mod", ".sum", ".py", ".rb", ".js", ".mjs", ".cjs", ".jsx", ".ts", ".tsx",
	".java", ".kt", ".kts", ".scala", ".c", ".h", ".cc", ".cpp", ".hpp", ".cs",
	".rs", ".swift", ".m", ".php", ".pl", ".lua", ".r", ".dart", ".ex", ".exs",
	".sh", ".bash", ".zsh", ".fish", ".ps1", ".bat", ".cmd",
	".html", ".htm", ".css", ".scss", ".sass", ".less", ".vue", ".svelte", ".svg",
	".json", ".jsonc", ".yaml", ".yml", ".toml", ".ini", ".cfg", ".conf", ".xml",
	".properties", ".env", ".sql", ".graphql", ".proto", ".tf", ".hcl", ".gradle",
	".lock", ".tmpl", ".tpl",
}

var binaryExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".ico", ".webp", ".tiff", ".psd",
	".pdf", ".zip", ".gz", ".tgz", ".bz2", ".xz", ".7z", ".rar", ".tar", ".jar",
	".exe", ".dll", ".so", ".dylib", ".a", ".o", ".obj", ".class", ".wasm", ".bin",
	".mp3", ".wav", ".flac", ".ogg", ".aac", ".mp4", ".mkv", ".mov", ".avi", ".webm",
	".woff", ".woff2", ".ttf", ".otf", ".eot", ".sqlite", ".db", ".pyc",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
}
