package pipeline

import (
	"path"
	"strings"
)

// contentKind classifies a file for chunker selection.
type contentKind string

const (
	contentCode     contentKind = "code"
	contentMarkdown contentKind = "markdown"
	contentOther    contentKind = "other"
)

// languageByExt maps file extensions (and a few exact basenames) to a
// language tag, same convention a store's sparse documents carry in their
// language field.
var languageByExt = map[string]string{
	".go":         "go",
	".js":         "javascript",
	".jsx":        "javascript",
	".mjs":        "javascript",
	".ts":         "typescript",
	".tsx":        "typescript",
	".py":         "python",
	".pyw":        "python",
	".pyi":        "python",
	".html":       "html",
	".htm":        "html",
	".css":        "css",
	".scss":       "scss",
	".sass":       "sass",
	".less":       "less",
	".json":       "json",
	".yaml":       "yaml",
	".yml":        "yaml",
	".toml":       "toml",
	".xml":        "xml",
	".ini":        "ini",
	".conf":       "config",
	".properties": "properties",
	".md":         "markdown",
	".mdx":        "markdown",
	".markdown":   "markdown",
	".rst":        "rst",
	".txt":        "text",
	".sh":         "shell",
	".bash":       "shell",
	".zsh":        "shell",
	".fish":       "fish",
	".rb":         "ruby",
	".rake":       "ruby",
	".erb":        "erb",
	".rs":         "rust",
	".java":       "java",
	".kt":         "kotlin",
	".kts":        "kotlin",
	".c":          "c",
	".h":          "c",
	".cpp":        "cpp",
	".hpp":        "cpp",
	".cc":         "cpp",
	".cxx":        "cpp",
	".cs":         "csharp",
	".swift":      "swift",
	".php":        "php",
	".scala":      "scala",
	".ex":         "elixir",
	".exs":        "elixir",
	".erl":        "erlang",
	".hs":         "haskell",
	".lua":        "lua",
	".r":          "r",
	".sql":        "sql",
	".vue":        "vue",
	".svelte":     "svelte",
	".graphql":    "graphql",
	".gql":        "graphql",
	".proto":      "protobuf",
}

var languageByBasename = map[string]string{
	"Dockerfile":  "dockerfile",
	"Makefile":    "makefile",
	"makefile":    "makefile",
	"GNUmakefile": "makefile",
}

// contentKindByLanguage maps a language tag to the chunker family that
// should process it. Anything absent falls back to contentOther and is
// skipped by IndexFiles, matching spec.md's scope of code + markdown only.
var contentKindByLanguage = map[string]contentKind{
	"markdown": contentMarkdown,
	"rst":      contentMarkdown,
}

func init() {
	for _, lang := range languageByExt {
		if _, ok := contentKindByLanguage[lang]; ok {
			continue
		}
		switch lang {
		case "text", "json", "yaml", "toml", "xml", "ini", "config", "properties":
			contentKindByLanguage[lang] = contentOther
		default:
			contentKindByLanguage[lang] = contentCode
		}
	}
}

// detectLanguage derives a language tag from a file path.
func detectLanguage(filePath string) string {
	base := path.Base(filePath)
	if lang, ok := languageByBasename[base]; ok {
		return lang
	}
	ext := strings.ToLower(path.Ext(filePath))
	if lang, ok := languageByExt[ext]; ok {
		return lang
	}
	return ""
}

// detectContentKind derives the chunker family for a language tag.
func detectContentKind(language string) contentKind {
	if kind, ok := contentKindByLanguage[language]; ok {
		return kind
	}
	return contentOther
}

// isBinaryContent reports whether content looks binary: a NUL byte within
// the first 8192 bytes, the same heuristic git and most indexers use.
func isBinaryContent(content []byte) bool {
	n := len(content)
	if n > 8192 {
		n = 8192
	}
	for i := 0; i < n; i++ {
		if content[i] == 0 {
			return true
		}
	}
	return false
}

// normalizePath rewrites backslashes to forward slashes so store keys are
// stable across platforms.
func normalizePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
