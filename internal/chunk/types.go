package chunk

import (
	"context"
	"time"
)

// Chunk size defaults (based on 2025 RAG research).
const (
	DefaultMaxChunkTokens = 512 // Optimal for 85-90% recall
	DefaultOverlapTokens  = 64  // ~12.5% overlap
	MinChunkTokens        = 100 // Minimum viable chunk
	TokensPerChar         = 4   // Rough approximation: 4 chars = 1 token
)

// ContentType represents the type of content in a chunk.
type ContentType string

const (
	ContentTypeCode     ContentType = "code"
	ContentTypeMarkdown ContentType = "markdown"
	ContentTypeText     ContentType = "text"
)

// Chunk is a retrievable unit of content: one row of the data model's
// chunk record, minus the embedding vector (added later by the pipeline).
type Chunk struct {
	ID          string // doc_id = stable_hash(path + ":" + chunk_index + ":" + content_hash)
	ChunkIndex  int    // 0-based position within the file
	FilePath    string // Relative to project root, forward-slash normalized
	Content     string // Full content with context (embedded)
	RawContent  string // Just the symbol, no context (code only)
	Context     string // Imports, package decl (code only)
	ContentType ContentType
	Language    string
	StartLine   int // 1-indexed
	EndLine     int // Inclusive
	Symbols     []*Symbol
	Metadata    map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SymbolNames returns the chunk's symbol names in declaration order with
// duplicates removed, matching the ordered-set contract of the sparse
// segment's symbols field and the wire protocol's search result.
func (c *Chunk) SymbolNames() []string {
	seen := make(map[string]bool, len(c.Symbols))
	names := make([]string, 0, len(c.Symbols))
	for _, s := range c.Symbols {
		if s == nil || seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		names = append(names, s.Name)
	}
	return names
}

// FileInput is input for the Chunker interface.
type FileInput struct {
	Path     string // Relative path
	Content  []byte // File content
	Language string // go, typescript, python, etc.
}

// RejectReason classifies why a file produced no chunks without being an
// error - the caller (C9's pipeline) needs to distinguish "nothing to
// index" from "refused".
type RejectReason string

const (
	RejectNone      RejectReason = ""
	RejectBinary    RejectReason = "binary"
	RejectTooLarge  RejectReason = "too_large"
	RejectParseFallback RejectReason = "parse_error_fallback_used"
)

// Outcome wraps a chunking attempt with the reason nothing was produced,
// when applicable. ParseFallback chunks are still returned in Chunks; the
// reason is informational only in that case.
type Outcome struct {
	Chunks []*Chunk
	Reason RejectReason
}

// Chunker is the interface for splitting files into chunks.
type Chunker interface {
	Chunk(ctx context.Context, file *FileInput) (*Outcome, error)
	SupportedExtensions() []string
}

// SymbolType represents the kind of code symbol.
type SymbolType string

const (
	SymbolTypeFunction  SymbolType = "function"
	SymbolTypeClass     SymbolType = "class"
	SymbolTypeInterface SymbolType = "interface"
	SymbolTypeType      SymbolType = "type"
	SymbolTypeVariable  SymbolType = "variable"
	SymbolTypeConstant  SymbolType = "constant"
	SymbolTypeMethod    SymbolType = "method"
)

// Symbol represents a code symbol extracted from parsing.
type Symbol struct {
	Name       string
	Type       SymbolType
	StartLine  int
	EndLine    int
	Signature  string
	DocComment string
}

// Tree represents a parsed AST.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// Node represents a node in the AST.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	Children   []*Node
	HasError   bool
}

// Point represents a position in the source code.
type Point struct {
	Row    uint32 // 0-indexed line number
	Column uint32
}

// LanguageConfig holds configuration for a supported language.
type LanguageConfig struct {
	Name       string
	Extensions []string

	FunctionTypes  []string
	ClassTypes     []string
	InterfaceTypes []string
	MethodTypes    []string
	TypeDefTypes   []string
	ConstantTypes  []string
	VariableTypes  []string

	NameField string
}
