package types

import (
	"path/filepath"
	"strings"
)

// Common limits
const (
	DefaultMaxFileSize = 4 * 1024 * 1024 // 4MB per file; larger files are listed but not analyzed

	BinaryPreCheckBytes = 512 // bytes sniffed for binary detection
)

type FileID uint32
type TypeID uint32
type MemberID uint32

// Language identifies the source analyzer that produced a file's declarations.
type Language string

const (
	LangUnknown    Language = ""
	LangCSharp     Language = "csharp"
	LangGo         Language = "go"
	LangJava       Language = "java"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangPHP        Language = "php"
)

var extensionLanguages = map[string]Language{
	".cs":   LangCSharp,
	".go":   LangGo,
	".java": LangJava,
	".js":   LangJavaScript,
	".jsx":  LangJavaScript,
	".mjs":  LangJavaScript,
	".cjs":  LangJavaScript,
	".ts":   LangTypeScript,
	".tsx":  LangTypeScript,
	".py":   LangPython,
	".pyi":  LangPython,
	".rs":   LangRust,
	".php":  LangPHP,
}

// LanguageForPath detects the language of a file by its extension.
func LanguageForPath(path string) Language {
	return extensionLanguages[strings.ToLower(filepath.Ext(path))]
}

// TypeKind is the kind of a type declaration.
type TypeKind string

const (
	KindClass     TypeKind = "class"
	KindInterface TypeKind = "interface"
	KindStruct    TypeKind = "struct"
	KindEnum      TypeKind = "enum"
)

// MemberKind is the kind of a member declaration.
type MemberKind string

const (
	KindMethod      MemberKind = "method"
	KindProperty    MemberKind = "property"
	KindField       MemberKind = "field"
	KindConstructor MemberKind = "constructor"
)

// Visibility is the declared accessibility of a type or member.
// Empty means the language default.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityProtected Visibility = "protected"
	VisibilityInternal  Visibility = "internal"
)

// Parameter is one formal parameter as written in source.
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Signature describes a member's callable shape. ParameterList keeps the
// parameter text as written, parentheses included, with whitespace squashed.
type Signature struct {
	Parameters    []Parameter `json:"parameters,omitempty"`
	ParameterList string      `json:"parameterList,omitempty"`
	ReturnType    string      `json:"returnType,omitempty"`
	Receiver      string      `json:"receiver,omitempty"`
	Accessors     []string    `json:"accessors,omitempty"`
	TypeParams    string      `json:"typeParams,omitempty"`
}

// SourceFile is one file of a workspace as seen by one index generation.
type SourceFile struct {
	ID       FileID
	Path     string // absolute, symlinks resolved
	RelPath  string // relative to Root, slash separated
	Root     string
	Language Language
	Text     string
	Hash     uint64
	Size     int64
	Analyzed bool // false for binary, oversized, or files without an analyzer
	Types    []TypeID
}

// TypeDeclaration is a class, interface, struct or enum.
type TypeDeclaration struct {
	ID            TypeID
	Name          string
	QualifiedName string
	Kind          TypeKind
	Language      Language
	FileID        FileID
	StartLine     int
	EndLine       int
	Modifiers     Modifiers
	Visibility    Visibility
	Doc           string
	Bases         []string
	Members       []MemberID
	Module        bool // synthetic holder of a file's or package's free functions
}

// BodyStyle is how a member's body is delimited.
type BodyStyle uint8

const (
	BodyNone       BodyStyle = iota // abstract, interface or field
	BodyBraced                      // { ... }, BodyStart is the opening brace
	BodyIndented                    // Python block, BodyStart is the first statement
	BodyExpression                  // => expr
)

// MemberDeclaration is a method, property, field or constructor of a type.
type MemberDeclaration struct {
	ID         MemberID
	Name       string
	Kind       MemberKind
	OwnerID    TypeID
	FileID     FileID
	Signature  Signature
	StartLine  int
	EndLine    int
	BodyStart  int // first line of the body block, 0 when the member has no body
	BodyStyle  BodyStyle
	Body       string
	Modifiers  Modifiers
	Visibility Visibility
	Doc        string
}

// CallSite is a call written in a member's body. Callee is the simple name as
// written; no resolution is attempted.
type CallSite struct {
	CallerID MemberID
	Callee   string
	FileID   FileID
	Line     int
	Column   int
}

// SimpleName strips namespace qualification and generic arguments:
// "System.Collections.Generic.IList<T>" -> "IList".
func SimpleName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.IndexAny(name, "<["); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexAny(name, ".:"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSpace(name)
}
