package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
	"github.com/standardbeagle/wsmcp/internal/parser"
	"github.com/standardbeagle/wsmcp/internal/types"
)

func sampleIndex(t *testing.T) *WorkspaceIndex {
	t.Helper()
	b := NewBuilder("demo", 7, []string{"/ws"})

	b.AddFile(types.SourceFile{Path: "/ws/a.cs", RelPath: "a.cs", Language: types.LangCSharp, Analyzed: true, Hash: 1}, &parser.Result{
		Types: []*parser.Type{{
			Name: "Foo", Namespace: "App", Kind: types.KindClass, StartLine: 1, EndLine: 10,
			Bases: []string{"IFoo", "Base<int>"},
			Members: []*parser.Member{{
				Name: "Bar", Kind: types.KindMethod, StartLine: 2, EndLine: 5, BodyStart: 3,
				Calls: []parser.Call{{Name: "Baz", Line: 4, Column: 9}},
			}},
		}},
	})
	b.AddFile(types.SourceFile{Path: "/ws/b.cs", RelPath: "b.cs", Language: types.LangCSharp, Analyzed: true, Hash: 2}, &parser.Result{
		Types: []*parser.Type{{
			Name: "Util", Namespace: "App", Kind: types.KindClass, StartLine: 1, EndLine: 4,
			Members: []*parser.Member{{Name: "Baz", Kind: types.KindMethod, StartLine: 2, EndLine: 3, Modifiers: types.ModStatic}},
		}},
	})
	b.AddFile(types.SourceFile{Path: "/ws/logo.png", RelPath: "logo.png"}, nil)
	b.Warn(wserrors.NewAnalysisWarning("/ws/broken.cs", "parse failed", nil))
	return b.Build()
}

func TestBuilder_AssemblesIndex(t *testing.T) {
	ix := sampleIndex(t)

	assert.Equal(t, uint64(7), ix.Generation)
	require.Len(t, ix.Files, 3)
	require.Len(t, ix.Types, 2)
	require.Len(t, ix.Members, 2)
	require.Len(t, ix.Calls, 1)

	foo := ix.Types[0]
	assert.Equal(t, "App.Foo", foo.QualifiedName)
	assert.Equal(t, []types.MemberID{0}, foo.Members)
	assert.Equal(t, []types.TypeID{0}, ix.Files[0].Types)

	call := ix.Calls[0]
	assert.Equal(t, types.MemberID(0), call.CallerID)
	assert.Equal(t, types.FileID(0), call.FileID)

	f, ok := ix.FileByPath("/ws/b.cs")
	require.True(t, ok)
	assert.Equal(t, types.FileID(1), f.ID)

	stats := ix.Stats()
	assert.Equal(t, 3, stats.Files)
	assert.Equal(t, 2, stats.Analyzed)
	assert.Len(t, stats.Warnings, 1)
	assert.Len(t, stats.Fingerprint, 16)
}

func TestSymbolIndex_Lookups(t *testing.T) {
	ix := sampleIndex(t)
	s := ix.Symbols

	assert.Equal(t, []DeclRef{{Kind: DeclType, ID: 0}}, s.ByQualifiedName("App.Foo"))
	assert.Equal(t, []DeclRef{{Kind: DeclMember, ID: 1}}, s.ByQualifiedName("App.Util.Baz"))
	assert.Equal(t, []DeclRef{{Kind: DeclMember, ID: 0}}, s.BySimpleName("Bar"))

	calls := s.CallsTo("Baz")
	require.Len(t, calls, 1)
	assert.Equal(t, 4, calls[0].Line)
	assert.Empty(t, s.CallsTo("Bar"))
	assert.Equal(t, calls, s.CallsFrom(0))

	assert.Equal(t, []types.TypeID{0}, s.ImplementorsOf("IFoo"))
	assert.Equal(t, []types.TypeID{0}, s.ImplementorsOf("Base"))
	assert.Contains(t, s.Names(), "Util")
}

func TestBuilder_AttachesDetachedGoMethods(t *testing.T) {
	b := NewBuilder("go", 1, []string{"/ws"})
	b.AddFile(types.SourceFile{Path: "/ws/pkg/methods.go", Language: types.LangGo, Analyzed: true}, &parser.Result{
		Package:  "pkg",
		Detached: []*parser.Member{{Name: "Close", Kind: types.KindMethod, Owner: "Conn", StartLine: 3, EndLine: 5}},
	})
	b.AddFile(types.SourceFile{Path: "/ws/pkg/conn.go", Language: types.LangGo, Analyzed: true}, &parser.Result{
		Package: "pkg",
		Types:   []*parser.Type{{Name: "Conn", Namespace: "pkg", Kind: types.KindStruct, StartLine: 1, EndLine: 4}},
	})
	b.AddFile(types.SourceFile{Path: "/ws/other/orphan.go", Language: types.LangGo, Analyzed: true}, &parser.Result{
		Package:  "other",
		Detached: []*parser.Member{{Name: "Run", Kind: types.KindMethod, Owner: "Job", StartLine: 1, EndLine: 2}},
	})
	ix := b.Build()

	conn := ix.Types[0]
	require.Equal(t, "Conn", conn.Name)
	require.Len(t, conn.Members, 1)
	closeM := ix.Member(conn.Members[0])
	assert.Equal(t, "Close", closeM.Name)
	assert.Equal(t, types.FileID(0), closeM.FileID)
	assert.Contains(t, ix.Files[0].Types, conn.ID)
	assert.Equal(t, closeM, ix.MemberAt(0, 4))

	job := ix.Types[1]
	assert.Equal(t, "Job", job.Name)
	assert.Len(t, job.Members, 1)
}

func TestBuilder_ResolvesRustTraitImplsAcrossFiles(t *testing.T) {
	b := NewBuilder("demo", 1, []string{"/ws"})
	b.AddFile(types.SourceFile{Path: "/ws/src/impls.rs", RelPath: "src/impls.rs", Language: types.LangRust, Analyzed: true}, &parser.Result{
		Detached: []*parser.Member{{Name: "price", Kind: types.KindMethod, StartLine: 2, EndLine: 4, Owner: "Line"}},
		Impls:    []parser.Impl{{Owner: "Line", Base: "Priced"}, {Owner: "Missing", Base: "Priced"}},
	})
	b.AddFile(types.SourceFile{Path: "/ws/src/line.rs", RelPath: "src/line.rs", Language: types.LangRust, Analyzed: true}, &parser.Result{
		Types: []*parser.Type{{Name: "Line", Kind: types.KindStruct, StartLine: 1, EndLine: 3}},
	})
	ix := b.Build()

	require.Len(t, ix.Types, 1)
	line := ix.Types[0]
	assert.Equal(t, []string{"Priced"}, line.Bases)
	require.Len(t, line.Members, 1)
	assert.Equal(t, "price", ix.Member(line.Members[0]).Name)
	assert.Equal(t, []types.TypeID{line.ID}, ix.Symbols.ImplementorsOf("Priced"))
}
