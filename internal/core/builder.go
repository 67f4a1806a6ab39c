package core

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"

	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
	"github.com/standardbeagle/wsmcp/internal/parser"
	"github.com/standardbeagle/wsmcp/internal/types"
)

// Builder assembles a WorkspaceIndex. It is used by a single goroutine and
// discarded after Build.
type Builder struct {
	ix       *WorkspaceIndex
	byDir    map[string]types.TypeID // dir|name -> type, for Go receivers and Rust impls
	detached []detachedMember
	impls    []detachedImpl
}

type detachedMember struct {
	file   types.FileID
	member *parser.Member
}

type detachedImpl struct {
	file types.FileID
	impl parser.Impl
}

func NewBuilder(workspace string, generation uint64, roots []string) *Builder {
	return &Builder{
		ix: &WorkspaceIndex{
			Workspace:  workspace,
			Generation: generation,
			Roots:      roots,
		},
		byDir: make(map[string]types.TypeID),
	}
}

// AddFile appends f and its declarations. res may be nil for files that were
// not analyzed.
func (b *Builder) AddFile(f types.SourceFile, res *parser.Result) types.FileID {
	id := types.FileID(len(b.ix.Files))
	f.ID = id
	file := &f
	b.ix.Files = append(b.ix.Files, file)
	if res == nil {
		return id
	}

	dir := filepath.Dir(file.Path)
	for _, t := range res.Types {
		tid := b.addType(file, t)
		if attachesByDir(file.Language) && !t.Module {
			b.byDir[dir+"|"+t.Name] = tid
		}
	}
	for _, m := range res.Detached {
		b.detached = append(b.detached, detachedMember{file: id, member: m})
	}
	for _, im := range res.Impls {
		b.impls = append(b.impls, detachedImpl{file: id, impl: im})
	}
	return id
}

// attachesByDir reports whether members may be declared apart from their
// type anywhere in the same directory.
func attachesByDir(lang types.Language) bool {
	return lang == types.LangGo || lang == types.LangRust
}

// Warn records a per-file analysis warning.
func (b *Builder) Warn(w *wserrors.AnalysisWarning) {
	b.ix.Warnings = append(b.ix.Warnings, w)
}

func (b *Builder) addType(file *types.SourceFile, t *parser.Type) types.TypeID {
	tid := types.TypeID(len(b.ix.Types))
	decl := &types.TypeDeclaration{
		ID:            tid,
		Name:          t.Name,
		QualifiedName: t.QualifiedName(),
		Kind:          t.Kind,
		Language:      file.Language,
		FileID:        file.ID,
		StartLine:     t.StartLine,
		EndLine:       t.EndLine,
		Modifiers:     t.Modifiers,
		Visibility:    t.Visibility,
		Doc:           t.Doc,
		Bases:         t.Bases,
		Module:        t.Module,
	}
	b.ix.Types = append(b.ix.Types, decl)
	file.Types = append(file.Types, tid)
	for _, m := range t.Members {
		b.addMember(decl, file.ID, m)
	}
	return tid
}

func (b *Builder) addMember(owner *types.TypeDeclaration, file types.FileID, m *parser.Member) {
	mid := types.MemberID(len(b.ix.Members))
	b.ix.Members = append(b.ix.Members, &types.MemberDeclaration{
		ID:         mid,
		Name:       m.Name,
		Kind:       m.Kind,
		OwnerID:    owner.ID,
		FileID:     file,
		Signature:  m.Signature,
		StartLine:  m.StartLine,
		EndLine:    m.EndLine,
		BodyStart:  m.BodyStart,
		BodyStyle:  m.BodyStyle,
		Body:       m.Body,
		Modifiers:  m.Modifiers,
		Visibility: m.Visibility,
		Doc:        m.Doc,
	})
	owner.Members = append(owner.Members, mid)
	for _, c := range m.Calls {
		b.ix.Calls = append(b.ix.Calls, types.CallSite{
			CallerID: mid,
			Callee:   c.Name,
			FileID:   file,
			Line:     c.Line,
			Column:   c.Column,
		})
	}
}

// Build resolves members declared apart from their type, derives the symbol
// index and returns the finished snapshot.
func (b *Builder) Build() *WorkspaceIndex {
	for _, d := range b.detached {
		file := b.ix.Files[d.file]
		key := filepath.Dir(file.Path) + "|" + d.member.Owner
		tid, ok := b.byDir[key]
		if !ok {
			// receiver type not seen in this package; keep the method under a
			// placeholder so it stays queryable
			tid = b.addType(file, &parser.Type{
				Name:       d.member.Owner,
				Kind:       types.KindStruct,
				StartLine:  d.member.StartLine,
				EndLine:    d.member.EndLine,
				Visibility: d.member.Visibility,
			})
			b.byDir[key] = tid
		}
		owner := b.ix.Types[tid]
		if owner.FileID != d.file {
			file.Types = appendTypeID(file.Types, tid)
		}
		b.addMember(owner, d.file, d.member)
	}
	b.detached = nil

	for _, d := range b.impls {
		file := b.ix.Files[d.file]
		tid, ok := b.byDir[filepath.Dir(file.Path)+"|"+d.impl.Owner]
		if !ok {
			continue
		}
		owner := b.ix.Types[tid]
		owner.Bases = appendBase(owner.Bases, d.impl.Base)
	}
	b.impls = nil

	b.ix.Fingerprint = fingerprint(b.ix.Files)
	b.ix.Symbols = buildSymbolIndex(b.ix)
	b.ix.BuiltAt = time.Now()
	return b.ix
}

func appendBase(bases []string, base string) []string {
	for _, existing := range bases {
		if existing == base {
			return bases
		}
	}
	return append(bases, base)
}

func appendTypeID(ids []types.TypeID, id types.TypeID) []types.TypeID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// fingerprint hashes every path and content hash in path order.
func fingerprint(files []*types.SourceFile) uint64 {
	paths := make([]*types.SourceFile, len(files))
	copy(paths, files)
	sort.Slice(paths, func(i, j int) bool { return paths[i].Path < paths[j].Path })

	d := xxhash.New()
	for _, f := range paths {
		d.WriteString(f.Path)
		d.WriteString(formatHash(f.Hash))
	}
	return d.Sum64()
}

func formatHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}
