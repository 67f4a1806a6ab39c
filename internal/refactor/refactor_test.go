package refactor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
	"github.com/standardbeagle/wsmcp/internal/indexing"
	"github.com/standardbeagle/wsmcp/internal/types"
)

const calculatorSource = `namespace Demo
{
    public class Calculator
    {
        // Total keeps the running sum. Total is reset by Clear, unlike Totals.
        public int Total { get; set; }

        public int Add(int a, int b)
        {
            var sum = a + b;
            Total += sum;
            return sum;
        }

        public static Calculator Create() { return new Calculator(); }

        private void Clear()
        {
            Total = 0;
        }
    }
}
`

const otherSource = `class Other { void M() { var c = new Calculator(); c.Total = 1; } }
`

const circleSource = `package shapes

type Circle struct {
	R float64
}

func (c *Circle) Area() float64 {
	return 3.14 * c.R * c.R
}

func (c *Circle) Grow(f float64) {
	if f > 0 {
		c.R *= f
	}
}

func (c *Circle) scale(f float64) {
	c.R *= f
}

func NewCircle(r float64) *Circle {
	return &Circle{R: r}
}
`

type fixture struct {
	root    string
	backups string
	holder  *indexing.Holder
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, map[string]string{
		"Calc.cs":         calculatorSource,
		"Other.cs":        otherSource,
		"shapes/shape.go": circleSource,
		"README.md":       "Total is documented here.\n",
	})
}

func newFixtureWith(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}

	ws := &types.Workspace{Name: "demo", Roots: []types.Root{{Path: root}}}
	h := indexing.NewHolder(indexing.NewIndexer(nil, nil, indexing.Options{}), ws)
	_, err = h.Reindex(context.Background())
	require.NoError(t, err)

	backups := t.TempDir()
	return &fixture{root: root, backups: backups, holder: h, svc: NewService(h, backups)}
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestPreviewWrite_NewFile(t *testing.T) {
	f := newFixture(t)

	d, err := f.svc.PreviewWrite("src/New.cs", "class A {}\nclass B {}\n")
	require.NoError(t, err)
	assert.True(t, d.NewFile)
	assert.Equal(t, 2, d.Added)
	assert.Zero(t, d.Removed)
	assert.Equal(t, 1, d.Hunks)
	assert.Contains(t, d.Unified, "--- /dev/null\n+++ b/src/New.cs\n")
	assert.Contains(t, d.Unified, "@@ -0,0 +1,2 @@\n+class A {}\n+class B {}\n")
	assert.NoFileExists(t, filepath.Join(f.root, "src", "New.cs"))

	res, err := f.svc.WriteFile("src/New.cs", "class A {}\nclass B {}\n")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Empty(t, res.BackupPath)
	assert.Equal(t, "class A {}\nclass B {}\n", f.read(t, "src/New.cs"))
}

func TestPreviewWrite_ExistingFile(t *testing.T) {
	f := newFixture(t)
	changed := strings.Replace(calculatorSource, "var sum = a + b;", "var sum = a - b;", 1)

	d, err := f.svc.PreviewWrite("Calc.cs", changed)
	require.NoError(t, err)
	assert.False(t, d.NewFile)
	assert.Equal(t, 1, d.Added)
	assert.Equal(t, 1, d.Removed)
	assert.Contains(t, d.Unified, "--- a/Calc.cs\n+++ b/Calc.cs\n")
	assert.Contains(t, d.Unified, "-            var sum = a + b;\n+            var sum = a - b;\n")
	assert.Equal(t, calculatorSource, f.read(t, "Calc.cs"))

	same, err := f.svc.PreviewWrite(filepath.Join(f.root, "Calc.cs"), calculatorSource)
	require.NoError(t, err)
	assert.False(t, same.Changed)
	assert.Empty(t, same.Unified)
}

func TestWriteFile_RoundTripWithBackup(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.root, "Calc.cs")
	require.NoError(t, os.Chmod(path, 0600))

	res, err := f.svc.WriteFile("Calc.cs", "replaced\n")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "replaced\n", f.read(t, "Calc.cs"))

	require.NotEmpty(t, res.BackupPath)
	assert.True(t, strings.HasPrefix(res.BackupPath, filepath.Join(f.backups, "demo", "Calc.cs.")))
	assert.True(t, strings.HasSuffix(res.BackupPath, ".bak"))
	backup, err := os.ReadFile(res.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, calculatorSource, string(backup))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	leftovers, _ := filepath.Glob(filepath.Join(f.root, ".Calc.cs.wsmcp-*"))
	assert.Empty(t, leftovers)
}

func TestWriteFile_PathEscape(t *testing.T) {
	f := newFixture(t)
	outside := t.TempDir()

	for _, p := range []string{"../escape.txt", filepath.Join(outside, "x.txt"), "shapes/../../x.txt"} {
		_, err := f.svc.WriteFile(p, "nope")
		var escape *wserrors.PathEscapeError
		require.ErrorAs(t, err, &escape, p)
		assert.Equal(t, wserrors.CodePathEscape, wserrors.CodeOf(err))
	}

	if err := os.Symlink(outside, filepath.Join(f.root, "link")); err == nil {
		_, err := f.svc.WriteFile("link/x.txt", "nope")
		assert.Equal(t, wserrors.CodePathEscape, wserrors.CodeOf(err))
		assert.NoFileExists(t, filepath.Join(outside, "x.txt"))
	}
}

func TestWriteFile_RestoresOnFailure(t *testing.T) {
	f := newFixture(t)
	renameFile = func(oldpath, newpath string) error {
		_ = os.WriteFile(newpath, []byte("half written"), 0644)
		return errors.New("disk full")
	}
	t.Cleanup(func() { renameFile = os.Rename })

	_, err := f.svc.WriteFile("Calc.cs", "new content")
	var failure *wserrors.WriteFailure
	require.ErrorAs(t, err, &failure)
	assert.True(t, failure.Restored)
	assert.NotEmpty(t, failure.BackupPath)
	assert.Equal(t, wserrors.CodeWriteFailure, wserrors.CodeOf(err))
	assert.Equal(t, calculatorSource, f.read(t, "Calc.cs"))
}

func TestWriteFile_ConcurrentSamePath(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup
	contents := make(map[string]bool)
	for i := 0; i < 8; i++ {
		content := fmt.Sprintf("version %d\n", i)
		contents[content] = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.WriteFile("Calc.cs", content)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, contents[f.read(t, "Calc.cs")])
	assert.Empty(t, f.svc.locks.locks)
}

func TestRenameSymbol(t *testing.T) {
	f := newFixture(t)

	preview, err := f.svc.RenameSymbol("Total", "Sum", true)
	require.NoError(t, err)
	assert.Equal(t, 2, preview.FilesTouched)
	assert.Equal(t, 6, preview.Occurrences)
	assert.Equal(t, calculatorSource, f.read(t, "Calc.cs"), "preview writes nothing")
	require.Len(t, preview.Files, 2)
	assert.Contains(t, preview.Files[0].Diff, "+        public int Sum { get; set; }")

	applied, err := f.svc.RenameSymbol("Total", "Sum", false)
	require.NoError(t, err)
	assert.Equal(t, preview.FilesTouched, applied.FilesTouched)
	assert.Equal(t, preview.Occurrences, applied.Occurrences)
	for i := range applied.Files {
		assert.Equal(t, preview.Files[i].File, applied.Files[i].File)
		assert.Equal(t, preview.Files[i].Occurrences, applied.Files[i].Occurrences)
		assert.FileExists(t, applied.Files[i].BackupPath)
	}

	calc := f.read(t, "Calc.cs")
	assert.Contains(t, calc, "// Sum keeps the running sum. Sum is reset by Clear, unlike Totals.")
	assert.NotContains(t, calc, "Total ")
	assert.Equal(t, "Total is documented here.\n", f.read(t, "README.md"))

	again, err := f.svc.RenameSymbol("Total", "Sum", false)
	require.NoError(t, err)
	assert.Zero(t, again.Occurrences)
	assert.Zero(t, again.FilesTouched)

	_, err = f.svc.RenameSymbol("Total", "not valid", true)
	assert.Equal(t, wserrors.CodeInvalidArguments, wserrors.CodeOf(err))
	_, err = f.svc.RenameSymbol("Sum", "Sum", true)
	assert.Equal(t, wserrors.CodeInvalidArguments, wserrors.CodeOf(err))
}

func TestGenerateInterface(t *testing.T) {
	f := newFixture(t)

	gen, err := f.svc.GenerateInterface("Calculator")
	require.NoError(t, err)
	require.Len(t, gen.Interfaces, 1)
	assert.Equal(t, "ICalculator", gen.Interfaces[0].Name)
	assert.Equal(t, "public interface ICalculator\n{\n    int Total { get; set; }\n    int Add(int a, int b);\n}\n", gen.Source)

	goGen, err := f.svc.GenerateInterface("Circle")
	require.NoError(t, err)
	assert.Equal(t, "type CircleInterface interface {\n\tArea() float64\n\tGrow(f float64)\n}\n", goGen.Source)

	_, err = f.svc.GenerateInterface("Calculater")
	var notFound *wserrors.TypeNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, notFound.Suggestions, "Calculator")
}

func TestExtractMethod_CSharp(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.ExtractMethod("Calc.cs", 19, 19, "ResetTotal")
	require.NoError(t, err)
	assert.Equal(t, "ResetTotal();", res.Call)
	assert.Equal(t, "Demo.Calculator.Clear", res.From)
	assert.Equal(t, 22, res.InsertedAt)
	assert.NotEmpty(t, res.BackupPath)

	want := `        private void Clear()
        {
            ResetTotal();
        }

        private void ResetTotal()
        {
            Total = 0;
        }
    }
}
`
	assert.True(t, strings.HasSuffix(f.read(t, "Calc.cs"), want), f.read(t, "Calc.cs"))

	_, err = f.svc.ExtractMethod("Calc.cs", 19, 19, "Again")
	assert.Equal(t, wserrors.CodeIndexStale, wserrors.CodeOf(err))
}

func TestExtractMethod_Go(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.ExtractMethod("shapes/shape.go", 12, 14, "growIfPositive")
	require.NoError(t, err)
	assert.Equal(t, "c.growIfPositive()", res.Call)

	got := f.read(t, "shapes/shape.go")
	assert.Contains(t, got, "func (c *Circle) Grow(f float64) {\n\tc.growIfPositive()\n}\n\nfunc (c *Circle) growIfPositive() {\n\tif f > 0 {\n\t\tc.R *= f\n\t}\n}\n")
}

func TestExtractMethod_RangeErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		start, end int
	}{
		{"includes signature", 8, 10},
		{"includes opening brace", 9, 10},
		{"includes closing brace", 10, 13},
		{"crosses members", 10, 19},
		{"outside any member", 1, 2},
		{"inverted", 12, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ExtractMethod("Calc.cs", tt.start, tt.end, "Extracted")
			var rangeErr *wserrors.RangeError
			require.ErrorAs(t, err, &rangeErr)
		})
	}

	_, err := f.svc.ExtractMethod("Calc.cs", 6, 6, "Extracted")
	assert.Equal(t, wserrors.CodeRange, wserrors.CodeOf(err), "property is not a method")

	_, err = f.svc.ExtractMethod("Calc.cs", 10, 11, "not-an-identifier")
	assert.Equal(t, wserrors.CodeInvalidArguments, wserrors.CodeOf(err))

	_, err = f.svc.ExtractMethod("README.md", 1, 1, "Extracted")
	assert.Equal(t, wserrors.CodeNotFound, wserrors.CodeOf(err))

	_, err = f.svc.ExtractMethod("../Calc.cs", 10, 11, "Extracted")
	assert.Equal(t, wserrors.CodePathEscape, wserrors.CodeOf(err))
	assert.Equal(t, calculatorSource, f.read(t, "Calc.cs"))
}

const meterSource = `pub struct Meter {
    pub reading: u64,
}

impl Meter {
    pub fn read(&self) -> u64 {
        self.reading
    }

    pub fn reset(&mut self) {
        self.reading = 0;
        self.reading += 1;
    }

    fn audit(&self) {}
}
`

const ledgerSource = `<?php
namespace Acme;

class Ledger
{
    public function post(int $amount): bool
    {
        $this->total += $amount;
        return true;
    }

    private function rebuild()
    {
    }
}
`

func TestGenerateInterface_RustAndPHP(t *testing.T) {
	f := newFixtureWith(t, map[string]string{
		"src/meter.rs":   meterSource,
		"src/Ledger.php": ledgerSource,
	})

	gen, err := f.svc.GenerateInterface("Meter")
	require.NoError(t, err)
	assert.Equal(t, "pub trait MeterTrait {\n    fn read(&self) -> u64;\n    fn reset(&mut self);\n}\n", gen.Source)

	gen, err = f.svc.GenerateInterface("Acme.Ledger")
	require.NoError(t, err)
	assert.Equal(t, "interface LedgerInterface\n{\n    public function post(int $amount): bool;\n}\n", gen.Source)
}

func TestExtractMethod_Rust(t *testing.T) {
	f := newFixtureWith(t, map[string]string{"src/meter.rs": meterSource})

	res, err := f.svc.ExtractMethod("src/meter.rs", 11, 12, "clear")
	require.NoError(t, err)
	assert.Equal(t, "self.clear();", res.Call)
	assert.Contains(t, f.read(t, "src/meter.rs"), "    pub fn reset(&mut self) {\n        self.clear();\n    }\n\n    fn clear(&mut self) {\n        self.reading = 0;\n        self.reading += 1;\n    }\n")
}

const jobSource = `class Job:
    def run(self):
        a = 1
        b = a + 1
        print(b)

    def one(self): return 1
`

func TestExtractMethod_PythonTakesWholeBlock(t *testing.T) {
	f := newFixtureWith(t, map[string]string{"job.py": jobSource})

	for _, r := range [][2]int{{2, 3}, {7, 7}, {5, 7}} {
		_, err := f.svc.ExtractMethod("job.py", r[0], r[1], "work")
		var rangeErr *wserrors.RangeError
		require.ErrorAs(t, err, &rangeErr, "lines %d-%d", r[0], r[1])
	}
	assert.Equal(t, jobSource, f.read(t, "job.py"))

	res, err := f.svc.ExtractMethod("job.py", 3, 5, "work")
	require.NoError(t, err)
	assert.Equal(t, "self.work()", res.Call)
	assert.Equal(t, "class Job:\n"+
		"    def run(self):\n"+
		"        self.work()\n"+
		"\n"+
		"    def work(self):\n"+
		"        a = 1\n"+
		"        b = a + 1\n"+
		"        print(b)\n"+
		"\n"+
		"    def one(self): return 1\n", f.read(t, "job.py"))
}

func TestExtractMethod_PythonFirstAndLastStatements(t *testing.T) {
	for _, r := range [][2]int{{3, 4}, {4, 5}} {
		f := newFixtureWith(t, map[string]string{"job.py": jobSource})
		_, err := f.svc.ExtractMethod("job.py", r[0], r[1], "part")
		require.NoError(t, err, "lines %d-%d", r[0], r[1])
		assert.Contains(t, f.read(t, "job.py"), "        self.part()\n")
	}
}

const sizerSource = `class Sizer
{
    public int Twice(int x) =>
        x * 2;

    public int Half(int x)
    {
        return x / 2;
    }
}
`

func TestExtractMethod_ExpressionBodyRejected(t *testing.T) {
	f := newFixtureWith(t, map[string]string{"Sizer.cs": sizerSource})

	_, err := f.svc.ExtractMethod("Sizer.cs", 4, 4, "Compute")
	var rangeErr *wserrors.RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Contains(t, rangeErr.Reason, "expression body")

	_, err = f.svc.ExtractMethod("Sizer.cs", 8, 8, "Compute")
	require.NoError(t, err)
}

const tallySource = `const total = 1;
const $total = total + 2;
const totalé = 3;
const x = $total + totalé;
`

func TestRenameSymbol_IdentifierBoundaries(t *testing.T) {
	f := newFixtureWith(t, map[string]string{"tally.js": tallySource})

	res, err := f.svc.RenameSymbol("total", "sum", false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Occurrences)
	assert.Equal(t, "const sum = 1;\n"+
		"const $total = sum + 2;\n"+
		"const totalé = 3;\n"+
		"const x = $total + totalé;\n", f.read(t, "tally.js"))

	dollar, err := f.svc.RenameSymbol("$total", "$count", true)
	require.NoError(t, err)
	assert.Equal(t, 2, dollar.Occurrences)
	require.Len(t, dollar.Files, 1)
	assert.Contains(t, dollar.Files[0].Diff, "+const x = $count + totalé;")
}

func TestIdentifierMatches(t *testing.T) {
	tests := []struct {
		text, name string
		want       []int
	}{
		{"a total b", "total", []int{2}},
		{"totals subtotal total_1", "total", nil},
		{"$total total$", "total", nil},
		{"étotal totalé", "total", nil},
		{"total(total)", "total", []int{0, 6}},
		{"x.$el $el", "$el", []int{2, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, identifierMatches(tt.text, tt.name))
		})
	}
}
