package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
	"github.com/standardbeagle/wsmcp/internal/indexing"
	"github.com/standardbeagle/wsmcp/internal/types"
)

const fooSource = `namespace Shop
{
    public class Foo
    {
        public void Bar()
        {
            Baz();
        }
    }
}
`

const bazSource = `namespace Shop
{
    public static class Helpers
    {
        public static void Baz() { }
    }
}
`

const shopSource = `namespace Shop
{
    public interface IOrderService
    {
        Task<bool> PlaceAsync(Order order, int qty);
    }

    public abstract class ServiceBase
    {
        public abstract void Reset();
        protected virtual void Log(string message) { }
    }

    /// <summary>Handles order placement and validation.</summary>
    public class OrderService : ServiceBase, IOrderService
    {
        public async Task<bool> PlaceAsync(Order order, int qty)
        {
            ValidateOrder(order);
            Log("placing");
            return await Retry(3);
        }

        private bool ValidateOrder(Order order)
        {
            return order != null;
        }

        public override void Reset() { }

        public static OrderService Create() { return new OrderService(); }

        private Task<bool> Retry(int attempts)
        {
            if (attempts > 0) { return Retry(attempts - 1); }
            return Task.FromResult(true);
        }
    }

    public class AuditedOrderService : Shop.IOrderService
    {
        public Task<bool> PlaceAsync(Order order, int qty) { return Task.FromResult(false); }
    }
}
`

func newFixture(t *testing.T) *Analyzer {
	t.Helper()
	root := t.TempDir()
	for name, content := range map[string]string{
		"a.cs":      fooSource,
		"b.cs":      bazSource,
		"shop.cs":   shopSource,
		"README.md": "# Shop\nOrder handling.\n",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0644))
	}
	ws := &types.Workspace{Name: "shop", Roots: []types.Root{{Path: root}}}
	ix, err := indexing.NewIndexer(nil, nil, indexing.Options{}).Build(context.Background(), ws, 1)
	require.NoError(t, err)
	return New(ix, nil)
}

func memberNames(views []MemberView) []string {
	var names []string
	for _, v := range views {
		names = append(names, v.Type+"."+v.Name)
	}
	return names
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func TestFindUsages(t *testing.T) {
	a := newFixture(t)

	usages, err := a.FindUsages("Baz")
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.Equal(t, "a.cs", usages[0].File)
	assert.Equal(t, 7, usages[0].Line)
	assert.Equal(t, "Shop.Foo.Bar", usages[0].Caller)

	qualified, err := a.FindUsages("Shop.Helpers.Baz")
	require.NoError(t, err)
	assert.Equal(t, usages, qualified)

	for _, u := range mustUsages(t, a, "Retry") {
		assert.Equal(t, "Retry", u.Callee)
	}
	none, err := a.FindUsages("Nope")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = a.FindUsages("  ")
	assert.Equal(t, wserrors.CodeInvalidArguments, wserrors.CodeOf(err))
}

func mustUsages(t *testing.T, a *Analyzer, name string) []Usage {
	t.Helper()
	u, err := a.FindUsages(name)
	require.NoError(t, err)
	return u
}

func TestGetCallGraph(t *testing.T) {
	a := newFixture(t)

	g, err := a.GetCallGraph("Foo", "Bar")
	require.NoError(t, err)
	assert.Equal(t, []string{"Baz"}, g.Callees)
	assert.Empty(t, g.Callers)
	assert.NotNil(t, g.Callers)

	g, err = a.GetCallGraph("Shop.OrderService", "Retry")
	require.NoError(t, err)
	require.Len(t, g.Callers, 1, "recursive call is not a caller")
	assert.Equal(t, "Shop.OrderService.PlaceAsync", g.Callers[0].Caller)
	assert.Equal(t, []string{"Retry", "FromResult"}, g.Callees)
	assert.Equal(t, []string{"Shop.OrderService.Retry"}, g.Targets)

	_, err = a.GetCallGraph("Missing", "Bar")
	assert.Equal(t, wserrors.CodeTypeNotFound, wserrors.CodeOf(err))

	_, err = a.GetCallGraph("OrderService", "Validate")
	require.Error(t, err)
	assert.Equal(t, wserrors.CodeNotFound, wserrors.CodeOf(err))
	assert.Contains(t, wserrors.SuggestionsOf(err), "ValidateOrder")
}

func TestFindImplementations(t *testing.T) {
	a := newFixture(t)

	impls, err := a.FindImplementations("IOrderService")
	require.NoError(t, err)
	var names []string
	for _, v := range impls {
		names = append(names, v.QualifiedName)
	}
	assert.Equal(t, []string{"Shop.OrderService", "Shop.AuditedOrderService"}, names)

	qualified, err := a.FindImplementations("Shop.IOrderService")
	require.NoError(t, err)
	assert.Equal(t, impls, qualified)

	base, err := a.FindImplementations("ServiceBase")
	require.NoError(t, err)
	require.Len(t, base, 1)
	assert.Equal(t, "shop.cs", base[0].File)
}

func TestSemanticQuery(t *testing.T) {
	a := newFixture(t)

	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"async", Criteria{IsAsync: boolPtr(true)}, []string{"Shop.OrderService.PlaceAsync"}},
		{"static methods", Criteria{IsStatic: boolPtr(true), Kind: "method"},
			[]string{"Shop.Helpers.Baz", "Shop.OrderService.Create"}},
		{"abstract", Criteria{IsAbstract: boolPtr(true)},
			[]string{"Shop.IOrderService.PlaceAsync", "Shop.ServiceBase.Reset"}},
		{"override", Criteria{IsOverride: boolPtr(true)}, []string{"Shop.OrderService.Reset"}},
		{"virtual", Criteria{IsVirtual: boolPtr(true)}, []string{"Shop.ServiceBase.Log"}},
		{"return type and pattern", Criteria{ReturnTypeEquals: " Task<bool> ", NamePattern: "Re*"},
			[]string{"Shop.OrderService.Retry"}},
		{"type filter", Criteria{NamePattern: "Place*", TypeName: "OrderService"},
			[]string{"Shop.OrderService.PlaceAsync"}},
		{"parameter count", Criteria{MinParameters: intPtr(2), Visibility: "public"},
			[]string{"Shop.IOrderService.PlaceAsync", "Shop.OrderService.PlaceAsync", "Shop.AuditedOrderService.PlaceAsync"}},
		{"no parameters private", Criteria{MaxParameters: intPtr(0), Visibility: "private", Language: "csharp"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.SemanticQuery(tt.criteria)
			require.NoError(t, err)
			assert.Equal(t, tt.want, memberNames(res.Matches))
			assert.Equal(t, len(tt.want), res.Total)
			assert.False(t, res.Truncated)
		})
	}

	res, err := a.SemanticQuery(Criteria{IsAbstract: boolPtr(true), Limit: 1})
	require.NoError(t, err)
	assert.Len(t, res.Matches, 1)
	assert.Equal(t, 2, res.Total)
	assert.True(t, res.Truncated)

	all, err := a.SemanticQuery(Criteria{})
	require.NoError(t, err)
	assert.Equal(t, len(a.Index().Members), all.Total)

	_, err = a.SemanticQuery(Criteria{Kind: "widget"})
	assert.Equal(t, wserrors.CodeInvalidArguments, wserrors.CodeOf(err))
	_, err = a.SemanticQuery(Criteria{NamePattern: "[unclosed"})
	assert.Equal(t, wserrors.CodeInvalidArguments, wserrors.CodeOf(err))
}

func TestGetMethodBody(t *testing.T) {
	a := newFixture(t)

	bodies, err := a.GetMethodBody("OrderService", "PlaceAsync")
	require.NoError(t, err)
	require.Len(t, bodies, 1)
	assert.Equal(t, "Shop.OrderService", bodies[0].Type)
	assert.Contains(t, bodies[0].Body, "ValidateOrder(order);")
	assert.Equal(t, "PlaceAsync(Order order, int qty) : Task<bool>", bodies[0].Signature)

	_, err = a.GetMethodBody("OrderServce", "PlaceAsync")
	var typeErr *wserrors.TypeNotFoundError
	require.ErrorAs(t, err, &typeErr)
	assert.Contains(t, typeErr.Suggestions, "OrderService")

	_, err = a.GetMethodBody("OrderService", "")
	assert.Equal(t, wserrors.CodeInvalidArguments, wserrors.CodeOf(err))
}

func TestSearchContent(t *testing.T) {
	a := newFixture(t)

	res, err := a.SearchContent(SearchOptions{Pattern: "validateorder"})
	require.NoError(t, err)
	require.Len(t, res.Matches, 2)
	first := res.Matches[0]
	assert.Equal(t, "shop.cs", first.File)
	assert.Equal(t, "Shop.OrderService.PlaceAsync", first.Member)
	assert.Len(t, first.Before, 2)
	assert.Len(t, first.After, 2)
	assert.Equal(t, 4, res.FilesScanned)

	res, err = a.SearchContent(SearchOptions{Pattern: "validateorder", CaseSensitive: true})
	require.NoError(t, err)
	assert.Empty(t, res.Matches)

	res, err = a.SearchContent(SearchOptions{Pattern: `Retry\(\d\)`, IsRegex: true, CaseSensitive: true, ContextLines: intPtr(0)})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Nil(t, res.Matches[0].Before)

	res, err = a.SearchContent(SearchOptions{Pattern: "Retry(3)"})
	require.NoError(t, err)
	assert.Len(t, res.Matches, 1, "literal search escapes metacharacters")

	res, err = a.SearchContent(SearchOptions{Pattern: "order", MaxResults: 1})
	require.NoError(t, err)
	assert.Len(t, res.Matches, 1)
	assert.True(t, res.Truncated)

	_, err = a.SearchContent(SearchOptions{Pattern: "(", IsRegex: true})
	assert.Equal(t, wserrors.CodeInvalidArguments, wserrors.CodeOf(err))
}

func TestRegexCache(t *testing.T) {
	rc := NewRegexCache(2)
	re1, err := rc.Compile("foo", true)
	require.NoError(t, err)
	again, err := rc.Compile("foo", true)
	require.NoError(t, err)
	assert.Same(t, re1, again)
	assert.True(t, re1.MatchString("FOO"))

	_, _ = rc.Compile("foo", false)
	_, _ = rc.Compile("bar", false)
	stats := rc.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(3), stats.Misses)
	assert.Equal(t, int64(1), stats.Evictions)

	_, err = rc.Compile("(", false)
	assert.Error(t, err)
}

func TestListFiles(t *testing.T) {
	a := newFixture(t)

	all, err := a.ListFiles("")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	md, err := a.ListFiles("*.md")
	require.NoError(t, err)
	require.Len(t, md, 1)
	assert.False(t, md[0].Analyzed)

	cs, err := a.ListFiles("**/*.cs")
	require.NoError(t, err)
	assert.Len(t, cs, 3)

	_, err = a.ListFiles("[bad")
	assert.Equal(t, wserrors.CodeInvalidArguments, wserrors.CodeOf(err))
}

func TestGetContextForTask(t *testing.T) {
	a := newFixture(t)

	ctx, err := a.GetContextForTask("validate the order placement", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"validate", "order", "placement"}, ctx.Keywords)
	require.NotEmpty(t, ctx.Files)
	top := ctx.Files[0]
	assert.Equal(t, "shop.cs", top.File)
	assert.Contains(t, top.Outline, "class Shop.OrderService (L15-38)")
	require.NotEmpty(t, top.Members)
	assert.Equal(t, "ValidateOrder", top.Members[0].Name)
	assert.LessOrEqual(t, ctx.Tokens, DefaultContextTokens)

	tight, err := a.GetContextForTask("validate the order placement", 1, 3)
	require.NoError(t, err)
	assert.Empty(t, tight.Files)
	assert.True(t, tight.Truncated)

	_, err = a.GetContextForTask(" ", 0, 0)
	assert.Equal(t, wserrors.CodeInvalidArguments, wserrors.CodeOf(err))
}

func TestGetContextForTask_SkipsFilesOverBudget(t *testing.T) {
	root := t.TempDir()
	for name, content := range map[string]string{
		"order_service.cs": "class OrderService\n{\n    public void PlaceOrder(int id)\n    {\n        var order = LoadOrder(id);\n        SaveOrder(order);\n    }\n\n    private int LoadOrder(int id) { return id; }\n\n    private void SaveOrder(int order) { }\n}\n",
		"order.cs":         "class Order { }\n",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0644))
	}
	ws := &types.Workspace{Name: "orders", Roots: []types.Root{{Path: root}}}
	ix, err := indexing.NewIndexer(nil, nil, indexing.Options{}).Build(context.Background(), ws, 1)
	require.NoError(t, err)
	a := New(ix, nil)

	all, err := a.GetContextForTask("order", 0, 0)
	require.NoError(t, err)
	require.Len(t, all.Files, 2)
	assert.Equal(t, "order_service.cs", all.Files[0].File)
	assert.False(t, all.Truncated)
	small := all.Files[1]
	require.Equal(t, "order.cs", small.File)

	ctx, err := a.GetContextForTask("order", 0, small.Tokens)
	require.NoError(t, err)
	require.Len(t, ctx.Files, 1)
	assert.Equal(t, "order.cs", ctx.Files[0].File)
	assert.Equal(t, small.Tokens, ctx.Tokens)
	assert.True(t, ctx.Truncated)
}
