package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimpleName(t *testing.T) {
	cases := map[string]string{
		"IList":                               "IList",
		"System.Collections.Generic.IList<T>": "IList",
		"Repository<User>":                    "Repository",
		"pkg.Reader":                          "Reader",
		"  Foo  ":                             "Foo",
		"Outer::Inner":                        "Inner",
	}
	for in, want := range cases {
		assert.Equal(t, want, SimpleName(in), in)
	}
}

func TestModifiers(t *testing.T) {
	m := ParseModifier("static") | ParseModifier("async") | ParseModifier("final")
	assert.True(t, m.Has(ModStatic))
	assert.True(t, m.Has(ModAsync))
	assert.True(t, m.Has(ModSealed))
	assert.False(t, m.Has(ModVirtual))
	assert.Equal(t, []string{"static", "async", "sealed"}, m.Names())
	assert.Equal(t, Modifiers(0), ParseModifier("volatile-ish"))
}

func TestActivityEventText(t *testing.T) {
	assert.Equal(t, "started:find_usages", ActivityEvent{Kind: ActivityStarted, Tool: "find_usages"}.Text())
	assert.Equal(t, "error:write_file:path_escape", ActivityEvent{Kind: ActivityError, Tool: "write_file", Detail: "path_escape"}.Text())
	assert.Equal(t, "workspace-switched:billing", ActivityEvent{Kind: ActivityWorkspaceSwitched, Detail: "billing"}.Text())
}

func TestLanguageForPath(t *testing.T) {
	assert.Equal(t, LangCSharp, LanguageForPath("/x/Foo.CS"))
	assert.Equal(t, LangTypeScript, LanguageForPath("a/b.tsx"))
	assert.Equal(t, LangUnknown, LanguageForPath("README.md"))
}

func TestEnabledRoots(t *testing.T) {
	ws := Workspace{Roots: []Root{{Path: "/a"}, {Path: "/b", Disabled: true}, {Path: " "}, {Path: "/c"}}}
	assert.Equal(t, []string{"/a", "/c"}, ws.EnabledRoots())
}
