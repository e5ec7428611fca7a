package pathkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixPath(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		workingDir string
		want       string
	}{
		{"absolute unchanged", "/a/b/c", "/wd", "/a/b/c"},
		{"relative joined", "src/main.c", "/project", "/project/src/main.c"},
		{"backslashes", `\a\b\c`, "", "/a/b/c"},
		{"relative backslashes", `src\main.c`, "/project", "/project/src/main.c"},
		{"dot elements", "/a/./b/./c", "", "/a/b/c"},
		{"dotdot elements", "/a/b/../c", "", "/a/c"},
		{"dotdot above root", "/../../a", "", "/a"},
		{"repeated separators", "//a///b", "", "/a/b"},
		{"trailing separator", "/a/b/", "", "/a/b"},
		{"root", "/", "", "/"},
		{"drive letter", `C:\proj\src`, "", "C:/proj/src"},
		{"drive root", `C:\`, "", "C:/"},
		{"drive dotdot", `C:\a\..\b`, "", "C:/b"},
		{"relative to drive wd", "obj/main.o", `C:\proj`, "C:/proj/obj/main.o"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FixPath(tt.path, tt.workingDir))
		})
	}
}

func TestIsAbsolute(t *testing.T) {
	assert.True(t, IsAbsolute("/a"))
	assert.True(t, IsAbsolute(`\a`))
	assert.True(t, IsAbsolute("C:/a"))
	assert.True(t, IsAbsolute("c:"))
	assert.False(t, IsAbsolute("a/b"))
	assert.False(t, IsAbsolute(""))
	assert.False(t, IsAbsolute("1:/a"))
}

func TestSplit(t *testing.T) {
	dir, leaf, ok := Split("/a/b/c")
	require.True(t, ok)
	assert.Equal(t, "/a/b", dir)
	assert.Equal(t, "c", leaf)

	dir, leaf, ok = Split("/top")
	require.True(t, ok)
	assert.Equal(t, "/", dir)
	assert.Equal(t, "top", leaf)

	_, _, ok = Split("no-separator")
	assert.False(t, ok)
}

func TestForKey(t *testing.T) {
	assert.Equal(t, "/a/file.c", ForKey("/A/File.C", true))
	assert.Equal(t, "/A/File.C", ForKey("/A/File.C", false))
}

func TestFromPath(t *testing.T) {
	k1 := FromPath("/a/b")
	k2 := FromPath("/a/b")
	k3 := FromPath("/a/c")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.False(t, k1.IsZero())
	assert.True(t, Zero.IsZero())
	assert.Len(t, k1.String(), Size*2)
}

func TestFromPath_CaseFoldedPathsShareKey(t *testing.T) {
	a := FromPath(ForKey("/Proj/Main.c", true))
	b := FromPath(ForKey("/proj/main.c", true))
	assert.Equal(t, a, b)
}

func TestDirHash_Child(t *testing.T) {
	h := NewDirHash("/proj/src")
	assert.Equal(t, FromPath("/proj/src"), h.Key)
	assert.Equal(t, FromPath("/proj/src/main.c"), h.Child("main.c"))
}

func TestDirHash_RootChild(t *testing.T) {
	h := NewDirHash("/")
	assert.Equal(t, FromPath("/top"), h.Child("top"))
}
