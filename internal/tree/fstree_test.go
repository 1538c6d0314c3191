package tree

import (
	"testing"
	"time"

	"github.com/omnifs/omnifs/internal/container"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	cases := []struct {
		path       string
		wantParent string
		wantBase   string
	}{
		{"/a", "/", "a"},
		{"/a/b", "/a", "b"},
		{"/a/b/c", "/a/b", "c"},
	}
	for _, c := range cases {
		parent, base := ParsePath(c.path)
		require.Equal(t, c.wantParent, parent, c.path)
		require.Equal(t, c.wantBase, base, c.path)
	}
}

func TestFindByPathRoot(t *testing.T) {
	tr := New("admin")
	require.Same(t, tr.Root, tr.FindByPath("/"))
	require.Same(t, tr.Root, tr.FindByPath(""))
}

func TestAddChildAndFindByPath(t *testing.T) {
	tr := New("admin")
	dir := &Node{Meta: Meta{Name: "docs", Type: container.TypeDirectory, Owner: "admin"}}
	tr.Root.AddChild(dir)
	file := &Node{Meta: Meta{Name: "a.txt", Type: container.TypeFile, Owner: "admin"}}
	dir.AddChild(file)

	require.Same(t, dir, tr.FindByPath("/docs"))
	require.Same(t, file, tr.FindByPath("/docs/a.txt"))
	require.Nil(t, tr.FindByPath("/missing"))
	require.Equal(t, dir, file.Parent())
}

func TestRemoveChild(t *testing.T) {
	tr := New("admin")
	dir := &Node{Meta: Meta{Name: "docs", Type: container.TypeDirectory, Owner: "admin"}}
	tr.Root.AddChild(dir)
	require.Equal(t, 1, tr.Root.Children.Len())

	tr.Root.RemoveChild("docs")
	require.Equal(t, 0, tr.Root.Children.Len())
	require.Nil(t, tr.FindByPath("/docs"))
}

func TestCollectExcludesRoot(t *testing.T) {
	tr := New("admin")
	dir := &Node{Meta: Meta{Name: "docs", Type: container.TypeDirectory, Owner: "admin"}}
	tr.Root.AddChild(dir)
	file := &Node{Meta: Meta{Name: "a.txt", Type: container.TypeFile, Owner: "admin"}}
	dir.AddChild(file)

	entries := Collect(tr.Root)
	require.Len(t, entries, 2)
	require.Equal(t, "/docs", entries[0].Path)
	require.Equal(t, "/docs/a.txt", entries[1].Path)
}

func TestBuildFromEntriesLinksParentBeforeChild(t *testing.T) {
	now := time.Now()
	entries := []container.DecodedEntry{
		{Path: "/", Type: container.TypeDirectory, Owner: "admin", CreatedAt: now, ModifiedAt: now},
		{Path: "/docs", Type: container.TypeDirectory, Owner: "admin", CreatedAt: now, ModifiedAt: now},
		{Path: "/docs/a.txt", Type: container.TypeFile, Owner: "admin", Size: 10, Inode: 40, CreatedAt: now, ModifiedAt: now},
	}

	tr, err := BuildFromEntries(entries, 4096, "admin")
	require.NoError(t, err)

	dir := tr.FindByPath("/docs")
	require.NotNil(t, dir)
	file := tr.FindByPath("/docs/a.txt")
	require.NotNil(t, file)
	require.Equal(t, []int{40}, file.DataBlocks)
}

func TestBuildFromEntriesMissingParentErrors(t *testing.T) {
	entries := []container.DecodedEntry{
		{Path: "/docs/a.txt", Type: container.TypeFile, Owner: "admin"},
	}
	_, err := BuildFromEntries(entries, 4096, "admin")
	require.Error(t, err)
}

func TestBuildFromEntriesZeroSizeFileHasNoBlocks(t *testing.T) {
	entries := []container.DecodedEntry{
		{Path: "/a.txt", Type: container.TypeFile, Owner: "admin", Size: 0, Inode: 40},
	}
	tr, err := BuildFromEntries(entries, 4096, "admin")
	require.NoError(t, err)
	file := tr.FindByPath("/a.txt")
	require.NotNil(t, file)
	require.Empty(t, file.DataBlocks)
}
