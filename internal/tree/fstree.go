package tree

import (
	"fmt"
	"strings"
	"time"

	"github.com/omnifs/omnifs/internal/container"
)

// Meta is the in-memory counterpart of an on-disk EntryRecord: it carries
// only the basename, never the full path.
type Meta struct {
	Name        string
	Type        container.EntryType
	Size        uint64
	Permissions uint32
	Owner       string
	Inode       uint32
	ParentInode uint32
	CreatedAt   time.Time
	ModifiedAt  time.Time
}

// Node is the in-memory counterpart of a filesystem entry. Directories own
// their Children exclusively; the Parent link is a non-owning back
// reference that callers use to reach a node's directory (path
// reconstruction, unlinking). Collect builds paths during its own walk and
// does not read it.
type Node struct {
	Meta       Meta
	parent     *Node
	Children   OrderedByName[*Node]
	DataBlocks []int
}

// Name implements Named so a *Node can live in an OrderedByName index.
func (n *Node) Name() string {
	return n.Meta.Name
}

// Parent returns the node's parent, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// IsDirectory reports whether this node is a directory.
func (n *Node) IsDirectory() bool {
	return n.Meta.Type == container.TypeDirectory
}

// AddChild links child under this node. A no-op on non-directories and on
// name collisions (OrderedByName.Insert silently ignores duplicates).
func (n *Node) AddChild(child *Node) {
	if !n.IsDirectory() {
		return
	}
	if _, exists := n.Children.Find(child.Meta.Name); exists {
		return
	}
	child.parent = n
	n.Children.Insert(child)
}

// FindChild looks up an immediate child by basename.
func (n *Node) FindChild(name string) (*Node, bool) {
	if !n.IsDirectory() {
		return nil, false
	}
	return n.Children.Find(name)
}

// RemoveChild unlinks an immediate child by basename.
func (n *Node) RemoveChild(name string) {
	if n.IsDirectory() {
		n.Children.Remove(name)
	}
}

// ListChildren returns this node's children in ascending name order.
func (n *Node) ListChildren() []*Node {
	if !n.IsDirectory() {
		return nil
	}
	return n.Children.ListInOrder()
}

// FSTree is the tree of entries rooted at "/".
type FSTree struct {
	Root *Node
}

// New creates an FSTree containing only the root directory, owned by owner.
func New(owner string) *FSTree {
	now := time.Now()
	return &FSTree{
		Root: &Node{
			Meta: Meta{
				Name:        "/",
				Type:        container.TypeDirectory,
				Permissions: 0755,
				Owner:       owner,
				CreatedAt:   now,
				ModifiedAt:  now,
			},
		},
	}
}

// ParsePath splits path into its parent path and basename. The parent of
// any top-level path is "/".
func ParsePath(path string) (parentPath, baseName string) {
	lastSlash := strings.LastIndex(path, "/")
	if lastSlash <= 0 {
		parentPath = "/"
	} else {
		parentPath = path[:lastSlash]
	}
	baseName = path[lastSlash+1:]
	return parentPath, baseName
}

// FindByPath walks path segment by segment from the root, skipping empty
// segments, and returns nil if any segment along the way is missing.
func (t *FSTree) FindByPath(path string) *Node {
	if path == "" || path == "/" {
		return t.Root
	}
	current := t.Root
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		child, ok := current.FindChild(segment)
		if !ok {
			return nil
		}
		current = child
	}
	return current
}

// PathNode pairs a node with its full absolute path, as produced by Collect.
type PathNode struct {
	Path string
	Node *Node
}

// Collect walks the tree in pre-order (parent before every descendant) and
// returns every node EXCEPT the root — Save never writes the root entry
// back to disk, relying on New always synthesizing it.
func Collect(root *Node) []PathNode {
	var out []PathNode
	var walk func(node *Node, path string)
	walk = func(node *Node, path string) {
		if path != "/" {
			out = append(out, PathNode{Path: path, Node: node})
		}
		for _, child := range node.ListChildren() {
			var childPath string
			if path != "/" {
				childPath = path + "/" + child.Meta.Name
			} else {
				childPath = "/" + child.Meta.Name
			}
			walk(child, childPath)
		}
	}
	walk(root, "/")
	return out
}

// BuildFromEntries reconstructs a tree from the on-disk entries Load
// decoded, linking parent-before-child. Entries MUST already be in an order
// that satisfies this (Collect guarantees it on the write side). The
// synthetic "/" entry Format writes is always skipped: the root is always
// re-synthesized fresh.
func BuildFromEntries(entries []container.DecodedEntry, blockSize uint64, rootOwner string) (*FSTree, error) {
	t := New(rootOwner)

	for _, e := range entries {
		if e.Path == "/" {
			continue
		}
		parentPath, baseName := ParsePath(e.Path)
		parent := t.FindByPath(parentPath)
		if parent == nil {
			return nil, fmt.Errorf("entry %q: parent %q not found (entries out of order?)", e.Path, parentPath)
		}

		node := &Node{
			Meta: Meta{
				Name:        baseName,
				Type:        e.Type,
				Size:        e.Size,
				Permissions: e.Permissions,
				Owner:       e.Owner,
				Inode:       e.Inode,
				ParentInode: e.ParentInode,
				CreatedAt:   e.CreatedAt,
				ModifiedAt:  e.ModifiedAt,
			},
		}

		if e.Type == container.TypeFile && e.Size > 0 {
			blocksNeeded := int((e.Size + blockSize - 1) / blockSize)
			start := int(e.Inode)
			node.DataBlocks = make([]int, blocksNeeded)
			for i := range node.DataBlocks {
				node.DataBlocks[i] = start + i
			}
		}

		parent.AddChild(node)
	}

	return t, nil
}
