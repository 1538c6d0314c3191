// Package engine implements OFSInstance: the composite that owns the
// in-memory bitmap, filesystem tree, and user index, and exposes the
// filesystem operations the server dispatches wire requests to.
package engine

import (
	"sync"
	"time"

	"github.com/omnifs/omnifs/internal/bitmap"
	"github.com/omnifs/omnifs/internal/container"
	"github.com/omnifs/omnifs/internal/session"
	"github.com/omnifs/omnifs/internal/tree"
	"github.com/omnifs/omnifs/internal/users"
	omnierrors "github.com/omnifs/omnifs/pkg/errors"
)

// Engine is the single composite owned by the server: every field a
// filesystem operation can mutate lives here, and mu serializes access so
// that an operation called directly (e.g. in tests, or from a future
// diagnostic reader) never races the processor goroutine.
type Engine struct {
	mu sync.Mutex

	path   string
	cfg    container.Config
	layout container.Layout

	bitmap bitmap.FreeSpaceBitmap
	tree   *tree.FSTree
	users  *users.Index

	Sessions *session.Store
}

// Format creates a brand-new container at path per cfg and returns an
// Engine initialized from it. Equivalent to Format + Init in one step.
func Format(path string, cfg container.Config) (*Engine, *omnierrors.OmniError) {
	layout, err := container.Format(path, cfg)
	if err != nil {
		return nil, omnierrors.New(omnierrors.IOError, err.Error()).WithComponent("engine").WithOperation("format")
	}
	return load(path, cfg, layout)
}

// Init opens and loads an existing container at path.
func Init(path string, cfg container.Config) (*Engine, *omnierrors.OmniError) {
	layout := container.ComputeLayout(cfg)
	return load(path, cfg, layout)
}

func load(path string, cfg container.Config, layout container.Layout) (*Engine, *omnierrors.OmniError) {
	result, err := container.Load(path, cfg)
	if err != nil {
		return nil, omnierrors.New(omnierrors.IOError, err.Error()).WithComponent("engine").WithOperation("init")
	}

	fsTree, buildErr := tree.BuildFromEntries(result.Entries, cfg.BlockSize, cfg.AdminUsername)
	if buildErr != nil {
		return nil, omnierrors.New(omnierrors.IOError, buildErr.Error()).WithComponent("engine").WithOperation("init")
	}

	e := &Engine{
		path:     path,
		cfg:      cfg,
		layout:   layout,
		tree:     fsTree,
		users:    users.NewFromDecoded(result.Users),
		Sessions: &session.Store{},
	}
	e.rebuildBitmap()

	return e, nil
}

// rebuildBitmap recomputes the in-memory bitmap from the metadata
// reservation plus every file node's current data blocks, mirroring exactly
// what container.Save independently recomputes on disk.
func (e *Engine) rebuildBitmap() {
	e.bitmap.Initialize(e.layout.TotalBlocks)
	e.bitmap.SetRun(0, e.layout.DataBlocksStartBlock)
	for _, pn := range tree.Collect(e.tree.Root) {
		for _, block := range pn.Node.DataBlocks {
			e.bitmap.Set(block)
		}
	}
}

// save rewrites the container's user table, entry table, and bitmap from
// current in-memory state. Called after every successful mutation; never
// called on a validation failure.
func (e *Engine) save() *omnierrors.OmniError {
	entries := make([]container.EncodeEntry, 0)
	for _, pn := range tree.Collect(e.tree.Root) {
		entries = append(entries, container.EncodeEntry{
			Path:        pn.Path,
			Type:        pn.Node.Meta.Type,
			Size:        pn.Node.Meta.Size,
			Permissions: pn.Node.Meta.Permissions,
			Owner:       pn.Node.Meta.Owner,
			Inode:       pn.Node.Meta.Inode,
			ParentInode: pn.Node.Meta.ParentInode,
			CreatedAt:   pn.Node.Meta.CreatedAt,
			ModifiedAt:  pn.Node.Meta.ModifiedAt,
			Blocks:      pn.Node.DataBlocks,
		})
	}

	if err := container.Save(e.path, e.cfg, e.layout, e.users.ToDecoded(), entries); err != nil {
		return omnierrors.New(omnierrors.IOError, err.Error()).WithComponent("engine").WithOperation("save")
	}
	return nil
}

// EntryInfo is the wire-friendly rendering of one filesystem node.
type EntryInfo struct {
	Path        string    `json:"path"`
	Type        string    `json:"type"`
	Size        uint64    `json:"size"`
	Permissions uint32    `json:"permissions"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
}

func entryInfo(path string, n *tree.Node) EntryInfo {
	return EntryInfo{
		Path:        path,
		Type:        n.Meta.Type.String(),
		Size:        n.Meta.Size,
		Permissions: n.Meta.Permissions,
		Owner:       n.Meta.Owner,
		CreatedAt:   n.Meta.CreatedAt,
		ModifiedAt:  n.Meta.ModifiedAt,
	}
}

// AllocatedBlocks returns the number of container blocks currently marked
// used in the free-space bitmap, metadata reservation included.
func (e *Engine) AllocatedBlocks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bitmap.Count()
}

// fullPath reconstructs a node's absolute path by walking parent links.
func fullPath(n *tree.Node) string {
	if n.Parent() == nil {
		return "/"
	}
	var segments []string
	for cur := n; cur.Parent() != nil; cur = cur.Parent() {
		segments = append([]string{cur.Meta.Name}, segments...)
	}
	joined := ""
	for _, s := range segments {
		joined += "/" + s
	}
	return joined
}
