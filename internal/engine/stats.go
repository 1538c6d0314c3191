package engine

import "github.com/omnifs/omnifs/internal/tree"

// Stats summarizes the filesystem as get_stats reports it.
type Stats struct {
	Files       int    `json:"files"`
	Directories int    `json:"directories"`
	TotalSpace  uint64 `json:"total_space"`
	UsedSpace   uint64 `json:"used_space"`
	FreeSpace   uint64 `json:"free_space"`
}

// GetStats walks the tree summing files, directories, and logical bytes.
// used_space is Σ metadata.size (logical), NOT block_size × Σ blocks_used.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := Stats{TotalSpace: e.cfg.TotalSize}
	for _, pn := range tree.Collect(e.tree.Root) {
		if pn.Node.IsDirectory() {
			stats.Directories++
		} else {
			stats.Files++
			stats.UsedSpace += pn.Node.Meta.Size
		}
	}
	stats.FreeSpace = stats.TotalSpace - stats.UsedSpace

	return stats
}
