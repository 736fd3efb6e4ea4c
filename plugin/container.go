package plugin

import "sync"

// Container is the surface a renderer draws into. The host owns it; a
// renderer holds one container at a time.
type Container interface {
	ID() string
	Size() (width, height int)
	Mount(content []byte, mimeType string) error
	Content() ([]byte, string)
	Clear()
}

// MemoryContainer keeps mounted content in memory. It is what headless
// hosts (CLI, diagnostics, tests) render into.
type MemoryContainer struct {
	id     string
	width  int
	height int

	mu      sync.RWMutex
	content []byte
	mime    string
	mounts  int
}

func NewMemoryContainer(id string, width, height int) *MemoryContainer {
	return &MemoryContainer{id: id, width: width, height: height}
}

func (c *MemoryContainer) ID() string { return c.id }

func (c *MemoryContainer) Size() (int, int) { return c.width, c.height }

func (c *MemoryContainer) Mount(content []byte, mimeType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = append([]byte(nil), content...)
	c.mime = mimeType
	c.mounts++
	return nil
}

func (c *MemoryContainer) Content() ([]byte, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]byte(nil), c.content...), c.mime
}

func (c *MemoryContainer) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = nil
	c.mime = ""
}

// Mounts counts Mount calls, useful to check that redraws happened.
func (c *MemoryContainer) Mounts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mounts
}

var _ Container = (*MemoryContainer)(nil)
