package document

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/matkrin/ignorels/internal/buffer"
	"github.com/matkrin/ignorels/internal/utils"
)

// Document is one open text file. The URI is decoded once on creation; the
// buffer is guarded by the document's own lock.
type Document struct {
	URI  string
	Path string

	origin string

	mu      sync.RWMutex
	version int
	buffer  *buffer.Buffer
}

func New(uri string, version int, text string, opts ...buffer.Option) *Document {
	doc := &Document{
		URI:     uri,
		version: version,
		buffer:  buffer.New(text, opts...),
	}

	path, err := utils.UriToPath(uri)
	if err != nil {
		return doc
	}
	doc.Path = path
	if dir := filepath.Dir(path); dir != path {
		doc.origin = dir
	}
	return doc
}

// Origin returns the directory containing the document. It reports false when
// the URI has no parent directory.
func (d *Document) Origin() (string, bool) {
	return d.origin, d.origin != ""
}

func (d *Document) Version() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Line returns a copy of line n, including its terminator.
func (d *Document) Line(n uint32) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buffer.Line(n)
}

func (d *Document) Lines() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buffer.Lines()
}

func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buffer.String()
}

// Apply applies edits in order under the write lock, each against the result
// of the previous one. It stops at the first edit that fails; edits before it
// stay applied.
func (d *Document) Apply(version int, edits ...buffer.Edit) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, edit := range edits {
		if err := d.buffer.Apply(edit); err != nil {
			return fmt.Errorf("change %d of %d: %w", i+1, len(edits), err)
		}
	}
	d.version = version
	return nil
}
