// Package completion turns a cursor position on an ignore-file line into
// filesystem entries that could complete the path typed on that line.
package completion

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNoOriginDirectory    = errors.New("document has no parent directory")
	ErrDirectoryUnavailable = errors.New("directory unavailable")
)

// DirectoryUnavailableError is returned when the directory to complete in
// cannot be listed.
type DirectoryUnavailableError struct {
	Dir string
	Err error
}

func (e *DirectoryUnavailableError) Error() string {
	return fmt.Sprintf("cannot list %s: %v", e.Dir, e.Err)
}

func (e *DirectoryUnavailableError) Unwrap() error {
	return e.Err
}

func (e *DirectoryUnavailableError) Is(target error) bool {
	return target == ErrDirectoryUnavailable
}

type Options struct {
	// StripAnchorMarkers drops leading "/" and "!" before the line is split.
	StripAnchorMarkers bool
	// NormalizeBeforeSplit treats "\" as a separator when splitting the line.
	// Otherwise only "/" separates the directory from the fragment.
	NormalizeBeforeSplit bool
}

func DefaultOptions() Options {
	return Options{
		StripAnchorMarkers:   true,
		NormalizeBeforeSplit: false,
	}
}

// Fragment is the path typed on a line, split into the directory to list and
// the partial entry name.
type Fragment struct {
	// Dir is relative to the document's origin and uses "/" separators.
	Dir  string
	Name string
}

// ParseLine extracts the fragment from a single ignore-file line.
func ParseLine(line string, opts Options) Fragment {
	line = strings.TrimSpace(line)
	if opts.StripAnchorMarkers {
		line = strings.TrimLeft(line, "/!")
	}
	if opts.NormalizeBeforeSplit {
		line = strings.ReplaceAll(line, `\`, "/")
	}

	if strings.HasSuffix(line, "/") {
		return Fragment{Dir: line}
	}
	i := strings.LastIndex(line, "/")
	if i < 0 {
		return Fragment{Name: line}
	}
	return Fragment{Dir: line[:i+1], Name: line[i+1:]}
}

// Path joins the fragment's directory onto origin using native separators.
func (f Fragment) Path(origin string) string {
	return filepath.Join(origin, filepath.FromSlash(f.Dir))
}

type Candidate struct {
	Label       string
	IsDirectory bool
	// Detail is the full path of the entry.
	Detail string
	// InsertText is Label without the part of the fragment up to its last
	// ".", which clients treat as a word boundary. Labels that do not start
	// with that part are inserted whole.
	InsertText string
}

// FileSystem is the part of the filesystem the resolver reads.
type FileSystem interface {
	ReadDir(name string) ([]fs.DirEntry, error)
	Stat(name string) (fs.FileInfo, error)
}

type osFileSystem struct{}

func (osFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(name)
}

func (osFileSystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

// OSFileSystem reads the host filesystem.
var OSFileSystem FileSystem = osFileSystem{}

// Source is a document as seen by the resolver.
type Source interface {
	Line(n uint32) (string, error)
	Origin() (string, bool)
}

type Resolver struct {
	opts Options
	fsys FileSystem
}

func NewResolver(opts Options, fsys FileSystem) *Resolver {
	if fsys == nil {
		fsys = OSFileSystem
	}
	return &Resolver{opts: opts, fsys: fsys}
}

func (r *Resolver) Options() Options {
	return r.opts
}

// Resolve lists completion candidates for the given line of doc. Only the
// line read touches the document; the directory scan happens after it.
func (r *Resolver) Resolve(doc Source, line uint32) ([]Candidate, error) {
	content, err := doc.Line(line)
	if err != nil {
		return nil, err
	}
	origin, ok := doc.Origin()
	if !ok {
		return nil, ErrNoOriginDirectory
	}

	fragment := ParseLine(content, r.opts)
	return r.List(fragment.Path(origin), fragment.Name)
}

// List returns the entries of dir that may complete name, in the order the
// filesystem returns them.
func (r *Resolver) List(dir, name string) ([]Candidate, error) {
	entries, err := r.fsys.ReadDir(dir)
	if err != nil && len(entries) == 0 {
		return nil, &DirectoryUnavailableError{Dir: dir, Err: err}
	}

	wantHidden := strings.HasPrefix(name, ".")
	candidates := []Candidate{}
	for _, entry := range entries {
		label := entry.Name()
		if strings.HasPrefix(label, ".") != wantHidden {
			continue
		}

		path := filepath.Join(dir, label)
		isDir, ok := r.isDirectory(path, entry)
		if !ok {
			continue
		}

		candidates = append(candidates, Candidate{
			Label:       label,
			IsDirectory: isDir,
			Detail:      path,
			InsertText:  insertText(label, name),
		})
	}
	return candidates, nil
}

// isDirectory follows symlinks. It reports false for entries that vanished or
// cannot be inspected.
func (r *Resolver) isDirectory(path string, entry fs.DirEntry) (bool, bool) {
	if entry.Type()&fs.ModeSymlink != 0 {
		info, err := r.fsys.Stat(path)
		if err != nil {
			return false, false
		}
		return info.IsDir(), true
	}
	if _, err := entry.Info(); err != nil {
		return false, false
	}
	return entry.IsDir(), true
}

func insertText(label, name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 || !strings.HasPrefix(label, name[:i+1]) {
		return label
	}
	return label[i+1:]
}
