package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matkrin/ignorels/internal/buffer"
	"github.com/matkrin/ignorels/internal/document"
	"github.com/matkrin/ignorels/internal/ignore"
	"github.com/matkrin/ignorels/internal/lsp"
)

func findDiagnostics(doc *document.Document, enc buffer.Encoding) []lsp.Diagnostic {
	diagnostics := []lsp.Diagnostic{}

	origin, ok := doc.Origin()
	if !ok {
		return diagnostics
	}

	for i, line := range doc.Lines() {
		p, ok := ignore.Parse(line)
		if !ok {
			continue
		}
		lineRange := patternRange(uint32(i), line, enc)

		dir, name := p.Split()
		if dir != "" && !ignore.HasMeta(dir) && !isDir(filepath.Join(origin, filepath.FromSlash(dir))) {
			diagnostics = append(diagnostics, newDiagnostic(lineRange, lsp.DiagnosticWarning,
				fmt.Sprintf("Directory `%s` does not exist", dir)))
			continue
		}

		if _, err := ignore.Compile(name); err != nil {
			diagnostics = append(diagnostics, newDiagnostic(lineRange, lsp.DiagnosticError,
				fmt.Sprintf("Invalid pattern `%s`: %v", p.Raw, err)))
			continue
		}

		if p.Anchored && !ignore.HasMeta(p.Glob) {
			if _, err := os.Stat(filepath.Join(origin, filepath.FromSlash(p.Glob))); err != nil {
				diagnostics = append(diagnostics, newDiagnostic(lineRange, lsp.DiagnosticHint,
					fmt.Sprintf("`%s` matches nothing", p.Raw)))
			}
		}
	}

	return diagnostics
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// patternRange spans the trimmed pattern on a line.
func patternRange(line uint32, content string, enc buffer.Encoding) lsp.Range {
	content = strings.TrimRight(content, "\r\n")
	trimmed := strings.TrimRight(content, " \t")
	indent := len(trimmed) - len(strings.TrimLeft(trimmed, " \t"))
	return lsp.NewRange(line, enc.Len(trimmed[:indent]), line, enc.Len(trimmed))
}

func newDiagnostic(r lsp.Range, severity lsp.DiagnosticSeverity, message string) lsp.Diagnostic {
	return lsp.Diagnostic{
		Range:    r,
		Severity: severity,
		Source:   "ignorels",
		Message:  message,
	}
}
