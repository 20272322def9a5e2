package server

import (
	"fmt"
	"strings"

	"github.com/matkrin/ignorels/internal/document"
	"github.com/matkrin/ignorels/internal/ignore"
	"github.com/matkrin/ignorels/internal/lsp"
)

// Handler for `textDocument/hover`: lists what the pattern on the line
// matches in its directory.
func handleHover(request *lsp.HoverRequest, state *State) (*lsp.HoverResponse, error) {
	uri := request.Params.TextDocument.URI
	doc, err := document.Find(state.Documents, uri)
	if err != nil {
		response := lsp.NewHoverResponse(request.ID, nil)
		return &response, err
	}

	matches, p := matchLine(doc, request.Params.Position.Line)
	if len(matches) == 0 {
		response := lsp.NewHoverResponse(request.ID, nil)
		return &response, nil
	}

	response := lsp.NewHoverResponse(request.ID, &lsp.HoverResult{
		Contents: lsp.MarkupContent{
			Kind:  lsp.MarkupKindMarkdown,
			Value: hoverMarkdown(p, matches),
		},
	})
	return &response, nil
}

// matchLine returns the entries matched by the pattern on line n. Missing
// lines, comments and unlistable directories match nothing.
func matchLine(doc *document.Document, n uint32) ([]ignore.Entry, ignore.Pattern) {
	origin, ok := doc.Origin()
	if !ok {
		return nil, ignore.Pattern{}
	}
	line, err := doc.Line(n)
	if err != nil {
		return nil, ignore.Pattern{}
	}
	p, ok := ignore.Parse(line)
	if !ok {
		return nil, ignore.Pattern{}
	}
	matches, err := ignore.Match(origin, p)
	if err != nil {
		return nil, p
	}
	return matches, p
}

func hoverMarkdown(p ignore.Pattern, matches []ignore.Entry) string {
	dir, _ := p.Split()
	if dir == "" {
		dir = "."
	}

	noun := "matches"
	if len(matches) == 1 {
		noun = "match"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%d %s** in `%s`\n\n", len(matches), noun, dir)
	for _, m := range matches {
		name := m.Name
		if m.IsDir {
			name += "/"
		}
		fmt.Fprintf(&sb, "- `%s`\n", name)
	}
	return sb.String()
}
