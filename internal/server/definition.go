package server

import (
	"github.com/matkrin/ignorels/internal/document"
	"github.com/matkrin/ignorels/internal/lsp"
	"github.com/matkrin/ignorels/internal/utils"
)

// Handler for `textDocument/definition`: the files matched by the pattern on
// the line. Directories cannot be opened and are left out.
func handleDefinition(request *lsp.DefinitionRequest, state *State) (*lsp.DefinitionResponse, error) {
	locations := []lsp.Location{}

	uri := request.Params.TextDocument.URI
	doc, err := document.Find(state.Documents, uri)
	if err != nil {
		response := lsp.NewDefinitionResponse(request.ID, locations)
		return &response, err
	}

	matches, _ := matchLine(doc, request.Params.Position.Line)
	for _, m := range matches {
		if m.IsDir {
			continue
		}
		locations = append(locations, lsp.Location{
			URI:   utils.PathToURI(m.Path),
			Range: lsp.NewRange(0, 0, 0, 0),
		})
	}

	response := lsp.NewDefinitionResponse(request.ID, locations)
	return &response, nil
}
