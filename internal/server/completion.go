package server

import (
	"github.com/matkrin/ignorels/internal/completion"
	"github.com/matkrin/ignorels/internal/document"
	"github.com/matkrin/ignorels/internal/lsp"
)

// Handler for `textDocument/completion`. On error the response carries no
// items and the error is returned for the client log.
func handleCompletion(request *lsp.CompletionRequest, state *State) (*lsp.CompletionResponse, error) {
	completionList := []lsp.CompletionItem{}

	uri := request.Params.TextDocument.URI
	doc, err := document.Find(state.Documents, uri)
	if err != nil {
		response := lsp.NewCompletionResponse(request.ID, completionList)
		return &response, err
	}

	candidates, err := state.Resolver().Resolve(doc, request.Params.Position.Line)
	if err != nil {
		response := lsp.NewCompletionResponse(request.ID, completionList)
		return &response, err
	}

	for _, candidate := range candidates {
		completionList = append(completionList, completionItem(candidate))
	}

	response := lsp.NewCompletionResponse(request.ID, completionList)
	return &response, nil
}

func completionItem(candidate completion.Candidate) lsp.CompletionItem {
	kind := lsp.CompletionFile
	if candidate.IsDirectory {
		kind = lsp.CompletionFolder
	}
	return lsp.CompletionItem{
		Label:      candidate.Label,
		Kind:       kind,
		Detail:     candidate.Detail,
		InsertText: candidate.InsertText,
	}
}
