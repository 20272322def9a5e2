package lsp

import "encoding/json"

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#textDocument_hover
type HoverRequest struct {
	Request
	Params HoverParams `json:"params"`
}

type HoverParams struct {
	TextDocumentPositionParams
}

// HoverResponse has a nil Result when there is nothing to show.
type HoverResponse struct {
	Response
	Result *HoverResult `json:"result"`
}

type HoverResult struct {
	Contents MarkupContent `json:"contents"`
	Range    *Range        `json:"range,omitempty"`
}

func NewHoverResponse(id json.RawMessage, result *HoverResult) HoverResponse {
	return HoverResponse{
		Response: Response{
			RPC: RPC_VERSION,
			ID:  id,
		},
		Result: result,
	}
}

type MarkupContent struct {
	Kind  MarkupKind `json:"kind"`
	Value string     `json:"value"`
}

type MarkupKind string

const (
	MarkupKindPlainText MarkupKind = "plaintext"
	MarkupKindMarkdown  MarkupKind = "markdown"
)
