package lsp

import "encoding/json"

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#textDocument_definition
type DefinitionRequest struct {
	Request
	Params DefinitionParams `json:"params"`
}

type DefinitionParams struct {
	TextDocumentPositionParams
}

type DefinitionResponse struct {
	Response
	Result []Location `json:"result"`
}

func NewDefinitionResponse(id json.RawMessage, locations []Location) DefinitionResponse {
	return DefinitionResponse{
		Response: Response{
			RPC: RPC_VERSION,
			ID:  id,
		},
		Result: locations,
	}
}
