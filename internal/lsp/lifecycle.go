package lsp

import "encoding/json"

type ShutdownRequest struct {
	Request
}

type ShutdownResponse struct {
	Response
	Result *int `json:"result"`
}

func NewShutdownResponse(id json.RawMessage) ShutdownResponse {
	return ShutdownResponse{
		Response: Response{
			RPC: RPC_VERSION,
			ID:  id,
		},
		Result: nil,
	}
}
