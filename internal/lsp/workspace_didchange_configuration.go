package lsp

type DidChangeConfigurationNotification struct {
	Notification
	Params DidChangeConfigurationParams `json:"params"`
}

type DidChangeConfigurationParams struct {
	Settings ConfigurationSettings `json:"settings"`
}

// Clients nest server settings under the server name.
type ConfigurationSettings struct {
	Ignorels *Settings `json:"ignorels"`
}

type Settings struct {
	StripAnchorMarkers   *bool `json:"stripAnchorMarkers"`
	NormalizeBeforeSplit *bool `json:"normalizeBeforeSplit"`
}
