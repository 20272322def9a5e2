package lsp

type MessageType int

const (
	MessageError MessageType = iota + 1
	MessageWarning
	MessageInfo
	MessageLog
)

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#window_logMessage
type LogMessageNotification struct {
	Notification
	Params LogMessageParams `json:"params"`
}

type LogMessageParams struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

func NewLogMessageNotification(messageType MessageType, message string) LogMessageNotification {
	return LogMessageNotification{
		Notification: Notification{
			RPC:    RPC_VERSION,
			Method: "window/logMessage",
		},
		Params: LogMessageParams{
			Type:    messageType,
			Message: message,
		},
	}
}
