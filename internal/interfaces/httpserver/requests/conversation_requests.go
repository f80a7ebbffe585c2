package requests

// RenameConversationRequest renames a conversation.
type RenameConversationRequest struct {
	Name string `json:"name" binding:"required"`
}

// SubmitMessageRequest submits a user message for generation. APIKey
// optionally overrides the server's provider credential for this request.
type SubmitMessageRequest struct {
	Model    string `json:"model" binding:"required"`
	Content  string `json:"content" binding:"required"`
	UseTools bool   `json:"use_tools"`
	APIKey   string `json:"api_key"`
}
