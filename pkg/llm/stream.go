package llm

// StreamChunk represents a single chat.completion.chunk event in a streaming
// response.
type StreamChunk struct {
	ID      string         `json:"id,omitempty"`
	Model   string         `json:"model,omitempty"`
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice carries the incremental message fragment for one completion.
type StreamChoice struct {
	Index        int     `json:"index"`
	Delta        Message `json:"delta"`
	FinishReason *string `json:"finish_reason,omitempty"`
}

// Delta returns the text fragment of the first choice, or "" if there is none.
func (c *StreamChunk) Delta() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}

// Finished reports whether the first choice carries a finish reason.
func (c *StreamChunk) Finished() bool {
	return len(c.Choices) > 0 && c.Choices[0].FinishReason != nil && *c.Choices[0].FinishReason != ""
}
