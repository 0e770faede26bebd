package llm

// StreamChunk is one piece of a streamed completion.
type StreamChunk struct {
	// Role is set on the first chunk of a response.
	Role string

	// Content is the text delta carried by this chunk.
	Content string

	// Finished marks the last chunk of a response.
	Finished bool

	// Error is set when the stream failed.
	Error error
}

// IsError reports whether the chunk carries a stream error.
func (c *StreamChunk) IsError() bool {
	return c != nil && c.Error != nil
}
