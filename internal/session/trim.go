package session

// CharsPerToken is the approximate number of characters per token.
// A simple heuristic; actual tokenization varies by model.
const CharsPerToken = 4

// TrimHistory trims session history to fit within a token budget,
// preserving the most recent messages. Tool results are never stranded:
// whenever the oldest remaining message is a tool result, it is dropped
// along with any siblings until the window starts on a non-tool message,
// keeping tool-call/tool-result pairing intact.
func TrimHistory(messages []Message, maxTokens int) []Message {
	if maxTokens <= 0 || len(messages) == 0 {
		result := make([]Message, len(messages))
		copy(result, messages)
		return result
	}

	result := make([]Message, len(messages))
	copy(result, messages)

	for len(result) > 1 && EstimateTokens(result) > maxTokens {
		result = result[1:]
		for len(result) > 1 && result[0].Role == "tool" {
			result = result[1:]
		}
	}

	return result
}

// EstimateTokens estimates the token count for a slice of messages
// using the ~4 characters per token heuristic.
func EstimateTokens(messages []Message) int {
	totalChars := 0

	for _, msg := range messages {
		totalChars += len(msg.Role)
		totalChars += len(msg.Content)
		for _, tc := range msg.ToolCalls {
			totalChars += len(tc.ID) + len(tc.Name) + len(tc.Arguments)
		}
		totalChars += len(msg.ToolCallID)
		totalChars += len(msg.Name)
		totalChars += 20 // JSON structure overhead
	}

	tokens := totalChars / CharsPerToken
	tokens += len(messages) * 4 // per-message overhead

	return tokens
}

// EstimateTokensForContent estimates tokens for a single string
func EstimateTokensForContent(content string) int {
	return len(content) / CharsPerToken
}

// TrimToMessageCount returns the last n messages from the history
func TrimToMessageCount(messages []Message, maxCount int) []Message {
	if maxCount <= 0 || maxCount >= len(messages) {
		result := make([]Message, len(messages))
		copy(result, messages)
		return result
	}

	start := len(messages) - maxCount
	result := make([]Message, maxCount)
	copy(result, messages[start:])
	return result
}
