package capture

import (
	"bytes"
	"encoding/json"
)

// FormatType represents the format of an export file
type FormatType int

const (
	FormatUnknown FormatType = iota
	FormatMessenger
)

func (f FormatType) String() string {
	switch f {
	case FormatMessenger:
		return "messenger"
	default:
		return "unknown"
	}
}

// DetectFormat checks whether content is a Messenger conversation export:
// a JSON object with both "participants" and "messages" members.
func DetectFormat(content []byte) FormatType {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return FormatUnknown
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &members); err != nil {
		return FormatUnknown
	}

	_, hasParticipants := members["participants"]
	_, hasMessages := members["messages"]
	if hasParticipants && hasMessages {
		return FormatMessenger
	}

	return FormatUnknown
}
