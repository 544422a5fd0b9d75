package capture

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jasperwreed/msgstats/internal/models"
)

type messengerExport struct {
	Title        string               `json:"title"`
	Participants *[]models.Participant `json:"participants"`
	Messages     *[]models.RawMessage  `json:"messages"`
}

// MessengerParser decodes one message_N.json export file.
type MessengerParser struct {
	source string
}

func NewMessengerParser() *MessengerParser {
	return &MessengerParser{}
}

func NewMessengerParserWithPath(path string) *MessengerParser {
	return &MessengerParser{source: path}
}

// Parse reads a whole export and returns it as a raw batch. The raw bytes
// are kept on the batch so they can be archived alongside a stored run.
func (p *MessengerParser) Parse(r io.Reader) (*models.RawBatch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	if format := DetectFormat(data); format != FormatMessenger {
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}

	var export messengerExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}

	if export.Participants == nil {
		return nil, fmt.Errorf("export has no participants list")
	}
	if export.Messages == nil {
		return nil, fmt.Errorf("export has no messages list")
	}

	for i, msg := range *export.Messages {
		if msg.SenderName == "" {
			return nil, fmt.Errorf("message %d has no sender_name", i)
		}
		if msg.TimestampMs == nil {
			return nil, fmt.Errorf("message %d has no timestamp_ms", i)
		}
	}

	return &models.RawBatch{
		Source:       p.source,
		Title:        export.Title,
		Participants: *export.Participants,
		Messages:     *export.Messages,
		Raw:          data,
	}, nil
}
