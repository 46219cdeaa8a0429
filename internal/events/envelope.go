package events

// EventDataUploaded is published once a finalized upload has been
// registered and its object persisted.
const EventDataUploaded = "data_uploaded"

type Envelope struct {
	EventType       string         `json:"event_type"`
	Payload         map[string]any `json:"payload"`
	CreateTimestamp int64          `json:"create_timestamp"`
}
