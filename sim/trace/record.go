// Package trace provides message-trace recording for post-run analysis of a
// queueing model. This package has no dependencies on sim/ or sim/model/:
// it stores pure data types.
package trace

// MessageRecord captures one message as it was sent.
type MessageRecord struct {
	MessageID uint64
	Clock     float64 // virtual send time
	Kind      string  // "request", "reply" or "refusal"
	Client    string
	Server    string
	Created   float64 // creation time of the originating request
}
