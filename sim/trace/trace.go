package trace

// TraceLevel controls the verbosity of message tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelMessages captures every request, reply and refusal.
	TraceLevelMessages TraceLevel = "messages"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:     true,
	TraceLevelMessages: true,
	"":                 true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level      TraceLevel
	MaxRecords int // records kept before further ones are only counted; 0 = unlimited
}

// SimulationTrace collects message records during a model run.
type SimulationTrace struct {
	Config    TraceConfig
	Messages  []MessageRecord
	Truncated int64 // records counted but not kept because MaxRecords was reached

	summary *TraceSummary // running totals, complete even when truncated
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:   config,
		Messages: make([]MessageRecord, 0),
		summary:  newTraceSummary(),
	}
}

// Enabled reports whether records are being collected.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelMessages
}

// RecordMessage appends a message record.
func (st *SimulationTrace) RecordMessage(record MessageRecord) {
	if !st.Enabled() {
		return
	}
	st.summary.add(record)
	if st.Config.MaxRecords > 0 && len(st.Messages) >= st.Config.MaxRecords {
		st.Truncated++
		return
	}
	st.Messages = append(st.Messages, record)
}
