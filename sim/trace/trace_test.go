package trace

import (
	"testing"
)

func TestSimulationTrace_RecordMessage_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for messages
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelMessages})

	// WHEN a request record is recorded
	st.RecordMessage(MessageRecord{MessageID: 1, Clock: 2.5, Kind: "request", Client: "c", Server: "s", Created: 2.5})

	// THEN the trace contains one record with correct data
	if len(st.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(st.Messages))
	}
	if st.Messages[0].MessageID != 1 || st.Messages[0].Server != "s" {
		t.Errorf("unexpected record %+v", st.Messages[0])
	}
}

func TestSimulationTrace_LevelNone_RecordsNothing(t *testing.T) {
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelNone})
	st.RecordMessage(MessageRecord{MessageID: 1, Kind: "request"})

	if st.Enabled() {
		t.Error("expected tracing disabled")
	}
	if len(st.Messages) != 0 {
		t.Errorf("expected no messages, got %d", len(st.Messages))
	}
	if s := Summarize(st); s.TotalMessages != 0 {
		t.Errorf("expected empty summary, got %d messages", s.TotalMessages)
	}
}

func TestSimulationTrace_NilIsDisabled(t *testing.T) {
	var st *SimulationTrace
	if st.Enabled() {
		t.Error("nil trace reported enabled")
	}
	st.RecordMessage(MessageRecord{}) // must not panic
}

func TestSimulationTrace_MultipleRecords_PreservesOrder(t *testing.T) {
	// GIVEN a trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelMessages})

	// WHEN multiple records are added
	st.RecordMessage(MessageRecord{MessageID: 1, Clock: 1, Kind: "request"})
	st.RecordMessage(MessageRecord{MessageID: 2, Clock: 2, Kind: "request"})
	st.RecordMessage(MessageRecord{MessageID: 1, Clock: 3, Kind: "reply"})

	// THEN order is preserved
	want := []uint64{1, 2, 1}
	for i, id := range want {
		if st.Messages[i].MessageID != id {
			t.Errorf("record %d: got message %d, want %d", i, st.Messages[i].MessageID, id)
		}
	}
}

func TestSimulationTrace_MaxRecords_CountsOverflow(t *testing.T) {
	// GIVEN a trace that keeps two records
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelMessages, MaxRecords: 2})

	// WHEN five requests are recorded
	for i := uint64(1); i <= 5; i++ {
		st.RecordMessage(MessageRecord{MessageID: i, Kind: "request", Server: "s"})
	}

	// THEN two are kept, three are counted as truncated, and the summary sees all five
	if len(st.Messages) != 2 {
		t.Errorf("expected 2 kept records, got %d", len(st.Messages))
	}
	if st.Truncated != 3 {
		t.Errorf("expected 3 truncated, got %d", st.Truncated)
	}
	if s := Summarize(st); s.Requests != 5 {
		t.Errorf("expected 5 requests in summary, got %d", s.Requests)
	}
}

func TestIsValidTraceLevel_ValidLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"none", true},
		{"messages", true},
		{"", true}, // empty defaults to none
		{"decisions", false},
		{"foobar", false},
		{"NONE", false}, // case-sensitive
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := IsValidTraceLevel(tt.level); got != tt.valid {
				t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.valid)
			}
		})
	}
}
