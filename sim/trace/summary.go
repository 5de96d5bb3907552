package trace

import "math"

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalMessages      int
	Requests           int
	Replies            int
	Refusals           int
	RefusalRate        float64 // refusals / requests
	MeanResponse       float64 // mean of reply send time minus request creation
	MaxResponse        float64
	UniqueTargets      int
	TargetDistribution map[string]int // server name → count of requests sent to it

	totalResponse float64
}

func newTraceSummary() *TraceSummary {
	return &TraceSummary{TargetDistribution: make(map[string]int)}
}

func (s *TraceSummary) add(r MessageRecord) {
	s.TotalMessages++
	switch r.Kind {
	case "request":
		s.Requests++
		s.TargetDistribution[r.Server]++
	case "reply":
		s.Replies++
		resp := r.Clock - r.Created
		s.totalResponse += resp
		s.MaxResponse = math.Max(s.MaxResponse, resp)
	case "refusal":
		s.Refusals++
	}
}

// Summarize computes aggregate statistics from a SimulationTrace. Counts
// include records dropped by MaxRecords.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	out := newTraceSummary()
	if st == nil || st.summary == nil {
		return out
	}
	*out = *st.summary
	out.TargetDistribution = make(map[string]int, len(st.summary.TargetDistribution))
	for k, v := range st.summary.TargetDistribution {
		out.TargetDistribution[k] = v
	}
	if out.Requests > 0 {
		out.RefusalRate = float64(out.Refusals) / float64(out.Requests)
	}
	if out.Replies > 0 {
		out.MeanResponse = out.totalResponse / float64(out.Replies)
	}
	out.UniqueTargets = len(out.TargetDistribution)
	return out
}
