package model

import (
	"fmt"
	"io"

	"github.com/psim-dev/psim/sim/stats"
)

// QueueReporter is implemented by nodes that own a request queue.
type QueueReporter interface {
	QueueLength() int
}

// UtilisationReporter is implemented by nodes that track busy time.
type UtilisationReporter interface {
	Utilisation() float64
}

// Resetter is implemented by anything whose statistics are discarded at the
// end of the warm-up period.
type Resetter interface {
	Reset()
}

// Reporter is implemented by nodes that print an end-of-run summary.
type Reporter interface {
	WriteReport(w io.Writer) error
}

// WriteReport writes the end-of-run summary for every node, in order. Nodes
// that are not Reporters get a name line only.
func WriteReport(w io.Writer, nodes []Node) error {
	for i, n := range nodes {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		var err error
		if r, ok := n.(Reporter); ok {
			err = r.WriteReport(w)
		} else {
			_, err = fmt.Fprintf(w, "Node %s\n", n.Name())
		}
		if err != nil {
			return fmt.Errorf("writing report for %s: %w", n.Name(), err)
		}
	}
	return nil
}

// WriteReport prints the client's counters and response-time statistics.
func (c *Client) WriteReport(w io.Writer) error {
	rw := &reportWriter{w: w}
	rw.printf("Client %s\n", c.Name())
	rw.printf("Sent %d requests, received %d replies (%s)\n", c.Sent(), c.Replies(), percent(c.Replies(), c.Sent()))
	if c.Faulty() > 0 {
		rw.printf("Also received %d faulty messages\n", c.Faulty())
	}
	if c.Refusals() > 0 {
		rw.printf("Also received %d refusals\n", c.Refusals())
	}
	rw.printf("Response time: %s\n", meanAndVariance(c.ResponseTime()))
	return rw.err
}

// WriteReport prints the server's counters, queue statistics and
// per-thread utilisation.
func (s *Server) WriteReport(w io.Writer) error {
	rw := &reportWriter{w: w}
	rw.printf("Server %s\n", s.Name())
	rw.printf("Received %d requests, sent %d replies (%s)\n", s.Received(), s.Replied(), percent(s.Replied(), s.Received()))
	if s.Faulty() > 0 {
		rw.printf("Also received %d faulty messages\n", s.Faulty())
	}
	if s.Refused() > 0 {
		rw.printf("Also refused %d requests due to queue overrun\n", s.Refused())
	}
	q := s.Queue()
	rw.printf("Current queue length: %d\n", q.Len())
	if s.sched.Now() > q.ResetTime() {
		rw.printf("Mean queue length: %.4f\n", q.MeanLength())
	} else {
		rw.printf("Mean queue length: n/a\n")
	}
	if q.WaitCount() > 0 {
		rw.printf("Mean time in queue: %.4f\n", q.MeanWait())
	} else {
		rw.printf("Mean time in queue: n/a\n")
	}
	rw.printf("Service time: %s\n", meanAndVariance(s.ServiceTime()))
	rw.printf("Utilisation: %.4f\n", s.Utilisation())
	for _, t := range s.Threads() {
		rw.printf("  Thread %s: received %d, replied %d, service time %s, utilisation %.4f\n",
			t, t.Received(), t.Replied(), meanAndVariance(t.ServiceTime()), t.Utilisation())
	}
	return rw.err
}

// reportWriter remembers the first write error so report code can print
// line after line without checking each one.
type reportWriter struct {
	w   io.Writer
	err error
}

func (rw *reportWriter) printf(format string, args ...any) {
	if rw.err != nil {
		return
	}
	_, rw.err = fmt.Fprintf(rw.w, format, args...)
}

func percent(num, den int64) string {
	if den == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", float64(num)/float64(den)*100)
}

// meanAndVariance formats a measure without tripping its panics on too few
// observations.
func meanAndVariance(m *stats.Measure) string {
	switch n := m.Count(); {
	case n == 0:
		return "no observations"
	case n == 1:
		return fmt.Sprintf("mean %.4f, variance n/a (1 observation)", m.Mean())
	default:
		return fmt.Sprintf("mean %.4f, variance %.4f (%d observations)", m.Mean(), m.Variance(), n)
	}
}
