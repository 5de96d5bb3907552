package model

import (
	"math/rand/v2"

	"github.com/sirupsen/logrus"

	"github.com/psim-dev/psim/sim"
	"github.com/psim-dev/psim/sim/dist"
	"github.com/psim-dev/psim/sim/stats"
)

// Client sends requests to randomly chosen servers and records the
// response time of every reply it receives.
type Client struct {
	name         string
	interarrival dist.Sampler
	pick         *rand.Rand
	destinations []string
	net          Network
	clock        stats.Clock

	sent, replies, refusals, faulty int64
	response                        *stats.Measure
}

// NewClient creates a client. pick chooses among destinations uniformly.
func NewClient(name string, interarrival dist.Sampler, destinations []string, pick *rand.Rand, net Network, clock stats.Clock) *Client {
	return &Client{
		name:         name,
		interarrival: interarrival,
		pick:         pick,
		destinations: append([]string(nil), destinations...),
		net:          net,
		clock:        clock,
		response:     stats.NewMeasure(),
	}
}

// Name returns the client's name.
func (c *Client) Name() string { return c.name }

// Run is the client's process body: wait an interarrival time, send a
// request, repeat.
func (c *Client) Run(p *sim.Proc) {
	for {
		p.Hold(c.interarrival.Next())
		dest := c.destinations[c.pick.IntN(len(c.destinations))]
		m := &Message{
			ID:      c.net.NextMessageID(),
			Kind:    KindRequest,
			Client:  c.name,
			Server:  dest,
			Created: p.Now(),
		}
		logrus.Debugf("[t=%g] client %s sends %s", p.Now(), c.name, m)
		c.sent++
		c.net.Send(m)
	}
}

// Deliver accepts a reply or refusal for one of this client's requests.
func (c *Client) Deliver(m *Message) {
	switch {
	case m.Kind == KindReply && m.Client == c.name:
		c.replies++
		c.response.Add(c.clock.Now() - m.Created)
	case m.Kind == KindRefusal && m.Client == c.name:
		c.refusals++
	default:
		logrus.Warnf("[t=%g] client %s ignored unexpected %s; check the model routing", c.clock.Now(), c.name, m)
		c.faulty++
	}
}

// Sent returns the number of requests sent since the last reset.
func (c *Client) Sent() int64 { return c.sent }

// Replies returns the number of replies received since the last reset.
func (c *Client) Replies() int64 { return c.replies }

// Refusals returns the number of refusals received since the last reset.
func (c *Client) Refusals() int64 { return c.refusals }

// Faulty returns the number of misrouted messages received.
func (c *Client) Faulty() int64 { return c.faulty }

// ResponseTime returns the request-to-reply time measure.
func (c *Client) ResponseTime() *stats.Measure { return c.response }

// Reset clears counters and the response time measure.
func (c *Client) Reset() {
	c.sent, c.replies, c.refusals, c.faulty = 0, 0, 0, 0
	c.response.Reset()
}
