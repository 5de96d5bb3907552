// Package model is a client/server queueing network built on the sim
// kernel: clients generate requests, servers queue them and serve them
// with a pool of threads sharing a fixed number of processors.
package model

import "fmt"

// Kind distinguishes the messages exchanged between clients and servers.
type Kind int

const (
	KindRequest Kind = iota
	KindReply
	KindRefusal
)

var kindNames = map[Kind]string{
	KindRequest: "request",
	KindReply:   "reply",
	KindRefusal: "refusal",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Message is a request or its answer. Replies and refusals keep the ID and
// creation time of the request they answer.
type Message struct {
	ID      uint64
	Kind    Kind
	Client  string
	Server  string
	Created float64
}

// answer derives a reply or refusal addressed back to m's client.
func (m *Message) answer(kind Kind) *Message {
	a := *m
	a.Kind = kind
	return &a
}

func (m *Message) String() string {
	return fmt.Sprintf("%s#%d(%s->%s)", m.Kind, m.ID, m.Client, m.Server)
}

// Network delivers messages between nodes. Delivery is instantaneous.
type Network interface {
	Send(m *Message)
	NextMessageID() uint64
}

// Node is a message endpoint: a client or a server.
type Node interface {
	Name() string
	Deliver(m *Message)
}
