package dissyslab

/*
   Copyright 2018 Bruno Moura <brunotm@gmail.com>

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// DefaultChannelCapacity is the bounded capacity given to a channel when the
// compiler allocates it with no per-edge override.
const DefaultChannelCapacity = 16

// Message is the payload carried by a Channel: either a value or the
// terminal end-of-stream marker. Both are carried in-band, never by closing
// the underlying Go channel (see Channel.Send/Recv).
type Message struct {
	Value   Value
	EOS     bool
	TraceID uint64
}

// newMessage wraps v for delivery, stamping a TraceID used only for
// structured-log correlation. Delivery semantics never inspect the value
// itself; the runtime stays value-agnostic.
func newMessage(v Value) Message {
	return Message{Value: v, TraceID: xxhash.Sum64String(fmt.Sprint(v))}
}

// eosMessage is the end-of-stream marker.
func eosMessage() Message {
	return Message{EOS: true}
}

// Channel is a bounded FIFO carrying Messages between exactly one producer
// port and one consumer port. Closing the underlying Go channel is never
// used to signal termination: end-of-stream travels in-band as a Message,
// and abort propagates through a shared signal so a pending Send or Recv
// observes it as a "channel closed" condition without racing a literal
// close against an in-flight send.
type Channel struct {
	buf      chan Message
	abort    <-chan struct{}
	capacity int
}

// NewChannel allocates a channel with the given bounded capacity. abort is
// closed by the Scheduler on failure termination; every pending Send/Recv
// on every channel of the plan observes it at once.
func NewChannel(capacity int, abort <-chan struct{}) *Channel {
	if capacity < 1 {
		capacity = DefaultChannelCapacity
	}
	return &Channel{
		buf:      make(chan Message, capacity),
		abort:    abort,
		capacity: capacity,
	}
}

// Capacity returns the channel's bounded capacity.
func (c *Channel) Capacity() (capacity int) {
	return c.capacity
}

// Send enqueues msg, blocking while the channel is full. It returns false if
// the shared abort signal fires first, meaning the receiving end should be
// treated as gone; the sender must stop forwarding further messages.
func (c *Channel) Send(msg Message) (ok bool) {
	select {
	case c.buf <- msg:
		return true
	case <-c.abort:
		return false
	}
}

// Recv returns the next message. Buffered messages are always preferred
// over the abort signal, so a channel drains its backlog before a consumer
// observes termination; open is false only once the buffer is empty and
// abort has fired, which is treated as end-of-stream at the receiver.
func (c *Channel) Recv() (msg Message, open bool) {
	select {
	case msg = <-c.buf:
		return msg, true
	default:
	}

	select {
	case msg = <-c.buf:
		return msg, true
	case <-c.abort:
		return Message{}, false
	}
}
