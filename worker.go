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
	"sync"

	"github.com/dissyslab/core/role"
)

// runWorker dispatches a PlanBlock to the run loop for its role. It is the Go
// realization of spec §4.4's per-role run loop, implemented as plain
// functions selected by a role tag rather than virtual dispatch (Design Note
// "Inheritance in the source is accidental").
func runWorker(b *PlanBlock, abort <-chan struct{}) error {
	switch b.Role {
	case role.Source:
		return runSource(b, abort)
	case role.Transformer:
		if b.Def.ZipTransform != nil {
			return runZipTransformer(b, abort)
		}
		return runTransformer(b, abort)
	case role.Sink:
		return runSink(b, abort)
	case role.Broadcast:
		return runBroadcast(b, abort)
	case role.Merge:
		return runMerge(b, abort)
	default:
		return fmt.Errorf("%s: unsupported role %s", b.Name, b.Role)
	}
}

// sendAll emits msg on every declared outport of b, in the block's declared
// port order. It returns false as soon as one send observes abort; the
// caller must stop producing further output for this block.
func sendAll(b *PlanBlock, msg Message) (ok bool) {
	for _, name := range b.Def.Outports {
		if !b.Outports[name].Send(msg) {
			return false
		}
	}
	return true
}

// runSource is the Source run loop: repeatedly invoke the iterator, emitting
// each produced value on every declared outport, until the iterator signals
// end-of-stream, at which point the end-of-stream marker is emitted on every
// outport and the block returns.
func runSource(b *PlanBlock, abort <-chan struct{}) error {
	for {
		v, ok := b.Def.Source()
		if !ok {
			sendAll(b, eosMessage())
			return nil
		}
		if !sendAll(b, newMessage(v)) {
			return nil
		}
	}
}

// runTransformer is the single-input Transformer run loop: receive one value,
// apply the TransformFunc, forward the result unless it is the drop signal,
// and propagate end-of-stream on receipt of it.
func runTransformer(b *PlanBlock, abort <-chan struct{}) error {
	in := b.Inports[b.Def.Inports[0]]

	for {
		msg, open := in.Recv()
		if !open {
			return nil
		}
		if msg.EOS {
			sendAll(b, eosMessage())
			return nil
		}

		out, ok := b.Def.Transform(msg.Value)
		if !ok {
			continue
		}
		if !sendAll(b, newMessage(out)) {
			return nil
		}
	}
}

// runZipTransformer is the multi-input Transformer run loop (Design Note on
// multi-input transformers): each inport is an independent stream; one value
// is read from every inport, in declared order, before each invocation of the
// ZipTransformFunc. End-of-stream on any inport propagates immediately.
func runZipTransformer(b *PlanBlock, abort <-chan struct{}) error {
	inports := b.Def.Inports
	values := make([]Value, len(inports))

	for {
		for i, name := range inports {
			msg, open := b.Inports[name].Recv()
			if !open {
				return nil
			}
			if msg.EOS {
				sendAll(b, eosMessage())
				return nil
			}
			values[i] = msg.Value
		}

		out, ok := b.Def.ZipTransform(values)
		if !ok {
			continue
		}
		if !sendAll(b, newMessage(out)) {
			return nil
		}
	}
}

// runSink is the Sink run loop. A single-inport sink (the common case built
// by NewSink) reads its one inport directly. A sink declared with more than
// one inport behaves like an implicit merge feeding the SinkFunc: each inport
// is read concurrently and items are consumed in arrival order, the same
// fan-in rule the compiler-inserted AsyncMerge applies (see runMerge).
func runSink(b *PlanBlock, abort <-chan struct{}) error {
	if len(b.Def.Inports) == 1 {
		in := b.Inports[b.Def.Inports[0]]
		for {
			msg, open := in.Recv()
			if !open {
				return nil
			}
			if msg.EOS {
				return nil
			}
			b.Def.Sink(msg.Value)
		}
	}

	values, eos := fanIn(b, abort)
	for v := range values {
		b.Def.Sink(v)
	}
	<-eos
	return nil
}

// runBroadcast is the compiler-inserted Broadcast run loop: one inport, N
// outports, each input emitted to every outport before the next is received.
func runBroadcast(b *PlanBlock, abort <-chan struct{}) error {
	in := b.Inports[b.Def.Inports[0]]

	for {
		msg, open := in.Recv()
		if !open {
			return nil
		}
		if msg.EOS {
			sendAll(b, eosMessage())
			return nil
		}
		if !sendAll(b, msg) {
			return nil
		}
	}
}

// runMerge is the compiler-inserted AsyncMerge run loop: N inports read
// concurrently, each received value forwarded to the sole outport in arrival
// order, end-of-stream emitted only once every inport has signalled it.
func runMerge(b *PlanBlock, abort <-chan struct{}) error {
	out := b.Outports[b.Def.Outports[0]]
	values, eos := fanIn(b, abort)

	aborted := false
	for v := range values {
		if aborted {
			continue
		}
		if !out.Send(newMessage(v)) {
			// The shared abort signal has fired; keep draining values so
			// the upstream fan-in goroutines aren't left blocked on send,
			// but stop trying to forward further.
			aborted = true
		}
	}

	<-eos
	if !aborted {
		out.Send(eosMessage())
	}
	return nil
}

// fanIn concurrently drains every inport of b, forwarding each non-EOS value
// onto the returned channel in arrival order (non-deterministic across
// inports, per spec). The returned done channel is closed once every inport
// has signalled end-of-stream or the shared abort has fired; values is closed
// at the same time.
func fanIn(b *PlanBlock, abort <-chan struct{}) (values <-chan Value, done <-chan struct{}) {
	out := make(chan Value)
	finished := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(len(b.Def.Inports))

	for _, name := range b.Def.Inports {
		ch := b.Inports[name]
		go func() {
			defer wg.Done()
			for {
				msg, open := ch.Recv()
				if !open || msg.EOS {
					return
				}
				select {
				case out <- msg.Value:
				case <-abort:
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
		close(finished)
	}()

	return out, finished
}
