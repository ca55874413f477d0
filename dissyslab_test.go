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

import "sync"

// sourceFromSlice builds a SourceFunc that yields each element of vals in
// order, then signals end-of-stream.
func sourceFromSlice(vals []Value) SourceFunc {
	i := 0
	return func() (Value, bool) {
		if i >= len(vals) {
			return nil, false
		}
		v := vals[i]
		i++
		return v, true
	}
}

// collector is a concurrency-safe append-only sink target, mirroring the
// "sink C appending to a list R" shape of the spec's worked scenarios.
type collector struct {
	mu     sync.Mutex
	values []Value
}

func (c *collector) sink(v Value) {
	c.mu.Lock()
	c.values = append(c.values, v)
	c.mu.Unlock()
}

func (c *collector) snapshot() []Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Value, len(c.values))
	copy(out, c.values)
	return out
}
