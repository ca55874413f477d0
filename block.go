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
	"strings"

	"github.com/dissyslab/core/log"
	"github.com/dissyslab/core/role"
)

// Logger is the structured logger handed to a block through its
// BlockContext, carrying the block's identity on every line.
type Logger = log.Logger

// Value is the payload carried between blocks. The runtime never inspects
// it; it is the block author's responsibility to keep side-channel control
// signals (end-of-stream, drop) out of the value space, which is exactly why
// both are carried out-of-band as a boolean ok result below rather than as a
// distinguished in-band sentinel value.
type Value = interface{}

// SourceFunc is the "next" half of a pull-based iterator: it returns one
// produced value per call, with ok == false signalling the iterator has
// exhausted (end-of-stream).
type SourceFunc func() (value Value, ok bool)

// TransformFunc maps one input value to zero or one output value. Returning
// ok == false is the drop signal: nothing is forwarded for that input.
type TransformFunc func(in Value) (out Value, ok bool)

// ZipTransformFunc is the run contract for a transformer with more than one
// inport: it receives one value per inport, in declared inport order, and
// returns zero or one output value. Each inport is an independent stream;
// the transformer is invoked once a fresh value has arrived on every one of
// them, zipping the streams in lock-step.
type ZipTransformFunc func(in []Value) (out Value, ok bool)

// SinkFunc consumes one value per call for side effect.
type SinkFunc func(in Value)

// Hook is a block lifecycle callback invoked once at startup or shutdown.
type Hook func(BlockContext) error

// BlockContext is handed to a block's Startup and Shutdown hooks. It is not
// available inside SourceFunc/TransformFunc/SinkFunc: those run purely
// value-in/value-out, so side information (logging, config) is scoped to
// the one-shot lifecycle hooks instead.
type BlockContext interface {
	// Name returns the block's fully-qualified path in the compiled plan.
	Name() (name string)
	// Logger returns a logger carrying this block's identity.
	Logger() (logger Logger)
	// Config returns the configuration subtree for this block.
	Config() (config Config)
}

// ChildSpec is implemented by anything that can be a named child of a
// GraphDef: a *BlockDef (leaf) or a *GraphDef (composite).
type ChildSpec interface {
	childName() (name string)
	isChild()
}

// BlockDef declares a leaf block: its name, port schema, role, one
// callable matching that role, and optional lifecycle hooks. It is an
// explicit struct with named fields rather than a keyword-argument
// constructor, so a partially-filled BlockDef is easy to spot in review.
type BlockDef struct {
	Name           string
	Inports        []string
	Outports       []string
	DefaultInport  string
	DefaultOutport string
	Role           role.Role

	Source        SourceFunc
	Transform     TransformFunc
	ZipTransform  ZipTransformFunc
	Sink          SinkFunc

	Startup  Hook
	Shutdown Hook
}

func (b *BlockDef) childName() (name string) { return b.Name }
func (b *BlockDef) isChild()                  {}

// NewSource declares a source block with a single outport named out,
// producing values from fn until fn signals end-of-stream.
func NewSource(name string, fn SourceFunc) *BlockDef {
	return &BlockDef{
		Name:           name,
		Outports:       []string{"out"},
		DefaultOutport: "out",
		Role:           role.Source,
		Source:         fn,
	}
}

// NewTransformer declares a single-input, single-output transformer block
// with inport "in" and outport "out".
func NewTransformer(name string, fn TransformFunc) *BlockDef {
	return &BlockDef{
		Name:           name,
		Inports:        []string{"in"},
		Outports:       []string{"out"},
		DefaultInport:  "in",
		DefaultOutport: "out",
		Role:           role.Transformer,
		Transform:      fn,
	}
}

// NewZipTransformer declares a multi-input transformer block: one inport
// per name in inports, a single outport "out", zipping one value from each
// inport per invocation of fn.
func NewZipTransformer(name string, inports []string, fn ZipTransformFunc) *BlockDef {
	return &BlockDef{
		Name:           name,
		Inports:        append([]string(nil), inports...),
		Outports:       []string{"out"},
		DefaultOutport: "out",
		Role:           role.Transformer,
		ZipTransform:   fn,
	}
}

// NewSink declares a sink block with a single inport named in, consuming
// values from the stream for side effect.
func NewSink(name string, fn SinkFunc) *BlockDef {
	return &BlockDef{
		Name:          name,
		Inports:       []string{"in"},
		DefaultInport: "in",
		Role:          role.Sink,
		Sink:          fn,
	}
}

// inportSet and outportSet return the block's declared ports as sets, used
// by the Validator and Builder to check membership and uniqueness.
func (b *BlockDef) inportSet() map[string]bool {
	return toSet(b.Inports)
}

func (b *BlockDef) outportSet() map[string]bool {
	return toSet(b.Outports)
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// validName reports whether a child or port name is well-formed: non-empty,
// not the reserved "external" identifier, and free of the "." qualifier
// separator.
func validName(name string) bool {
	return name != "" && name != ExternalNode && !strings.Contains(name, ".")
}
