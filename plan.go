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
	"strings"

	"github.com/dissyslab/core/role"
)

// PlanBlock is one leaf (or compiler-inserted Broadcast/Merge) block in a
// compiled Plan, addressed by integer id rather than by pointer: the plan
// is a flat arena, not a pointer-linked mutable graph.
type PlanBlock struct {
	ID       int
	Name     string
	Role     role.Role
	Def      *BlockDef
	Inports  map[string]*Channel
	Outports map[string]*Channel
}

// PlanEdge is one allocated channel and the qualified (block, port) pair on
// each end of it.
type PlanEdge struct {
	FromBlock string
	FromPort  string
	ToBlock   string
	ToPort    string
	Channel   *Channel
}

// Plan is the compiler's executable output: a flat arena of leaf blocks, a
// flat edge list, and the names of every Broadcast/Merge block the compiler
// synthesized. It contains no reference to composites; every name is a leaf
// path.
type Plan struct {
	Blocks   []*PlanBlock
	byName   map[string]int
	Edges    []PlanEdge
	Inserted []string

	// abortCh is closed by RunPlan on failure termination: every Channel the
	// plan allocated watches it, so a pending Send/Recv anywhere in the plan
	// observes abort at once. It is single-use per Plan value; running the
	// same compiled Plan twice requires Compile-ing the spec again.
	abortCh chan struct{}

	// RootName is the name of the specification the plan was compiled from,
	// carried through for log correlation only.
	RootName string
}

// Block looks up a compiled block by its fully-qualified name.
func (p *Plan) Block(name string) (block *PlanBlock, ok bool) {
	i, ok := p.byName[name]
	if !ok {
		return nil, false
	}
	return p.Blocks[i], true
}

// ChannelDescriptor is one entry of a PlanDescription's channel list.
type ChannelDescriptor struct {
	FromBlock string
	FromPort  string
	ToBlock   string
	ToPort    string
	Capacity  int
}

// PlanDescription is the compile-time output for inspection tooling: a
// fixed set of fields, with no mandated serialization.
type PlanDescription struct {
	Blocks   []string
	Channels []ChannelDescriptor
	Inserted []string
}

// Describe renders the plan as a PlanDescription.
func (p *Plan) Describe() (description PlanDescription) {
	description.Blocks = make([]string, len(p.Blocks))
	for i, b := range p.Blocks {
		description.Blocks[i] = b.Name
	}

	description.Channels = make([]ChannelDescriptor, len(p.Edges))
	for i, e := range p.Edges {
		description.Channels[i] = ChannelDescriptor{
			FromBlock: e.FromBlock,
			FromPort:  e.FromPort,
			ToBlock:   e.ToBlock,
			ToPort:    e.ToPort,
			Capacity:  e.Channel.Capacity(),
		}
	}

	description.Inserted = append([]string(nil), p.Inserted...)
	return description
}

// DOTGraph renders the plan as a Graphviz digraph suitable for piping
// straight into the dot command line tool.
func (p *Plan) DOTGraph() (graph string) {
	sb := &strings.Builder{}
	sb.WriteString("digraph Plan {\nrankdir=LR;\n")

	for _, e := range p.Edges {
		fmt.Fprintf(sb, "%q -> %q\r\n", e.FromBlock, e.ToBlock)
	}

	sb.WriteString("}\n")
	return sb.String()
}
