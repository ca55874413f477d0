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

// ValidateSpec runs the build-time phase of the Validator: every structural
// invariant checked over the static, pre-compile graph specification. Port
// multiplicity greater than one is tolerated here: it is the raw shape that
// Compiler Step 1 (fanout/fanin insertion) consumes, not yet the
// exactly-one-connection invariant that holds only after compilation (see
// ValidatePlan). A port with zero connections is still a violation.
func ValidateSpec(g *GraphDef) (err error) {
	verr := &ValidationError{}
	validateGraph(g, verr, map[*GraphDef]bool{})
	return verr.errOrNil()
}

func validateGraph(g *GraphDef, verr *ValidationError, ancestry map[*GraphDef]bool) {
	if ancestry[g] {
		verr.add(ErrInvalidTopology, g.Name, "", "a composite cannot be its own descendant")
		return
	}

	next := make(map[*GraphDef]bool, len(ancestry)+1)
	for k := range ancestry {
		next[k] = true
	}
	next[g] = true

	for name, child := range g.Children {
		if !validName(name) {
			verr.add(ErrReservedName, name, "", `names must be non-empty, not "external", and contain no "."`)
		}
		if child.childName() != name {
			verr.add(ErrInvalidTopology, name, "", fmt.Sprintf("child registered as %q declares name %q", name, child.childName()))
		}

		switch v := child.(type) {
		case *BlockDef:
			validateBlockRole(v, verr)
			validatePortNames(v.Name, v.Inports, verr)
			validatePortNames(v.Name, v.Outports, verr)
		case *GraphDef:
			validateGraph(v, verr, next)
			validatePortNames(v.Name, v.ExternalInports, verr)
			validatePortNames(v.Name, v.ExternalOutports, verr)
		}
	}

	validateConnections(g, verr)
}

// validatePortNames checks that every port name in ports is non-empty and
// contains no "." (reserved for path qualification).
func validatePortNames(childName string, ports []string, verr *ValidationError) {
	for _, p := range ports {
		if p == "" || strings.Contains(p, ".") {
			verr.add(ErrReservedName, childName, p, `port names must be non-empty and contain no "."`)
		}
	}
}

func validateBlockRole(b *BlockDef, verr *ValidationError) {
	switch b.Role {
	case role.Source:
		if len(b.Inports) != 0 {
			verr.add(ErrInvalidTopology, b.Name, "", "a source must have zero inports")
		}
		if b.Source == nil {
			verr.add(ErrInvalidTopology, b.Name, "", "a source must provide a SourceFunc")
		}
	case role.Transformer:
		if len(b.Inports) == 0 || len(b.Outports) == 0 {
			verr.add(ErrInvalidTopology, b.Name, "", "a transformer must have at least one inport and one outport")
		}
		if b.Transform == nil && b.ZipTransform == nil {
			verr.add(ErrInvalidTopology, b.Name, "", "a transformer must provide a TransformFunc or ZipTransformFunc")
		}
		if len(b.Inports) > 1 && b.ZipTransform == nil {
			verr.add(ErrInvalidTopology, b.Name, "", "a transformer with more than one inport needs a ZipTransformFunc")
		}
	case role.Sink:
		if len(b.Inports) == 0 {
			verr.add(ErrInvalidTopology, b.Name, "", "a sink must have at least one inport")
		}
		if len(b.Outports) != 0 {
			verr.add(ErrInvalidTopology, b.Name, "", "a sink must have zero outports")
		}
		if b.Sink == nil {
			verr.add(ErrInvalidTopology, b.Name, "", "a sink must provide a SinkFunc")
		}
	}
}

// validateConnections checks port-existence, port-connectedness, and
// external-port-usage invariants for one graph's own connection list.
func validateConnections(g *GraphDef, verr *ValidationError) {
	inCount := map[string]int{}
	outCount := map[string]int{}
	extInSeen := map[string]bool{}
	extOutSeen := map[string]bool{}

	childPorts := func(name string) (ins, outs map[string]bool, ok bool) {
		child, exists := g.Children[name]
		if !exists {
			return nil, nil, false
		}
		switch v := child.(type) {
		case *BlockDef:
			return v.inportSet(), v.outportSet(), true
		case *GraphDef:
			return v.externalInportSet(), v.externalOutportSet(), true
		}
		return nil, nil, false
	}

	for _, c := range g.Connections {
		if c.FromBlock == ExternalNode {
			if !g.externalInportSet()[c.FromPort] {
				verr.add(ErrUnknownPort, ExternalNode, c.FromPort, "not a declared external inport of this graph")
			} else {
				extInSeen[c.FromPort] = true
			}
		} else {
			_, outs, ok := childPorts(c.FromBlock)
			switch {
			case !ok:
				verr.add(ErrUnknownChild, c.FromBlock, c.FromPort, "")
			case !outs[c.FromPort]:
				verr.add(ErrUnknownPort, c.FromBlock, c.FromPort, "not an outport of this child")
			default:
				outCount[c.FromBlock+"."+c.FromPort]++
			}
		}

		if c.ToBlock == ExternalNode {
			if !g.externalOutportSet()[c.ToPort] {
				verr.add(ErrUnknownPort, ExternalNode, c.ToPort, "not a declared external outport of this graph")
			} else {
				extOutSeen[c.ToPort] = true
			}
		} else {
			ins, _, ok := childPorts(c.ToBlock)
			switch {
			case !ok:
				verr.add(ErrUnknownChild, c.ToBlock, c.ToPort, "")
			case !ins[c.ToPort]:
				verr.add(ErrUnknownPort, c.ToBlock, c.ToPort, "not an inport of this child")
			default:
				inCount[c.ToBlock+"."+c.ToPort]++
			}
		}
	}

	for name := range g.Children {
		ins, outs, _ := childPorts(name)
		for p := range ins {
			if inCount[name+"."+p] == 0 {
				verr.add(ErrUnconnectedPort, name, p, "insert a merge to feed this inport, or connect it")
			}
		}
		for p := range outs {
			if outCount[name+"."+p] == 0 {
				verr.add(ErrUnconnectedPort, name, p, "insert a broadcast to drain this outport, or connect it")
			}
		}
	}

	for _, p := range g.ExternalInports {
		if !extInSeen[p] {
			verr.add(ErrUnconnectedPort, ExternalNode, p, "declared external inport never used as a connection source")
		}
	}
	for _, p := range g.ExternalOutports {
		if !extOutSeen[p] {
			verr.add(ErrUnconnectedPort, ExternalNode, p, "declared external outport never used as a connection destination")
		}
	}
}

// ValidatePlan runs the pre-execution phase of the Validator: every leaf
// block's ports must be bound to exactly one channel, and the plan must be
// connected (no orphan leaves). Cycles among leaves are permitted.
func ValidatePlan(p *Plan) (err error) {
	verr := &ValidationError{}

	for _, b := range p.Blocks {
		for _, port := range b.Def.Inports {
			if _, ok := b.Inports[port]; !ok {
				verr.add(ErrOrphanLeaf, b.Name, port, "inport is not bound to a channel")
			}
		}
		for _, port := range b.Def.Outports {
			if _, ok := b.Outports[port]; !ok {
				verr.add(ErrOrphanLeaf, b.Name, port, "outport is not bound to a channel")
			}
		}

		if len(b.Def.Inports) == 0 && len(b.Def.Outports) == 0 {
			verr.add(ErrOrphanLeaf, b.Name, "", "block has neither inports nor outports")
		}
	}

	if len(p.Blocks) > 0 && len(p.Edges) == 0 {
		verr.add(ErrInvalidTopology, "", "", "plan has blocks but no channels: disconnected graph")
	}

	return verr.errOrNil()
}
