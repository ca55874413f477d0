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
	"sort"
	"strings"

	"github.com/dissyslab/core/role"
	"github.com/oklog/ulid/v2"
)

// Compile validates spec and transforms it into an executable Plan: implicit
// fanout/fanin insertion, flattening of nested subgraphs, fixpoint boundary
// resolution, and channel/worker allocation, in that order. Compile is pure:
// it never mutates spec, and calling it again on the same spec yields an
// independent Plan with its own channels, suitable for running the same
// graph more than once.
func Compile(spec *GraphDef) (plan *Plan, err error) {
	if err = ValidateSpec(spec); err != nil {
		return nil, err
	}

	work := deepCopyGraph(spec)

	gen := newNameGen()
	insertFanoutFanin(work, gen)

	ctx := &flattenCtx{
		leaves:     map[string]*BlockDef{},
		composites: map[string]*GraphDef{},
	}
	flatten(work, "", ctx)

	resolved, err := resolveBoundaries(ctx)
	if err != nil {
		return nil, err
	}

	plan, err = allocatePlan(ctx.leaves, resolved, ctx.inserted)
	if err != nil {
		return nil, err
	}
	plan.RootName = spec.Name

	if err = ValidatePlan(plan); err != nil {
		return nil, err
	}

	return plan, nil
}

// deepCopyGraph recursively copies g so the Compiler can freely mutate its
// working tree (inserting Broadcast/Merge blocks) without touching the
// immutable specification the caller holds.
func deepCopyGraph(g *GraphDef) *GraphDef {
	cp := &GraphDef{
		Name:             g.Name,
		Children:         make(map[string]ChildSpec, len(g.Children)),
		Connections:      append([]Connection(nil), g.Connections...),
		ExternalInports:  append([]string(nil), g.ExternalInports...),
		ExternalOutports: append([]string(nil), g.ExternalOutports...),
	}

	for name, child := range g.Children {
		switch v := child.(type) {
		case *BlockDef:
			clone := *v
			cp.Children[name] = &clone
		case *GraphDef:
			cp.Children[name] = deepCopyGraph(v)
		}
	}

	return cp
}

// nameGen mints synthetic block names for compiler-inserted Broadcast/Merge
// blocks. The salt is a ulid minted once per Compile call, so a user name
// matching a generated name is practically impossible; no check is made for
// such a collision, and an inserted block would replace the child of that
// name.
type nameGen struct {
	salt    string
	counter int
}

func newNameGen() *nameGen {
	return &nameGen{salt: ulid.Make().String()}
}

func (g *nameGen) next(kind string) (name string) {
	g.counter++
	return fmt.Sprintf("__%s_%d_%s", kind, g.counter, g.salt)
}

// insertFanoutFanin is Compiler Step 1. It examines every graph in the tree
// (recursively) and, for every outport referenced by more than one
// connection, inserts a Broadcast block rewriting the edges through it; and
// symmetrically inserts an AsyncMerge block for every multiply-referenced
// inport. Insertion for different ports commutes, so fanout and fanin can
// each be computed as one pass over the (possibly already-rewritten by the
// other pass) connection list.
func insertFanoutFanin(g *GraphDef, gen *nameGen) {
	g.Connections = insertFanout(g, gen)
	g.Connections = insertFanin(g, gen)

	for _, child := range g.Children {
		if sub, ok := child.(*GraphDef); ok {
			insertFanoutFanin(sub, gen)
		}
	}
}

func insertFanout(g *GraphDef, gen *nameGen) (rewritten []Connection) {
	bySource := map[string][]int{}
	for i, c := range g.Connections {
		key := c.FromBlock + "\x00" + c.FromPort
		bySource[key] = append(bySource[key], i)
	}

	keys := sortedMultiKeys(bySource)
	handled := make(map[int]bool, len(g.Connections))

	for _, key := range keys {
		idxs := bySource[key]
		fromBlock, fromPort := splitKey(key)

		name := gen.next("broadcast")
		outports := make([]string, len(idxs))
		for i := range outports {
			outports[i] = fmt.Sprintf("out%d", i)
		}

		g.Children[name] = &BlockDef{
			Name:          name,
			Inports:       []string{"in"},
			Outports:      outports,
			DefaultInport: "in",
			Role:          role.Broadcast,
		}

		rewritten = append(rewritten, Connection{FromBlock: fromBlock, FromPort: fromPort, ToBlock: name, ToPort: "in"})
		for i, idx := range idxs {
			orig := g.Connections[idx]
			rewritten = append(rewritten, Connection{FromBlock: name, FromPort: outports[i], ToBlock: orig.ToBlock, ToPort: orig.ToPort})
			handled[idx] = true
		}
	}

	for i, c := range g.Connections {
		if !handled[i] {
			rewritten = append(rewritten, c)
		}
	}

	return rewritten
}

func insertFanin(g *GraphDef, gen *nameGen) (rewritten []Connection) {
	byDest := map[string][]int{}
	for i, c := range g.Connections {
		key := c.ToBlock + "\x00" + c.ToPort
		byDest[key] = append(byDest[key], i)
	}

	keys := sortedMultiKeys(byDest)
	handled := make(map[int]bool, len(g.Connections))

	for _, key := range keys {
		idxs := byDest[key]
		toBlock, toPort := splitKey(key)

		name := gen.next("merge")
		inports := make([]string, len(idxs))
		for i := range inports {
			inports[i] = fmt.Sprintf("in%d", i)
		}

		g.Children[name] = &BlockDef{
			Name:           name,
			Inports:        inports,
			Outports:       []string{"out"},
			DefaultOutport: "out",
			Role:           role.Merge,
		}

		rewritten = append(rewritten, Connection{FromBlock: name, FromPort: "out", ToBlock: toBlock, ToPort: toPort})
		for i, idx := range idxs {
			orig := g.Connections[idx]
			rewritten = append(rewritten, Connection{FromBlock: orig.FromBlock, FromPort: orig.FromPort, ToBlock: name, ToPort: inports[i]})
			handled[idx] = true
		}
	}

	for i, c := range g.Connections {
		if !handled[i] {
			rewritten = append(rewritten, c)
		}
	}

	return rewritten
}

func sortedMultiKeys(m map[string][]int) (keys []string) {
	for k, idxs := range m {
		if len(idxs) > 1 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func splitKey(key string) (a, b string) {
	parts := strings.SplitN(key, "\x00", 2)
	return parts[0], parts[1]
}

// flattenCtx accumulates the result of Compiler Step 2 across the whole
// graph tree: every leaf block under its fully-qualified name, every
// composite under its fully-qualified name (needed by Step 3 to recognize
// boundary edges), the flat (still boundary-bearing) connection list, and
// the names of every block Step 1 inserted.
type flattenCtx struct {
	leaves      map[string]*BlockDef
	composites  map[string]*GraphDef
	connections []Connection
	inserted    []string
}

func qualify(prefix, name string) (qualified string) {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// flatten is Compiler Step 2. qualPrefix is g's own fully-qualified name as
// seen from the root (empty for the root graph itself). Connections
// touching "external" are rewritten to reference qualPrefix — g's own
// qualified name — preserving the port, producing a pass-through edge that
// Step 3 collapses.
func flatten(g *GraphDef, qualPrefix string, ctx *flattenCtx) {
	for name, child := range g.Children {
		qname := qualify(qualPrefix, name)

		switch v := child.(type) {
		case *BlockDef:
			clone := *v
			clone.Name = qname
			ctx.leaves[qname] = &clone
			if v.Role == role.Broadcast || v.Role == role.Merge {
				ctx.inserted = append(ctx.inserted, qname)
			}
		case *GraphDef:
			ctx.composites[qname] = v
			flatten(v, qname, ctx)
		}
	}

	for _, c := range g.Connections {
		fromQ := c.FromBlock
		if c.FromBlock == ExternalNode {
			fromQ = qualPrefix
		} else {
			fromQ = qualify(qualPrefix, c.FromBlock)
		}

		toQ := c.ToBlock
		if c.ToBlock == ExternalNode {
			toQ = qualPrefix
		} else {
			toQ = qualify(qualPrefix, c.ToBlock)
		}

		ctx.connections = append(ctx.connections, Connection{
			FromBlock: fromQ, FromPort: c.FromPort,
			ToBlock: toQ, ToPort: c.ToPort,
		})
	}
}

// resolveBoundaries is Compiler Step 3: a fixpoint loop collapsing
// pass-through edges until every edge connects two leaf blocks directly.
// A composite boundary used as an inport and one used as an outport reduce
// to the same splice rule viewed from either side: whenever one edge ends
// at (composite, port) and another starts at (composite, port), replace
// both with a direct edge.
func resolveBoundaries(ctx *flattenCtx) (final []Connection, err error) {
	conns := ctx.connections

	isComposite := func(name string) bool {
		_, ok := ctx.composites[name]
		return ok
	}

	for {
		endsAt := map[string]int{}
		startsAt := map[string]int{}
		boundaryEdges := false

		for i, c := range conns {
			if isComposite(c.ToBlock) {
				endsAt[c.ToBlock+"\x00"+c.ToPort] = i
				boundaryEdges = true
			}
			if isComposite(c.FromBlock) {
				startsAt[c.FromBlock+"\x00"+c.FromPort] = i
				boundaryEdges = true
			}
		}

		if !boundaryEdges {
			return conns, nil
		}

		removed := map[int]bool{}
		var spliced []Connection

		for key, endIdx := range endsAt {
			startIdx, ok := startsAt[key]
			if !ok {
				continue
			}
			end, start := conns[endIdx], conns[startIdx]
			spliced = append(spliced, Connection{
				FromBlock: end.FromBlock, FromPort: end.FromPort,
				ToBlock: start.ToBlock, ToPort: start.ToPort,
			})
			removed[endIdx] = true
			removed[startIdx] = true
		}

		if len(spliced) == 0 {
			return nil, fmt.Errorf("%w: a declared external port is never reached by an outer connection", ErrInvalidTopology)
		}

		var next []Connection
		for i, c := range conns {
			if !removed[i] {
				next = append(next, c)
			}
		}
		conns = append(next, spliced...)
	}
}

// allocatePlan is Compiler Steps 4-5: one Channel per edge, bound into the
// PlanBlock on each end, plus a worker descriptor (role + callables) for
// every leaf. The plan owns a private abort signal that the Scheduler
// closes on failure termination; every channel allocated here watches it.
func allocatePlan(leaves map[string]*BlockDef, conns []Connection, inserted []string) (plan *Plan, err error) {
	plan = &Plan{byName: map[string]int{}}
	plan.abortCh = make(chan struct{})

	names := make([]string, 0, len(leaves))
	for name := range leaves {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := leaves[name]
		pb := &PlanBlock{
			ID:       len(plan.Blocks),
			Name:     name,
			Role:     def.Role,
			Def:      def,
			Inports:  map[string]*Channel{},
			Outports: map[string]*Channel{},
		}
		plan.byName[name] = pb.ID
		plan.Blocks = append(plan.Blocks, pb)
	}

	for _, c := range conns {
		fromBlock, ok := plan.Block(c.FromBlock)
		if !ok {
			return nil, fmt.Errorf("%w: connection references unknown block %q", ErrUnknownChild, c.FromBlock)
		}
		toBlock, ok := plan.Block(c.ToBlock)
		if !ok {
			return nil, fmt.Errorf("%w: connection references unknown block %q", ErrUnknownChild, c.ToBlock)
		}

		ch := NewChannel(DefaultChannelCapacity, plan.abortCh)
		fromBlock.Outports[c.FromPort] = ch
		toBlock.Inports[c.ToPort] = ch

		plan.Edges = append(plan.Edges, PlanEdge{
			FromBlock: c.FromBlock, FromPort: c.FromPort,
			ToBlock: c.ToBlock, ToPort: c.ToPort,
			Channel: ch,
		})
	}

	plan.Inserted = append([]string(nil), inserted...)
	return plan, nil
}
