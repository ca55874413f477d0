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

import "fmt"

// Builder accepts a sequence of 2-tuple edges and produces a root-level
// Graph specification. Each side of an edge is either a bare ChildSpec
// (block or subgraph, resolved via its default port) or an explicit PortRef.
type Builder struct {
	name     string
	children map[string]ChildSpec
	edges    []Connection
}

// NewBuilder creates an edge Builder for a root-level graph named name.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:     name,
		children: make(map[string]ChildSpec),
	}
}

// AddEdge resolves from and to to (block, port) pairs and records the
// connection. from and to must each be a ChildSpec (*BlockDef or *GraphDef)
// or a PortRef built with Port(...).
func (b *Builder) AddEdge(from, to interface{}) (err error) {
	fromRef, err := b.resolve(from, true)
	if err != nil {
		return err
	}

	toRef, err := b.resolve(to, false)
	if err != nil {
		return err
	}

	b.edges = append(b.edges, Connection{
		FromBlock: fromRef.Node.childName(),
		FromPort:  fromRef.Port,
		ToBlock:   toRef.Node.childName(),
		ToPort:    toRef.Port,
	})

	return nil
}

// Build returns the Graph specification for every edge added so far.
// External ports are empty: Builder always produces a root-level graph.
func (b *Builder) Build() (g *GraphDef, err error) {
	if len(b.edges) == 0 {
		return nil, fmt.Errorf("%w: builder has no edges", ErrInvalidTopology)
	}

	children := make(map[string]ChildSpec, len(b.children))
	for name, child := range b.children {
		children[name] = child
	}

	return &GraphDef{
		Name:        b.name,
		Children:    children,
		Connections: append([]Connection(nil), b.edges...),
	}, nil
}

// resolve turns a bare ChildSpec or an explicit PortRef into a validated
// PortRef, registering the referenced child by name along the way.
func (b *Builder) resolve(node interface{}, sender bool) (ref PortRef, err error) {
	switch v := node.(type) {
	case PortRef:
		if err = b.register(v.Node); err != nil {
			return ref, err
		}
		ports, _ := portsOf(v.Node, sender)
		if !toSet(ports)[v.Port] {
			return ref, fmt.Errorf("%w: %q has no port %q (available: %v)",
				ErrUnknownPort, v.Node.childName(), v.Port, ports)
		}
		return v, nil

	case ChildSpec:
		if err = b.register(v); err != nil {
			return ref, err
		}
		ports, def := portsOf(v, sender)
		if def != "" {
			return Port(v, def), nil
		}
		if len(ports) == 1 {
			return Port(v, ports[0]), nil
		}
		return ref, fmt.Errorf("%w: %q: available ports %v", ErrAmbiguousPort, v.childName(), ports)

	default:
		return ref, fmt.Errorf("edge endpoint must be a ChildSpec or PortRef, got %T", node)
	}
}

// register adds node to the builder's child set, keyed by name. The same
// child object may be registered any number of times; two distinct objects
// sharing a name are rejected.
func (b *Builder) register(node ChildSpec) (err error) {
	name := node.childName()
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrReservedName, name)
	}

	if existing, ok := b.children[name]; ok {
		if existing != node {
			return fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
		return nil
	}

	b.children[name] = node
	return nil
}

// portsOf returns a ChildSpec's outports+default (sender) or inports+default
// (receiver). A subgraph's external outports/inports stand in for a block's
// own ports, so it resolves through the same rules as a leaf block; a
// subgraph has no declared default, so ambiguity resolution falls back to
// requiring exactly one candidate port.
func portsOf(node ChildSpec, sender bool) (ports []string, def string) {
	switch v := node.(type) {
	case *BlockDef:
		if sender {
			return v.Outports, v.DefaultOutport
		}
		return v.Inports, v.DefaultInport
	case *GraphDef:
		if sender {
			return v.ExternalOutports, ""
		}
		return v.ExternalInports, ""
	}
	return nil, ""
}
