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

// ExternalNode is the reserved child name denoting a graph's own boundary
// within its own connection list.
const ExternalNode = "external"

// Connection is a 4-tuple identifying a source and destination port within
// some graph's scope. FromBlock/ToBlock name a child of that graph, or
// ExternalNode for the enclosing graph's own boundary.
type Connection struct {
	FromBlock string
	FromPort  string
	ToBlock   string
	ToPort    string
}

// GraphDef is the user-facing declarative structure for a composite block:
// a named set of children (blocks or nested graphs), a connection list, and
// the external port names the composite exposes to its own parent. Once
// returned by Builder.Build or NewGraph, a GraphDef is never mutated.
type GraphDef struct {
	Name             string
	Children         map[string]ChildSpec
	Connections      []Connection
	ExternalInports  []string
	ExternalOutports []string
}

func (g *GraphDef) childName() (name string) { return g.Name }
func (g *GraphDef) isChild()                  {}

// NewGraph constructs a composite block from its children, internal
// connections, and the external ports it exposes to its own parent graph.
func NewGraph(name string, children map[string]ChildSpec, connections []Connection, externalInports, externalOutports []string) *GraphDef {
	return &GraphDef{
		Name:             name,
		Children:         children,
		Connections:      connections,
		ExternalInports:  append([]string(nil), externalInports...),
		ExternalOutports: append([]string(nil), externalOutports...),
	}
}

func (g *GraphDef) externalInportSet() map[string]bool {
	return toSet(g.ExternalInports)
}

func (g *GraphDef) externalOutportSet() map[string]bool {
	return toSet(g.ExternalOutports)
}
