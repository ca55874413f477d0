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

// PortRef is an explicit port reference, distinct from a bare ChildSpec
// reference, so an edge can address a non-default port by name rather than
// through dynamic attribute-style access.
type PortRef struct {
	Node ChildSpec
	Port string
}

// Port builds an explicit reference to the named port of node. Use it with
// Builder.AddEdge when a block or subgraph has no default port, or when an
// edge must address a non-default port explicitly.
func Port(node ChildSpec, name string) PortRef {
	return PortRef{Node: node, Port: name}
}
