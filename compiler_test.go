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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileInsertsBroadcastForSharedOutport(t *testing.T) {
	src := NewSource("S", sourceFromSlice(nil))
	u := NewSink("U", func(Value) {})
	v := NewSink("V", func(Value) {})

	b := NewBuilder("g")
	require.NoError(t, b.AddEdge(src, u))
	require.NoError(t, b.AddEdge(src, v))
	g, err := b.Build()
	require.NoError(t, err)

	plan, err := Compile(g)
	require.NoError(t, err)

	require.Len(t, plan.Inserted, 1)
	assert.True(t, strings.HasPrefix(plan.Inserted[0], "__broadcast_"))

	desc := plan.Describe()
	assert.Len(t, desc.Channels, 3) // S->broadcast, broadcast->U, broadcast->V
}

func TestCompileInsertsMergeForSharedInport(t *testing.T) {
	s1 := NewSource("S1", sourceFromSlice(nil))
	s2 := NewSource("S2", sourceFromSlice(nil))
	sink := NewSink("C", func(Value) {})

	b := NewBuilder("g")
	require.NoError(t, b.AddEdge(s1, sink))
	require.NoError(t, b.AddEdge(s2, sink))
	g, err := b.Build()
	require.NoError(t, err)

	plan, err := Compile(g)
	require.NoError(t, err)

	require.Len(t, plan.Inserted, 1)
	assert.True(t, strings.HasPrefix(plan.Inserted[0], "__merge_"))
}

func TestPlanDescribeAndDOTGraph(t *testing.T) {
	src := NewSource("S", sourceFromSlice(nil))
	sink := NewSink("C", func(Value) {})

	b := NewBuilder("g")
	require.NoError(t, b.AddEdge(src, sink))
	g, err := b.Build()
	require.NoError(t, err)

	plan, err := Compile(g)
	require.NoError(t, err)

	desc := plan.Describe()
	assert.ElementsMatch(t, []string{"S", "C"}, desc.Blocks)
	require.Len(t, desc.Channels, 1)
	assert.Equal(t, 16, desc.Channels[0].Capacity)
	assert.Empty(t, desc.Inserted)

	dot := plan.DOTGraph()
	assert.True(t, strings.HasPrefix(dot, "digraph Plan {"))
	assert.Contains(t, dot, `"S" -> "C"`)
}

func TestCompiledPlanOnlyContainsLeafNames(t *testing.T) {
	inner := NewGraph("G",
		map[string]ChildSpec{"T": NewTransformer("T", func(in Value) (Value, bool) { return in, true })},
		[]Connection{
			{FromBlock: ExternalNode, FromPort: "in", ToBlock: "T", ToPort: "in"},
			{FromBlock: "T", FromPort: "out", ToBlock: ExternalNode, ToPort: "out"},
		},
		[]string{"in"}, []string{"out"},
	)
	src := NewSource("S", sourceFromSlice(nil))
	sink := NewSink("C", func(Value) {})

	b := NewBuilder("g")
	require.NoError(t, b.AddEdge(src, Port(inner, "in")))
	require.NoError(t, b.AddEdge(Port(inner, "out"), sink))
	g, err := b.Build()
	require.NoError(t, err)

	plan, err := Compile(g)
	require.NoError(t, err)

	for _, blk := range plan.Blocks {
		assert.NotContains(t, blk.Name, "external")
	}
	_, ok := plan.Block("G")
	assert.False(t, ok, "composite name must not survive flattening")
	_, ok = plan.Block("G.T")
	assert.True(t, ok)
}

// TestRoundTripPlanValidates is the round-trip testable property: the plan
// derived from a specification, re-validated, satisfies every structural
// invariant a fresh ValidatePlan check performs.
func TestRoundTripPlanValidates(t *testing.T) {
	src := NewSource("S", sourceFromSlice(nil))
	sink := NewSink("C", func(Value) {})

	b := NewBuilder("g")
	require.NoError(t, b.AddEdge(src, sink))
	g, err := b.Build()
	require.NoError(t, err)

	plan, err := Compile(g)
	require.NoError(t, err)
	assert.NoError(t, ValidatePlan(plan))
}
