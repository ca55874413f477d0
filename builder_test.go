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
	"errors"
	"testing"

	"github.com/dissyslab/core/role"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderDefaultPorts(t *testing.T) {
	src := NewSource("S", sourceFromSlice(nil))
	sink := NewSink("C", func(Value) {})

	b := NewBuilder("g")
	require.NoError(t, b.AddEdge(src, sink))

	g, err := b.Build()
	require.NoError(t, err)
	assert.Len(t, g.Connections, 1)
	assert.Equal(t, Connection{FromBlock: "S", FromPort: "out", ToBlock: "C", ToPort: "in"}, g.Connections[0])
}

func TestBuilderExplicitPort(t *testing.T) {
	fork := &BlockDef{
		Name:     "F",
		Inports:  []string{"in"},
		Outports: []string{"left", "right"},
		Role:     role.Transformer,
		Transform: func(in Value) (Value, bool) {
			return in, true
		},
	}
	sink := NewSink("C", func(Value) {})

	b := NewBuilder("g")
	require.NoError(t, b.AddEdge(Port(fork, "right"), sink))
	g, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "right", g.Connections[0].FromPort)
}

func TestBuilderAmbiguousPort(t *testing.T) {
	fork := &BlockDef{
		Name:     "F",
		Inports:  []string{"in"},
		Outports: []string{"left", "right"},
		Role:     role.Transformer,
		Transform: func(in Value) (Value, bool) {
			return in, true
		},
	}
	sink := NewSink("C", func(Value) {})

	b := NewBuilder("g")
	err := b.AddEdge(fork, sink)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAmbiguousPort))
}

func TestBuilderUnknownPort(t *testing.T) {
	src := NewSource("S", sourceFromSlice(nil))
	sink := NewSink("C", func(Value) {})

	b := NewBuilder("g")
	err := b.AddEdge(Port(src, "nope"), sink)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownPort))
}

func TestBuilderDuplicateNameRejected(t *testing.T) {
	a := NewSource("dup", sourceFromSlice(nil))
	bBlock := NewSource("dup", sourceFromSlice(nil))
	sink := NewSink("C", func(Value) {})

	b := NewBuilder("g")
	require.NoError(t, b.AddEdge(a, sink))
	err := b.AddEdge(bBlock, sink)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateName))
}

func TestBuilderSameObjectTwiceAllowed(t *testing.T) {
	src := NewSource("S", sourceFromSlice(nil))
	sinkA := NewSink("A", func(Value) {})
	sinkB := NewSink("B", func(Value) {})

	b := NewBuilder("g")
	require.NoError(t, b.AddEdge(src, sinkA))
	require.NoError(t, b.AddEdge(src, sinkB))

	g, err := b.Build()
	require.NoError(t, err)
	assert.Len(t, g.Children, 3)
}
