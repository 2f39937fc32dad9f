// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dag

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func TestNewVertexIsPendingAndIdentityIsContentBound(t *testing.T) {
	v1 := NewVertex([]byte("payload"), nil, nil)
	require.Equal(t, Pending, v1.State())

	v2 := NewVertex([]byte("payload"), nil, nil)
	require.Equal(t, v1.ID(), v2.ID(), "identical payload and parents must hash identically")

	v3 := NewVertex([]byte("different"), nil, nil)
	require.NotEqual(t, v1.ID(), v3.ID())
}

func TestVertexIdentityBindsParents(t *testing.T) {
	parent := NewVertex([]byte("parent"), nil, nil)

	withParent := NewVertex([]byte("child"), []ids.ID{parent.ID()}, nil)
	withoutParent := NewVertex([]byte("child"), nil, nil)
	require.NotEqual(t, withParent.ID(), withoutParent.ID())
}

func TestVertexStateTransitions(t *testing.T) {
	v := NewVertex([]byte("x"), nil, nil)

	require.NoError(t, v.UpdateState(Verified))
	require.Equal(t, Verified, v.State())

	require.NoError(t, v.UpdateState(Final))
	require.Equal(t, Final, v.State())

	err := v.UpdateState(Pending)
	require.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestVertexCannotSkipVerifiedToReachFinal(t *testing.T) {
	v := NewVertex([]byte("x"), nil, nil)
	err := v.UpdateState(Final)
	require.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestVertexRejectedIsTerminal(t *testing.T) {
	v := NewVertex([]byte("x"), nil, nil)
	require.NoError(t, v.UpdateState(Rejected))
	require.ErrorIs(t, v.UpdateState(Verified), ErrInvalidStateTransition)
}
