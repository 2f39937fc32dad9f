// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var errSendFailed = errors.New("send failed")

type stubTransport struct {
	mu  sync.Mutex
	got []struct {
		peer string
		data []byte
	}
	fail bool
}

func (s *stubTransport) Send(_ context.Context, peer string, data []byte) error {
	if s.fail {
		return errSendFailed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, struct {
		peer string
		data []byte
	}{peer, data})
	return nil
}

type stubResolver struct {
	addr NetworkAddress
	err  error
}

func (s *stubResolver) ResolveAddress(_ context.Context, _ string) (NetworkAddress, error) {
	return s.addr, s.err
}

func TestFindPathsDiamondTopology(t *testing.T) {
	r := NewRouter("A", nil, nil)
	r.AddPeerConnection("A", "B")
	r.AddPeerConnection("A", "C")
	r.AddPeerConnection("B", "D")
	r.AddPeerConnection("C", "D")

	paths, err := r.FindPaths("D", DefaultMaxHops)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, p := range paths {
		require.Equal(t, "A", p.Hops[0])
		require.Equal(t, "D", p.Hops[len(p.Hops)-1])
	}
}

func TestFindPathsNoRoute(t *testing.T) {
	r := NewRouter("A", nil, nil)
	r.AddPeerConnection("A", "B")
	_, err := r.FindPaths("Z", DefaultMaxHops)
	require.ErrorIs(t, err, ErrNoRoute)
}

func TestValidatePathRules(t *testing.T) {
	r := NewRouter("A", nil, nil)
	r.AddPeerConnection("A", "B")
	r.AddPeerConnection("B", "C")

	require.ErrorIs(t, r.ValidatePath(RoutePath{Hops: []string{"A", "B"}}, 3, 10), ErrPathTooShort)
	require.ErrorIs(t, r.ValidatePath(RoutePath{Hops: []string{"A", "B", "C", "A"}}, 1, 10), ErrDuplicateHop)
	require.ErrorIs(t, r.ValidatePath(RoutePath{Hops: []string{"A", "B", "X"}}, 1, 10), ErrUnknownHop)
	require.NoError(t, r.ValidatePath(RoutePath{Hops: []string{"A", "B", "C"}}, 1, 10))
}

func TestRouteMessageSplitsAcrossPaths(t *testing.T) {
	r := NewRouter("A", nil, nil)
	r.AddPeerConnection("A", "B")
	r.AddPeerConnection("A", "C")
	r.AddPeerConnection("B", "D")
	r.AddPeerConnection("C", "D")

	transport := &stubTransport{}
	r.SetTransport(transport)

	require.NoError(t, r.RouteMessage(context.Background(), "D", []byte("hello world")))

	transport.mu.Lock()
	defer transport.mu.Unlock()
	require.Len(t, transport.got, 2)
}

func TestRouteMessageRejectsOversized(t *testing.T) {
	r := NewRouter("A", nil, nil)
	r.SetTransport(&stubTransport{})
	big := make([]byte, MaxMessageSize+1)
	err := r.RouteMessage(context.Background(), "B", big)
	require.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestRouteMessageNoRoute(t *testing.T) {
	r := NewRouter("A", nil, nil)
	r.SetTransport(&stubTransport{})
	err := r.RouteMessage(context.Background(), "Z", []byte("x"))
	require.ErrorIs(t, err, ErrNoRoute)
}

func TestFindShadowPathsSelectsThreeIntermediaries(t *testing.T) {
	r := NewRouter("A", &stubResolver{addr: NetworkAddress("1.2.3.4:9000")}, nil)
	r.AddPeerConnection("A", "B")
	r.AddPeerConnection("A", "C")
	r.AddPeerConnection("A", "D")
	r.AddPeerConnection("A", "E")

	path, addr, err := r.FindShadowPaths(context.Background(), "example.dark")
	require.NoError(t, err)
	require.Len(t, path.Hops, 3)
	require.Equal(t, NetworkAddress("1.2.3.4:9000"), addr)
}

func TestRouteMessagePropagatesChannelError(t *testing.T) {
	r := NewRouter("A", nil, nil)
	r.AddPeerConnection("A", "B")
	r.SetTransport(&stubTransport{fail: true})

	err := r.RouteMessage(context.Background(), "B", []byte("hi"))
	require.ErrorIs(t, err, ErrChannelError)
}

func TestFindShadowPathsNotEnoughPeers(t *testing.T) {
	r := NewRouter("A", &stubResolver{addr: NetworkAddress("x")}, nil)
	r.AddPeerConnection("A", "B")

	_, _, err := r.FindShadowPaths(context.Background(), "example.dark")
	require.ErrorIs(t, err, ErrNoRoute)
}
