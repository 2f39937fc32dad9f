// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// NetworkAddress is the resolved destination a shadow domain decrypts to.
type NetworkAddress []byte

// ShadowResolver is the capability boundary for modelling
// ShadowAddressResolver as a polymorphic dependency: the router needs only
// to resolve a domain name to a NetworkAddress, not the resolver's storage
// or cryptography.
type ShadowResolver interface {
	ResolveAddress(ctx context.Context, domain string) (NetworkAddress, error)
}

// Transport is the outbound send capability the router dispatches chunks
// through; any transport satisfying it plugs in.
type Transport interface {
	Send(ctx context.Context, peer string, data []byte) error
}

// Router maintains the peer adjacency map, keyed by peer. It stores no
// per-pair path metrics; the latency and reliability on a RoutePath are
// computed by each FindPaths call.
type Router struct {
	mu        sync.RWMutex
	self      string
	adjacency map[string]map[string]bool

	resolver  ShadowResolver
	transport Transport
}

// NewRouter constructs a router identifying as self. resolver and transport
// may be nil and set later via SetResolver/SetTransport, or supplied here.
func NewRouter(self string, resolver ShadowResolver, transport Transport) *Router {
	return &Router{
		self:      self,
		adjacency: map[string]map[string]bool{self: {}},
		resolver:  resolver,
		transport: transport,
	}
}

// SetResolver wires the shadow address resolver.
func (r *Router) SetResolver(resolver ShadowResolver) { r.resolver = resolver }

// SetTransport wires the outbound transport.
func (r *Router) SetTransport(transport Transport) { r.transport = transport }

// AddPeerConnection records an (undirected) connection between a and b.
func (r *Router) AddPeerConnection(a, b string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addEdgeLocked(a, b)
	r.addEdgeLocked(b, a)
}

func (r *Router) addEdgeLocked(from, to string) {
	if r.adjacency[from] == nil {
		r.adjacency[from] = make(map[string]bool)
	}
	r.adjacency[from][to] = true
}

// RemovePeerConnection removes the connection between a and b, if present.
func (r *Router) RemovePeerConnection(a, b string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.adjacency[a], b)
	delete(r.adjacency[b], a)
}

// Peers returns every peer the router currently knows of.
func (r *Router) Peers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeysFromMap(r.adjacency)
}

func sortedKeysFromMap(m map[string]map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FindShadowPaths resolves a shadow domain via the wired ShadowResolver,
// then selects 3 random known peers as a single onion route to it
// paths.
func (r *Router) FindShadowPaths(ctx context.Context, domain string) (*RoutePath, NetworkAddress, error) {
	if r.resolver == nil {
		return nil, nil, fmt.Errorf("router: no shadow resolver configured")
	}
	addr, err := r.resolver.ResolveAddress(ctx, domain)
	if err != nil {
		return nil, nil, err
	}

	intermediaries, err := r.pickRandomIntermediaries(3)
	if err != nil {
		return nil, nil, err
	}

	return &RoutePath{Hops: intermediaries}, addr, nil
}

func (r *Router) pickRandomIntermediaries(n int) ([]string, error) {
	r.mu.RLock()
	candidates := make([]string, 0, len(r.adjacency))
	for peer := range r.adjacency {
		if peer != r.self {
			candidates = append(candidates, peer)
		}
	}
	r.mu.RUnlock()

	if len(candidates) < n {
		return nil, ErrNoRoute
	}

	chosen := make([]string, 0, n)
	remaining := append([]string(nil), candidates...)
	for i := 0; i < n; i++ {
		idx, err := randIntN(len(remaining))
		if err != nil {
			return nil, err
		}
		chosen = append(chosen, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return chosen, nil
}

func randIntN(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("router: %w", err)
	}
	return int(v.Int64()), nil
}

// RouteMessage splits msg into len(paths) near-equal chunks, each prefixed
// with its encoded path, and dispatches them to the first hop of their
// respective path via the wired transport.
func (r *Router) RouteMessage(ctx context.Context, destination string, msg []byte) error {
	if len(msg) > MaxMessageSize {
		return ErrMessageTooLarge
	}
	if r.transport == nil {
		return fmt.Errorf("router: no transport configured")
	}

	paths, err := r.FindPaths(destination, DefaultMaxHops)
	if err != nil {
		return err
	}

	chunks := splitNearEqual(msg, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		framed := append(encodePath(paths[i].Hops), chunk...)
		firstHop := paths[i].Hops[0]
		g.Go(func() error {
			if sendErr := r.transport.Send(gctx, firstHop, framed); sendErr != nil {
				return fmt.Errorf("%w: %v", ErrChannelError, sendErr)
			}
			return nil
		})
	}
	return g.Wait()
}

// splitNearEqual divides data into n contiguous, near-equal-length chunks.
func splitNearEqual(data []byte, n int) [][]byte {
	if n <= 0 {
		return nil
	}
	chunkSize := (len(data) + n - 1) / n
	if chunkSize == 0 {
		chunkSize = 1
	}
	chunks := make([][]byte, 0, n)
	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[i:end])
	}
	for len(chunks) < n {
		chunks = append(chunks, nil)
	}
	return chunks
}

// encodePath canonically encodes a path as a 4-byte little-endian hop count
// followed by each hop as a length-prefixed string, mirroring the onion
// package's wire convention.
func encodePath(hops []string) []byte {
	var out []byte
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(hops)))
	out = append(out, count[:]...)
	for _, hop := range hops {
		var length [4]byte
		binary.LittleEndian.PutUint32(length[:], uint32(len(hop)))
		out = append(out, length[:]...)
		out = append(out, hop...)
	}
	return out
}
