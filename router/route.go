// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package router implements the peer adjacency map, disjoint-path discovery
// and chunked message dispatch.
package router

import (
	"sort"
	"time"
)

// RoutePath is a candidate path to a destination together with the measured
// quality used to rank it.
type RoutePath struct {
	Hops        []string
	Latency     time.Duration
	Reliability float64
}

// DefaultMinHops and DefaultMaxHops are the path-length bounds external
// route proposals are validated against.
const (
	DefaultMinHops = 3
	DefaultMaxHops = 10
)

// ValidatePath checks an externally proposed route: length within
// [minHops, maxHops], no duplicate hops, and every hop known to the router.
func (r *Router) ValidatePath(path RoutePath, minHops, maxHops int) error {
	if len(path.Hops) < minHops {
		return ErrPathTooShort
	}
	if len(path.Hops) > maxHops {
		return ErrPathTooLong
	}

	seen := make(map[string]bool, len(path.Hops))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, hop := range path.Hops {
		if seen[hop] {
			return ErrDuplicateHop
		}
		seen[hop] = true
		if _, known := r.adjacency[hop]; !known {
			return ErrUnknownHop
		}
	}
	return nil
}

// FindPaths runs a disjoint-path DFS from each neighbour of the router's
// own identity toward dst, preferring to return as many node-disjoint paths
// as it can find.
func (r *Router) FindPaths(dst string, maxHops int) ([]RoutePath, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.adjacency[dst]; !ok {
		return nil, ErrNoRoute
	}
	if dst == r.self {
		return nil, ErrNoRoute
	}

	used := map[string]bool{r.self: true}
	var paths []RoutePath

	neighbours := sortedKeys(r.adjacency[r.self])
	for _, neighbour := range neighbours {
		if used[neighbour] {
			continue
		}
		// Seed the search with every node already on a found path (except
		// dst), so the paths stay node-disjoint.
		visited := make(map[string]bool, len(used))
		for id := range used {
			if id != dst {
				visited[id] = true
			}
		}
		tail, ok := r.dfs(neighbour, dst, maxHops-1, visited)
		if !ok {
			continue
		}
		hops := append([]string{r.self}, tail...)
		paths = append(paths, RoutePath{
			Hops:        hops,
			Latency:     time.Duration(len(hops)) * time.Millisecond * 20,
			Reliability: 1.0 / float64(len(hops)),
		})
		for _, hop := range hops {
			used[hop] = true
		}
	}

	if len(paths) == 0 {
		return nil, ErrNoRoute
	}
	sort.Slice(paths, func(i, j int) bool { return len(paths[i].Hops) < len(paths[j].Hops) })
	return paths, nil
}

// dfs searches for a single path from current to dst, never revisiting a
// node in visited (which the caller seeds with nodes already claimed by
// other discovered paths, enforcing node-disjointness across the result set).
func (r *Router) dfs(current, dst string, hopsRemaining int, visited map[string]bool) ([]string, bool) {
	if current == dst {
		return []string{current}, true
	}
	if hopsRemaining <= 0 {
		return nil, false
	}
	visited[current] = true
	defer delete(visited, current)

	for _, next := range sortedKeys(r.adjacency[current]) {
		if visited[next] {
			continue
		}
		if tail, ok := r.dfs(next, dst, hopsRemaining-1, visited); ok {
			return append([]string{current}, tail...), true
		}
	}
	return nil, false
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
