// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"context"
	"encoding/json"
	"time"

	"github.com/luxfi/qudag/rpc"
)

// peerParams are the parameters of add_peer and remove_peer.
type peerParams struct {
	Address string `json:"address"`
}

// NetworkStats is the get_network_stats result.
type NetworkStats struct {
	Peers         int    `json:"peers"`
	BytesSent     uint64 `json:"bytes_sent"`
	BytesReceived uint64 `json:"bytes_received"`
	Tips          int    `json:"tips"`
}

// RegisterRPC binds the node's control methods on srv. start and stop drive
// the lifecycle; the rest are queries and topology commands.
func (n *Node) RegisterRPC(srv *rpc.Server) {
	srv.Register("start", func(ctx context.Context, params json.RawMessage) (any, error) {
		if err := n.Start(); err != nil {
			return nil, err
		}
		return map[string]string{"state": n.State().String()}, nil
	})
	srv.Register("stop", func(ctx context.Context, params json.RawMessage) (any, error) {
		if err := n.Stop(); err != nil {
			return nil, err
		}
		return map[string]string{"state": n.State().String()}, nil
	})
	srv.Register("get_status", func(ctx context.Context, params json.RawMessage) (any, error) {
		return n.Status(), nil
	})
	srv.Register("add_peer", func(ctx context.Context, params json.RawMessage) (any, error) {
		var p peerParams
		if err := json.Unmarshal(params, &p); err != nil || p.Address == "" {
			return nil, &rpc.Error{Code: rpc.CodeInvalidParams, Message: "address required"}
		}
		n.router.AddPeerConnection(string(n.id), p.Address)
		return map[string]bool{"added": true}, nil
	})
	srv.Register("remove_peer", func(ctx context.Context, params json.RawMessage) (any, error) {
		var p peerParams
		if err := json.Unmarshal(params, &p); err != nil || p.Address == "" {
			return nil, &rpc.Error{Code: rpc.CodeInvalidParams, Message: "address required"}
		}
		n.router.RemovePeerConnection(string(n.id), p.Address)
		return map[string]bool{"removed": true}, nil
	})
	srv.Register("list_peers", func(ctx context.Context, params json.RawMessage) (any, error) {
		return n.router.Peers(), nil
	})
	srv.Register("get_network_stats", func(ctx context.Context, params json.RawMessage) (any, error) {
		st := n.Status()
		return NetworkStats{
			Peers:         st.Peers,
			BytesSent:     st.BytesSent,
			BytesReceived: st.BytesReceived,
			Tips:          st.Tips,
		}, nil
	})
	srv.Register("test_network", func(ctx context.Context, params json.RawMessage) (any, error) {
		// Send a handshake to every peer with a session, reporting for each
		// whether the frame was handed to the transport within the deadline.
		// Replies are not awaited.
		deadline, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		results := make(map[string]bool)
		n.mu.RLock()
		peers := make([]string, 0, len(n.sessions))
		for peer := range n.sessions {
			peers = append(peers, peer)
		}
		n.mu.RUnlock()
		for _, peer := range peers {
			results[peer] = n.Handshake(deadline, peer) == nil
		}
		return results, nil
	})
}
