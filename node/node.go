// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package node binds the crypto, DAG, consensus, onion, mix and routing
// subsystems into one lifecycle-managed protocol node. Incoming transport
// messages are signature-verified and dispatched by kind; outgoing traffic
// is onion-wrapped, mixed, and handed to the external transport.
package node

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/luxfi/ids"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/luxfi/qudag/consensus"
	"github.com/luxfi/qudag/crypto/pq"
	"github.com/luxfi/qudag/dag"
	"github.com/luxfi/qudag/mix"
	"github.com/luxfi/qudag/onion"
	"github.com/luxfi/qudag/persist"
	"github.com/luxfi/qudag/router"
	"github.com/luxfi/qudag/shadow"
	"github.com/luxfi/qudag/telemetry"
)

// Transport is the external byte-moving collaborator. The node never opens
// sockets itself; it hands framed bytes to whatever satisfies this.
type Transport interface {
	Send(ctx context.Context, peer string, data []byte) error
}

// Inbound is one raw message arriving from the transport.
type Inbound struct {
	Peer string
	Data []byte
}

// session tracks one handshaken peer.
type session struct {
	sigPublicKey []byte
	sharedSecret [pq.MLKEMSharedKeySize]byte
	established  time.Time
	connected    bool
}

func (s *session) drop() {
	pq.Zeroize(s.sharedSecret[:])
}

// Node is the protocol lifecycle coordinator.
type Node struct {
	cfg Config
	log *zap.Logger

	id []byte

	kemKeys *pq.MLKEMKeyPair
	sigKeys *pq.MLDSAKeyPair

	store    *dag.Store
	engine   *consensus.Engine
	router   *router.Router
	mixer    *mix.Node
	resolver *shadow.KeyedResolver
	memory   *telemetry.MemTracker

	sampler   consensus.PeerSampler
	transport Transport
	inbound   chan Inbound
	delivered chan []byte

	mu       sync.RWMutex
	state    State
	sessions map[string]*session

	messagesProcessed atomic.Uint64
	bytesSent         atomic.Uint64
	bytesReceived     atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a node in the Initial state. sampler and transport are the
// external collaborators consensus and routing dispatch through; log may be
// nil. Nothing runs until Start.
func New(cfg Config, sampler consensus.PeerSampler, transport Transport, log *zap.Logger, reg prometheus.Registerer) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sampler == nil {
		return nil, fmt.Errorf("node: sampler must not be nil")
	}
	if transport == nil {
		return nil, fmt.Errorf("node: transport must not be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		log:       log,
		store:     dag.NewStore(reg),
		mixer:     mix.NewNode(mix.DefaultConfig(), nil),
		resolver:  shadow.NewKeyedResolver(shadow.NewResolver()),
		memory:    &telemetry.MemTracker{},
		sampler:   sampler,
		transport: transport,
		inbound:   make(chan Inbound, cfg.InboundDepth),
		delivered: make(chan []byte, 64),
		state:     Initial,
		sessions:  make(map[string]*session),
	}
	return n, nil
}

// State returns the node's current lifecycle state.
func (n *Node) State() State {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

func (n *Node) transition(next State) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !validLifecycle[n.state][next] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidLifecycle, n.state, next)
	}
	n.state = next
	return nil
}

// Start generates the node's keys, attaches the consensus engine, wires the
// router, and begins consuming inbound traffic.
func (n *Node) Start() error {
	kemKeys, err := pq.MLKEMKeyGen()
	if err != nil {
		return err
	}
	sigKeys, err := pq.MLDSAKeyGen()
	if err != nil {
		return err
	}

	pkBytes := sigKeys.Public.Bytes()
	id := pq.HashConcat([]byte("qudag-node-id"), pkBytes)

	engine, err := consensus.NewEngine(n.store, n.sampler, consensus.DefaultParams(), nil)
	if err != nil {
		return err
	}

	n.mu.Lock()
	if n.state != Initial {
		n.mu.Unlock()
		engine.Close()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidLifecycle, n.state, Running)
	}
	n.kemKeys = kemKeys
	n.sigKeys = sigKeys
	n.id = id[:]
	n.engine = engine
	n.router = router.NewRouter(string(n.id), n.resolver, n.transport)
	n.state = Running
	n.mu.Unlock()

	for _, peer := range n.cfg.InitialPeers {
		n.router.AddPeerConnection(string(n.id), peer)
	}

	n.wg.Add(3)
	go func() {
		defer n.wg.Done()
		n.inboundLoop()
	}()
	go func() {
		defer n.wg.Done()
		n.mixer.Run(n.ctx)
	}()
	go func() {
		defer n.wg.Done()
		n.egressLoop()
	}()

	n.log.Info("node started",
		zap.String("id", fmt.Sprintf("%x", n.id[:8])),
		zap.Uint16("port", n.cfg.Port))
	return nil
}

// Stop drains the node and moves it to Stopped. It is an error to stop a
// node that is not Running.
func (n *Node) Stop() error {
	if err := n.transition(Stopping); err != nil {
		return err
	}
	n.cancel()
	n.engine.Close()
	n.wg.Wait()

	n.mu.Lock()
	for _, sess := range n.sessions {
		sess.drop()
	}
	n.sessions = make(map[string]*session)
	n.mu.Unlock()

	if err := n.transition(Stopped); err != nil {
		return err
	}
	n.log.Info("node stopped")
	return nil
}

// Fail moves a running node to Errored. Embedders call it when an external
// collaborator (transport, storage) hits an unrecoverable failure; the node
// stays addressable for Status queries but processes no further traffic.
func (n *Node) Fail(cause error) {
	if err := n.transition(Errored); err != nil {
		return
	}
	n.cancel()
	n.log.Error("node entered error state", zap.Error(cause))
}

// Deliver enqueues a raw transport message for processing, blocking when
// the inbound channel is full until space frees or ctx expires.
func (n *Node) Deliver(ctx context.Context, in Inbound) error {
	select {
	case n.inbound <- in:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-n.ctx.Done():
		return fmt.Errorf("%w: node not running", ErrInvalidLifecycle)
	}
}

// Delivered returns the channel terminal onion payloads addressed to this
// node are published on.
func (n *Node) Delivered() <-chan []byte { return n.delivered }

// maxInboundWorkers bounds how many inbound messages are decapsulated and
// verified concurrently; crypto is the hot path here, not the channel.
const maxInboundWorkers = 8

func (n *Node) inboundLoop() {
	sem := semaphore.NewWeighted(maxInboundWorkers)
	var workers sync.WaitGroup
	defer workers.Wait()
	for {
		select {
		case in := <-n.inbound:
			if err := sem.Acquire(n.ctx, 1); err != nil {
				return
			}
			workers.Add(1)
			go func() {
				defer workers.Done()
				defer sem.Release(1)
				n.bytesReceived.Add(uint64(len(in.Data)))
				n.memory.CountAlloc(len(in.Data))
				if err := n.handleRaw(in); err != nil {
					n.log.Debug("message dropped", zap.String("peer", in.Peer), zap.Error(err))
				}
				n.memory.CountFree(len(in.Data))
			}()
		case <-n.ctx.Done():
			return
		}
	}
}

// handleRaw decodes, verifies, and dispatches one wire message. The
// signature is checked before anything else: handshake messages are
// self-certifying (the key arrives in the payload), every other kind is
// verified against the handshaken session key.
func (n *Node) handleRaw(in Inbound) error {
	msg, err := DecodeMessage(in.Data)
	if err != nil {
		return err
	}

	switch msg.Kind {
	case KindHandshake:
		return n.handleHandshake(in.Peer, msg)
	case KindData, KindControl, KindSync:
		if err := n.verifyAgainstSession(in.Peer, msg); err != nil {
			return err
		}
	default:
		return ErrUnknownKind
	}

	n.messagesProcessed.Add(1)
	switch msg.Kind {
	case KindData:
		return n.handleData(msg)
	case KindControl:
		return n.handleControl(msg)
	default:
		return n.handleSync(in.Peer, msg)
	}
}

func (n *Node) verifyAgainstSession(peer string, msg *Message) error {
	n.mu.RLock()
	sess, ok := n.sessions[peer]
	n.mu.RUnlock()
	if !ok || !sess.connected {
		return fmt.Errorf("%w: no session for peer", ErrInvalidSignature)
	}
	if n.cfg.SessionTimeout > 0 && time.Since(sess.established) > n.cfg.SessionTimeout {
		n.mu.Lock()
		sess.drop()
		delete(n.sessions, peer)
		n.mu.Unlock()
		return fmt.Errorf("%w: session expired", ErrInvalidSignature)
	}
	pk, err := pq.MLDSAPublicKeyFromBytes(sess.sigPublicKey)
	if err != nil {
		return ErrInvalidSignature
	}
	return msg.Verify(pk)
}

// handleHandshake establishes or completes a session. The initiating leg
// carries the peer's public keys; the replying leg additionally carries the
// KEM ciphertext our shared secret decapsulates from.
func (n *Node) handleHandshake(peer string, msg *Message) error {
	var hs handshakePayload
	if err := cbor.Unmarshal(msg.Payload, &hs); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	sigPub, err := pq.MLDSAPublicKeyFromBytes(hs.SigPublicKey)
	if err != nil {
		return fmt.Errorf("%w: bad handshake signing key", ErrInvalidFormat)
	}
	// Handshakes are self-certifying: the signature is checked against the
	// key carried in the payload, binding the session keys to the sender.
	if err := msg.Verify(sigPub); err != nil {
		return err
	}

	if len(hs.KEMCiphertext) == 0 {
		return n.answerHandshake(peer, hs)
	}
	return n.completeHandshake(peer, hs)
}

// answerHandshake is the responder leg: encapsulate to the initiator's KEM
// key, record the session, and reply with our keys plus the ciphertext.
func (n *Node) answerHandshake(peer string, hs handshakePayload) error {
	if len(hs.KEMPublicKey) != pq.MLKEMPublicKeySize {
		return fmt.Errorf("%w: bad handshake KEM key", ErrInvalidFormat)
	}
	var peerKEM pq.MLKEMPublicKey
	copy(peerKEM[:], hs.KEMPublicKey)

	ciphertext, sharedSecret, err := pq.MLKEMEncapsulate(peerKEM)
	if err != nil {
		return err
	}

	n.storeSession(peer, hs.SigPublicKey, sharedSecret)

	reply := NewMessage(KindHandshake, n.id, mustMarshal(handshakePayload{
		KEMPublicKey:  n.kemKeys.Public[:],
		SigPublicKey:  n.sigKeys.Public.Bytes(),
		KEMCiphertext: ciphertext[:],
	}))
	if err := reply.Sign(n.sigKeys.Secret); err != nil {
		return err
	}
	raw, err := reply.Encode()
	if err != nil {
		return err
	}
	n.router.AddPeerConnection(string(n.id), peer)
	return n.send(peer, raw)
}

// completeHandshake is the initiator leg: decapsulate the returned
// ciphertext to land on the same shared secret as the responder.
func (n *Node) completeHandshake(peer string, hs handshakePayload) error {
	if len(hs.KEMCiphertext) != pq.MLKEMCiphertextSize {
		return fmt.Errorf("%w: bad handshake ciphertext", ErrInvalidFormat)
	}
	var ciphertext [pq.MLKEMCiphertextSize]byte
	copy(ciphertext[:], hs.KEMCiphertext)

	sharedSecret, err := pq.MLKEMDecapsulate(n.kemKeys.Secret, ciphertext)
	if err != nil {
		return err
	}
	n.storeSession(peer, hs.SigPublicKey, sharedSecret)
	n.router.AddPeerConnection(string(n.id), peer)
	return nil
}

func (n *Node) storeSession(peer string, sigPublicKey []byte, sharedSecret [pq.MLKEMSharedKeySize]byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if old, ok := n.sessions[peer]; ok {
		old.drop()
	}
	n.sessions[peer] = &session{
		sigPublicKey: append([]byte(nil), sigPublicKey...),
		sharedSecret: sharedSecret,
		established:  time.Now().UTC(),
		connected:    true,
	}
}

// Handshake initiates a session with peer, sending our public keys.
func (n *Node) Handshake(ctx context.Context, peer string) error {
	msg := NewMessage(KindHandshake, n.id, mustMarshal(handshakePayload{
		KEMPublicKey: n.kemKeys.Public[:],
		SigPublicKey: n.sigKeys.Public.Bytes(),
	}))
	if err := msg.Sign(n.sigKeys.Secret); err != nil {
		return err
	}
	raw, err := msg.Encode()
	if err != nil {
		return err
	}
	return n.send(peer, raw)
}

// handleData peels one onion layer: terminal payloads are delivered to the
// application, non-terminal ones are forwarded to the next hop after a
// randomised delay. Failures drop the message silently — a relay must not
// reveal why peeling failed.
func (n *Node) handleData(msg *Message) error {
	res, err := onion.PeelOneHop(n.kemKeys.Secret, msg.Payload, time.Now().UTC(), onion.LayerWindow)
	if err != nil {
		return err
	}
	if res.Terminal {
		select {
		case n.delivered <- res.Payload:
		case <-n.ctx.Done():
		}
		return nil
	}

	delay, err := onion.RandomForwardDelay()
	if err == nil {
		select {
		case <-time.After(delay):
		case <-n.ctx.Done():
			return n.ctx.Err()
		}
	}

	forward := NewMessage(KindData, n.id, res.Payload)
	if err := forward.Sign(n.sigKeys.Secret); err != nil {
		return err
	}
	raw, err := forward.Encode()
	if err != nil {
		return err
	}
	return n.send(string(res.NextHop), raw)
}

// handleControl applies a topology command.
func (n *Node) handleControl(msg *Message) error {
	var ctl controlPayload
	if err := cbor.Unmarshal(msg.Payload, &ctl); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	switch ctl.Command {
	case "add_peer":
		n.router.AddPeerConnection(string(n.id), string(ctl.PeerID))
	case "remove_peer":
		n.router.RemovePeerConnection(string(n.id), string(ctl.PeerID))
		n.mu.Lock()
		if sess, ok := n.sessions[string(ctl.PeerID)]; ok {
			sess.drop()
			delete(n.sessions, string(ctl.PeerID))
		}
		n.mu.Unlock()
	default:
		return fmt.Errorf("%w: control command %q", ErrInvalidFormat, ctl.Command)
	}
	return nil
}

// handleSync ingests the peer's vertices into the DAG store and submits
// each newly inserted vertex to consensus. Vertices whose parents have not
// arrived yet are skipped; the peer's next sync round retries them.
func (n *Node) handleSync(peer string, msg *Message) error {
	var payload syncPayload
	if err := cbor.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	for _, sv := range payload.Vertices {
		parents := make([]ids.ID, 0, len(sv.Parents))
		ok := true
		for _, p := range sv.Parents {
			parent, err := ids.ToID(p)
			if err != nil {
				ok = false
				break
			}
			parents = append(parents, parent)
		}
		if !ok {
			continue
		}
		v := dag.NewVertex(sv.Payload, parents, sv.Signature)
		if err := n.store.AddNode(v); err != nil {
			continue
		}
		if err := n.engine.Submit(n.ctx, v); err != nil {
			n.log.Debug("consensus submit failed",
				zap.String("peer", peer), zap.Error(err))
		}
	}
	return nil
}

// SyncWith sends our current tips and their vertices to peer.
func (n *Node) SyncWith(ctx context.Context, peer string) error {
	tips := n.store.Tips()
	payload := syncPayload{}
	for _, tip := range tips {
		payload.Tips = append(payload.Tips, tip[:])
		if v, ok := n.store.GetNode(tip); ok {
			parents := make([][]byte, 0, len(v.Parents()))
			for _, p := range v.Parents() {
				parents = append(parents, p[:])
			}
			payload.Vertices = append(payload.Vertices, syncVertex{
				Parents:   parents,
				Payload:   v.Payload(),
				Signature: v.Signature(),
			})
		}
	}

	msg := NewMessage(KindSync, n.id, mustMarshal(payload))
	if err := msg.Sign(n.sigKeys.Secret); err != nil {
		return err
	}
	raw, err := msg.Encode()
	if err != nil {
		return err
	}
	return n.send(peer, raw)
}

// egressEnvelope frames one mixed message with its destination so the
// egress loop can dispatch batches without inspecting ciphertext.
type egressEnvelope struct {
	Peer string `cbor:"1,keyasint"`
	Data []byte `cbor:"2,keyasint"`
}

// SendAnonymous onion-wraps payload over route and submits it to the mix
// node; the egress loop dispatches it with the rest of its batch. The
// route's last hop is the final recipient.
func (n *Node) SendAnonymous(ctx context.Context, route []onion.RouteHop, payload []byte) error {
	wire, err := onion.BuildRoute(route, payload, time.Now().UTC())
	if err != nil {
		return err
	}

	msg := NewMessage(KindData, n.id, wire)
	if err := msg.Sign(n.sigKeys.Secret); err != nil {
		return err
	}
	raw, err := msg.Encode()
	if err != nil {
		return err
	}

	content := mustMarshal(egressEnvelope{Peer: string(route[0].ID), Data: raw})
	return n.mixer.Submit(ctx, mix.Message{
		Content:        content,
		Timestamp:      time.Now().UTC(),
		Kind:           mix.KindReal,
		NormalizedSize: mix.NormalizeSize(len(content)),
	})
}

// egressLoop drains mixed batches to the transport. Dummy messages are sent
// to a random connected peer so cover traffic reaches the wire.
func (n *Node) egressLoop() {
	for {
		select {
		case batch := <-n.mixer.Out():
			for _, m := range batch {
				n.dispatchMixed(m)
			}
		case <-n.ctx.Done():
			return
		}
	}
}

func (n *Node) dispatchMixed(m mix.Message) {
	switch m.Kind {
	case mix.KindReal:
		var env egressEnvelope
		if err := cbor.Unmarshal(m.Content, &env); err != nil {
			n.log.Debug("malformed egress envelope", zap.Error(err))
			return
		}
		if err := n.send(env.Peer, env.Data); err != nil {
			n.log.Debug("egress send failed", zap.String("peer", env.Peer), zap.Error(err))
		}
	default:
		peer, ok := n.randomConnectedPeer()
		if !ok {
			return
		}
		if err := n.send(peer, m.Content); err != nil {
			n.log.Debug("cover send failed", zap.Error(err))
		}
	}
}

func (n *Node) randomConnectedPeer() (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for peer, sess := range n.sessions {
		if sess.connected {
			return peer, true
		}
	}
	return "", false
}

func (n *Node) send(peer string, data []byte) error {
	ctx, cancel := context.WithTimeout(n.ctx, 30*time.Second)
	defer cancel()
	if err := n.transport.Send(ctx, peer, data); err != nil {
		return err
	}
	n.bytesSent.Add(uint64(len(data)))
	return nil
}

// Status is the point-in-time summary surfaced over RPC.
type Status struct {
	State             string `json:"state"`
	NodeID            string `json:"node_id"`
	Peers             int    `json:"peers"`
	Tips              int    `json:"tips"`
	VerticesProcessed uint64 `json:"vertices_processed"`
	MessagesProcessed uint64 `json:"messages_processed"`
	BytesSent         uint64 `json:"bytes_sent"`
	BytesReceived     uint64 `json:"bytes_received"`
}

// Status reports the node's current lifecycle and traffic counters.
func (n *Node) Status() Status {
	n.mu.RLock()
	state := n.state
	peers := len(n.sessions)
	n.mu.RUnlock()

	st := Status{
		State:             state.String(),
		NodeID:            fmt.Sprintf("%x", n.id),
		Peers:             peers,
		MessagesProcessed: n.messagesProcessed.Load(),
		BytesSent:         n.bytesSent.Load(),
		BytesReceived:     n.bytesReceived.Load(),
	}
	if n.store != nil {
		st.Tips = len(n.store.Tips())
		st.VerticesProcessed = n.store.TotalProcessed()
	}
	return st
}

// Snapshot assembles the persisted-state blob for the storage collaborator.
func (n *Node) Snapshot() *persist.State {
	n.mu.RLock()
	defer n.mu.RUnlock()

	s := persist.NewState(n.id)
	s.ProtocolState = n.state.String()
	s.Metrics = persist.Metrics{
		MessagesProcessed: n.messagesProcessed.Load(),
		VerticesProcessed: n.store.TotalProcessed(),
		BytesSent:         n.bytesSent.Load(),
		BytesReceived:     n.bytesReceived.Load(),
	}
	for _, tip := range n.store.Tips() {
		s.DagState.Tips = append(s.DagState.Tips, tip)
	}
	for peer := range n.sessions {
		s.Peers = append(s.Peers, persist.PeerRecord{
			ID:       []byte(peer),
			Address:  peer,
			LastSeen: uint64(time.Now().UTC().Unix()),
		})
	}
	return s
}

func mustMarshal(v any) []byte {
	raw, err := msgEncMode.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
