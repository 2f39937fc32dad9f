// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rpc implements the framed TCP control protocol the CLI
// collaborator drives: each frame is a 4-byte big-endian length prefix
// followed by one JSON request or response.
package rpc

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Error codes carried in structured responses.
const (
	CodeParse         = -32700
	CodeUnknownMethod = -32601
	CodeInvalidParams = -32602
	CodeExecution     = -32000
)

// MaxFrameSize bounds a single request or response frame.
const MaxFrameSize = 16 << 20

// Rpc error kinds. Transport failures surface to the dialer; everything
// else is replied to the peer as a structured Error.
var (
	ErrTransport    = errors.New("rpc: transport failure")
	ErrDecodeEncode = errors.New("rpc: frame decode/encode failure")
	ErrFrameTooBig  = errors.New("rpc: frame exceeds size limit")
)

// Request is one framed command.
type Request struct {
	ID     uuid.UUID       `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers a Request, carrying exactly one of Result or Error.
type Response struct {
	ID     uuid.UUID       `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Error is the structured error payload of a failed Response.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// WriteFrame writes one length-prefixed JSON frame to w.
func WriteFrame(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecodeEncode, err)
	}
	if len(payload) > MaxFrameSize {
		return ErrFrameTooBig
	}
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(payload)))
	if _, err := w.Write(length[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// ReadFrame reads one length-prefixed JSON frame from r into v.
func ReadFrame(r io.Reader, v any) error {
	var length [4]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	n := binary.BigEndian.Uint32(length[:])
	if n > MaxFrameSize {
		return ErrFrameTooBig
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecodeEncode, err)
	}
	return nil
}
