// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultConnectTimeout bounds the dial of a control connection.
const DefaultConnectTimeout = 30 * time.Second

// Client is a synchronous framed-RPC client. One request is in flight per
// Call; concurrent Calls serialise on the connection.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
}

// Dial connects to the server at addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	d := net.Dialer{Timeout: DefaultConnectTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return &Client{conn: conn}, nil
}

// Close tears down the control connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

// Call issues method with params and decodes the result into out (which
// may be nil to discard it). A structured error response is returned as
// *Error.
func (c *Client) Call(ctx context.Context, method string, params any, out any) error {
	var rawParams json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDecodeEncode, err)
		}
		rawParams = encoded
	}
	req := Request{ID: uuid.New(), Method: method, Params: rawParams}

	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}

	if err := WriteFrame(c.conn, &req); err != nil {
		return err
	}
	var resp Response
	if err := ReadFrame(c.conn, &resp); err != nil {
		return err
	}
	if resp.ID != req.ID {
		return fmt.Errorf("%w: response id mismatch", ErrDecodeEncode)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("%w: %v", ErrDecodeEncode, err)
		}
	}
	return nil
}
