package core

import (
	"errors"
	"io"

	"github.com/searchktools/pooled-server/core/http"
	"github.com/searchktools/pooled-server/core/pools"
)

// Router produces the response for a parsed request
type Router interface {
	Route(req *http.Request) http.Response
}

// Result describes one processed connection
type Result struct {
	// Status is the status code written, 0 when nothing was written
	Status int
	// Written is the number of response bytes written
	Written int
	// Empty is set when the peer closed without sending anything
	Empty bool
	// ParseErr is the recovered parse failure behind a 500 response
	ParseErr error
	// Route is "METHOD PATH" of a parsed request
	Route string
}

// ProcessorOption configures a Processor
type ProcessorOption func(*Processor)

// WithReadBufferSize sets the read buffer capacity. Longer requests are truncated.
func WithReadBufferSize(n int) ProcessorOption {
	return func(p *Processor) {
		p.buffers = pools.NewBytePool(n)
	}
}

// Processor runs one read, respond, close exchange per connection
type Processor struct {
	router  Router
	buffers *pools.BytePool
}

// NewProcessor creates a processor answering through router
func NewProcessor(router Router, opts ...ProcessorOption) *Processor {
	p := &Processor{
		router:  router,
		buffers: pools.NewBytePool(pools.DefaultBufferSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BufferStats returns read buffer pool statistics
func (p *Processor) BufferStats() pools.BytePoolStats {
	return p.buffers.Stats()
}

// Process reads once from conn, writes the response and closes conn.
//
// A peer that sends nothing gets no response and is not an error. Parse
// failures become a 500 response. Only read and write failures are returned,
// as *IOError. conn is closed on every path.
func (p *Processor) Process(conn io.ReadWriteCloser) (res Result, err error) {
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = &IOError{Op: OpClose, Err: cerr}
		}
	}()

	buf := p.buffers.Get()
	defer p.buffers.Put(buf)

	n, rerr := conn.Read(*buf)
	if rerr != nil && !errors.Is(rerr, io.EOF) {
		return res, &IOError{Op: OpRead, Err: rerr}
	}
	if n == 0 {
		res.Empty = true
		return res, nil
	}

	var resp http.Response
	req, perr := http.ParseRequest((*buf)[:n])
	if perr != nil {
		res.ParseErr = perr
		resp = http.InternalServerError()
	} else {
		res.Route = req.Key()
		resp = p.router.Route(req)
	}

	// The request was copied out of buf, so the response is serialized into it
	written, werr := writeAll(conn, resp.AppendTo((*buf)[:0]))
	res.Written = written
	if werr != nil {
		return res, &IOError{Op: OpWrite, Err: werr}
	}
	res.Status = resp.Status
	return res, nil
}

// writeAll writes b in full, looping only on short writes without an error
func writeAll(w io.Writer, b []byte) (int, error) {
	total := 0
	for total < len(b) {
		n, err := w.Write(b[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}
