package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/searchktools/pooled-server/core/http"
	"github.com/searchktools/pooled-server/core/router"
)

// fakeConn is a scripted io.ReadWriteCloser
type fakeConn struct {
	in       *bytes.Reader
	out      bytes.Buffer
	readErr  error
	writeErr error
	closeErr error
	closed   int
}

func newFakeConn(request string) *fakeConn {
	return &fakeConn{in: bytes.NewReader([]byte(request))}
}

func (c *fakeConn) Read(p []byte) (int, error) {
	if c.readErr != nil {
		return 0, c.readErr
	}
	return c.in.Read(p)
}

func (c *fakeConn) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	return c.out.Write(p)
}

func (c *fakeConn) Close() error {
	c.closed++
	return c.closeErr
}

// shortWriter accepts at most n bytes per call
type shortWriter struct {
	fakeConn
	n int
}

func (c *shortWriter) Write(p []byte) (int, error) {
	if len(p) > c.n {
		p = p[:c.n]
	}
	return c.out.Write(p)
}

func TestProcessor_Responses(t *testing.T) {
	proc := NewProcessor(router.Default())

	tests := []struct {
		name    string
		request string
		status  string
		body    string
	}{
		{"root", "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n", "HTTP/1.1 200 OK\r\n", "Hello, World!"},
		{"health", "GET /health HTTP/1.1\r\n\r\n", "HTTP/1.1 200 OK\r\n", "OK"},
		{"not found", "POST /missing HTTP/1.1\r\n\r\n", "HTTP/1.1 404 Not Found\r\n", "Not Found"},
		{"two fields", "GET /\r\n\r\n", "HTTP/1.1 500 Internal Server Error\r\n", "Internal Server Error"},
		{"not text", "GET /\xff\xfe HTTP/1.1\r\n", "HTTP/1.1 500 Internal Server Error\r\n", "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConn(tt.request)
			res, err := proc.Process(conn)
			if err != nil {
				t.Fatalf("Process: %v", err)
			}

			wire := conn.out.String()
			if !strings.HasPrefix(wire, tt.status) {
				t.Errorf("expected status line %q, got %q", tt.status, wire)
			}
			if !strings.HasSuffix(wire, "\r\n\r\n"+tt.body) {
				t.Errorf("expected body %q, got %q", tt.body, wire)
			}
			if res.Written != len(wire) {
				t.Errorf("expected Written=%d, got %d", len(wire), res.Written)
			}
			if conn.closed != 1 {
				t.Errorf("expected connection closed once, got %d", conn.closed)
			}
		})
	}
}

func TestProcessor_ParseFailureIsRecovered(t *testing.T) {
	proc := NewProcessor(router.Default())
	conn := newFakeConn("GARBAGE\r\n")

	res, err := proc.Process(conn)
	if err != nil {
		t.Fatalf("expected parse failure to be recovered, got %v", err)
	}
	if res.Status != 500 {
		t.Errorf("expected status 500, got %d", res.Status)
	}
	if !errors.Is(res.ParseErr, http.ErrMalformedRequestLine) {
		t.Errorf("expected ParseErr to be ErrMalformedRequestLine, got %v", res.ParseErr)
	}
}

func TestProcessor_EmptyConnection(t *testing.T) {
	proc := NewProcessor(router.Default())
	conn := newFakeConn("")

	res, err := proc.Process(conn)
	if err != nil {
		t.Fatalf("expected no error for empty connection, got %v", err)
	}
	if !res.Empty || res.Status != 0 || res.Written != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
	if conn.out.Len() != 0 {
		t.Errorf("expected no response, got %q", conn.out.String())
	}
	if conn.closed != 1 {
		t.Errorf("expected connection closed, got %d closes", conn.closed)
	}
}

func TestProcessor_ReadError(t *testing.T) {
	proc := NewProcessor(router.Default())
	conn := newFakeConn("GET / HTTP/1.1\r\n")
	conn.readErr = errors.New("connection reset by peer")

	_, err := proc.Process(conn)
	var ioErr *IOError
	if !errors.As(err, &ioErr) || ioErr.Op != OpRead {
		t.Fatalf("expected read IOError, got %v", err)
	}
	if !errors.Is(err, ErrIO) {
		t.Errorf("expected %v to match ErrIO", err)
	}
	if !errors.Is(err, conn.readErr) {
		t.Errorf("expected %v to wrap the read error", err)
	}
	if conn.closed != 1 {
		t.Errorf("expected connection closed after read error, got %d", conn.closed)
	}
}

func TestProcessor_WriteError(t *testing.T) {
	proc := NewProcessor(router.Default())
	conn := newFakeConn("GET / HTTP/1.1\r\n")
	conn.writeErr = io.ErrClosedPipe

	res, err := proc.Process(conn)
	var ioErr *IOError
	if !errors.As(err, &ioErr) || ioErr.Op != OpWrite {
		t.Fatalf("expected write IOError, got %v", err)
	}
	if res.Status != 0 {
		t.Errorf("expected no status recorded on failed write, got %d", res.Status)
	}
	if conn.closed != 1 {
		t.Errorf("expected connection closed after write error, got %d", conn.closed)
	}
}

func TestProcessor_CloseError(t *testing.T) {
	proc := NewProcessor(router.Default())
	conn := newFakeConn("GET / HTTP/1.1\r\n")
	conn.closeErr = errors.New("close failed")

	res, err := proc.Process(conn)
	var ioErr *IOError
	if !errors.As(err, &ioErr) || ioErr.Op != OpClose {
		t.Fatalf("expected close IOError, got %v", err)
	}
	if res.Status != 200 {
		t.Errorf("expected response to be written before close, got %d", res.Status)
	}
}

func TestProcessor_ShortWrites(t *testing.T) {
	proc := NewProcessor(router.Default())
	conn := &shortWriter{fakeConn: *newFakeConn("GET / HTTP/1.1\r\n"), n: 7}

	res, err := proc.Process(conn)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.HasSuffix(conn.out.String(), "Hello, World!") || res.Written != conn.out.Len() {
		t.Errorf("expected full response across short writes, got %q", conn.out.String())
	}
}

func TestProcessor_TruncatesOversizedRequest(t *testing.T) {
	proc := NewProcessor(router.Default(), WithReadBufferSize(16))

	// Only the first 16 bytes are read: "GET / HTTP/1.1\r\n"
	conn := newFakeConn("GET / HTTP/1.1\r\nX-Padding: " + strings.Repeat("a", 100) + "\r\n\r\n")
	res, err := proc.Process(conn)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Status != 200 {
		t.Errorf("expected 200 for truncated request, got %d", res.Status)
	}
	if stats := proc.BufferStats(); stats.Size != 16 {
		t.Errorf("expected 16 byte buffers, got %d", stats.Size)
	}
}

func TestProcessor_ResponseLargerThanBuffer(t *testing.T) {
	r := router.New()
	long := strings.Repeat("x", 100)
	r.Add("GET", "/", router.Static(http.NewResponse(200, "OK", long)))
	proc := NewProcessor(r, WithReadBufferSize(32))

	conn := newFakeConn("GET / HTTP/1.1\r\n")
	if _, err := proc.Process(conn); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.HasSuffix(conn.out.String(), long) {
		t.Errorf("expected full body, got %q", conn.out.String())
	}
}

func BenchmarkProcessor_Process(b *testing.B) {
	proc := NewProcessor(router.Default())
	request := "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		proc.Process(newFakeConn(request))
	}
}
