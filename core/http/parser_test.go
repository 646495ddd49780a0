package http

import (
	"errors"
	"strconv"
	"strings"
	"testing"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		method string
		path   string
		proto  string
	}{
		{"simple", "GET / HTTP/1.1\r\n\r\n", "GET", "/", "HTTP/1.1"},
		{"with headers", "POST /missing HTTP/1.1\r\nHost: localhost\r\n\r\n", "POST", "/missing", "HTTP/1.1"},
		{"no crlf", "GET /health HTTP/1.0", "GET", "/health", "HTTP/1.0"},
		{"proto keeps remainder", "GET / HTTP/1.1 extra", "GET", "/", "HTTP/1.1 extra"},
		{"query is part of path", "GET /?a=1 HTTP/1.1\r\n", "GET", "/?a=1", "HTTP/1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(tt.input))
			if err != nil {
				t.Fatalf("ParseRequest(%q): %v", tt.input, err)
			}
			if req.Method != tt.method || req.Path != tt.path || req.Proto != tt.proto {
				t.Errorf("got %q %q %q, want %q %q %q",
					req.Method, req.Path, req.Proto, tt.method, tt.path, tt.proto)
			}
		})
	}
}

func TestParseRequest_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"empty", []byte(""), ErrEmptyRequest},
		{"blank first line", []byte("\r\nGET / HTTP/1.1\r\n"), ErrEmptyRequest},
		{"one field", []byte("GET\r\n"), ErrMalformedRequestLine},
		{"two fields", []byte("GET /\r\n"), ErrMalformedRequestLine},
		{"double space", []byte("GET  HTTP/1.1\r\n"), ErrEmptyRequest},
		{"trailing space", []byte("GET / \r\n"), ErrEmptyRequest},
		{"invalid utf8", []byte{'G', 'E', 'T', ' ', 0xff, 0xfe, ' ', 'H'}, ErrInvalidEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest(tt.input)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected %v to wrap ErrInvalidRequest", err)
			}
			if req != nil {
				t.Errorf("expected nil request, got %+v", req)
			}
		})
	}
}

func TestResponse_Bytes(t *testing.T) {
	resp := NewResponse(200, "OK", "Hello, World!")
	want := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Length: 13\r\n" +
		"Connection: close\r\n" +
		"\r\n" +
		"Hello, World!"

	if got := string(resp.Bytes()); got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestResponse_ContentLengthCountsBytes(t *testing.T) {
	body := "héllo ✓"
	wire := string(NewResponse(200, "OK", body).Bytes())

	header := HeaderContentLength + ": " + strconv.Itoa(len(body)) + "\r\n"
	if !strings.Contains(wire, header) {
		t.Errorf("expected %q in %q", header, wire)
	}
	if !strings.HasSuffix(wire, "\r\n\r\n"+body) {
		t.Errorf("expected body after blank line, got %q", wire)
	}
}

func TestCannedResponses(t *testing.T) {
	if r := InternalServerError(); r.Status != 500 || r.Reason != "Internal Server Error" {
		t.Errorf("unexpected 500 response: %+v", r)
	}
	if r := NotFound(); r.Status != 404 || r.Reason != "Not Found" || r.Body != "Not Found" {
		t.Errorf("unexpected 404 response: %+v", r)
	}
}

func BenchmarkParseRequest(b *testing.B) {
	data := []byte("GET /health HTTP/1.1\r\nHost: localhost\r\n\r\n")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ParseRequest(data)
	}
}

func BenchmarkResponse_AppendTo(b *testing.B) {
	resp := NewResponse(200, "OK", "Hello, World!")
	buf := make([]byte, 0, 256)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf = resp.AppendTo(buf[:0])
	}
}
