package http

import "strconv"

// Protocol version written on every status line
const Protocol = "HTTP/1.1"

// Header names and values
const (
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
	HeaderConnection    = "Connection"

	ContentTypeText = "text/plain; charset=utf-8"
)

// Response is a complete reply: status line plus a text body
type Response struct {
	Status int
	Reason string
	Body   string
}

// NewResponse creates a response
func NewResponse(status int, reason, body string) Response {
	return Response{Status: status, Reason: reason, Body: body}
}

// InternalServerError is substituted when a request cannot be parsed
func InternalServerError() Response {
	return NewResponse(500, "Internal Server Error", "Internal Server Error")
}

// NotFound is returned for unknown routes
func NotFound() Response {
	return NewResponse(404, "Not Found", "Not Found")
}

// AppendTo appends the wire form of r to dst
func (r Response) AppendTo(dst []byte) []byte {
	dst = append(dst, Protocol...)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(r.Status), 10)
	dst = append(dst, ' ')
	dst = append(dst, r.Reason...)
	dst = append(dst, "\r\n"...)

	dst = append(dst, HeaderContentType...)
	dst = append(dst, ": "...)
	dst = append(dst, ContentTypeText...)
	dst = append(dst, "\r\n"...)

	dst = append(dst, HeaderContentLength...)
	dst = append(dst, ": "...)
	dst = strconv.AppendInt(dst, int64(len(r.Body)), 10)
	dst = append(dst, "\r\n"...)

	dst = append(dst, HeaderConnection...)
	dst = append(dst, ": close\r\n\r\n"...)

	return append(dst, r.Body...)
}

// Bytes returns the wire form of r
func (r Response) Bytes() []byte {
	return r.AppendTo(make([]byte, 0, 128+len(r.Reason)+len(r.Body)))
}
