package http

// Request is the parsed request line of one exchange
type Request struct {
	Method string
	Path   string
	Proto  string
}

// Key returns "METHOD PATH", the form used in logs and metrics
func (r *Request) Key() string {
	return r.Method + " " + r.Path
}
