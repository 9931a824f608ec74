package events

// HTTPStart is published when an incoming HTTP request begins processing.
type HTTPStart struct {
	Method string
	Path   string
}

// HTTPFinish is published when the request has been written out.
type HTTPFinish struct {
	Status int
}
