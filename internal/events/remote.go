package events

// RemoteInvokeStart is published before a remote action is invoked.
type RemoteInvokeStart struct {
	Action string
}

// RemoteInvokeFinish is published after the invocation returns.
type RemoteInvokeFinish struct {
	Action string
	Err    error
}

// BackendFetch is published for every batched key load against a backend
// service.
type BackendFetch struct {
	Loader string
	Keys   int
}

// SchemaCache reports whether a merged schema request was served from the
// state store or rebuilt from the remote services.
type SchemaCache struct {
	Hit bool
}
