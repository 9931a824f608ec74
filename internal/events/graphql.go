package events

// GraphQLStart is published just before a GraphQL operation executes.
type GraphQLStart struct {
	OperationName string
	Query         string
}

// GraphQLFinish is published after execution, with the number of errors
// attached to the result.
type GraphQLFinish struct {
	ErrorCount int
}
