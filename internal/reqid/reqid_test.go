package reqid

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := NewContext(context.Background())
	if got := FromContext(ctx); got == 0 {
		t.Fatalf("expected a request id in context")
	}
	if got := FromContext(context.Background()); got != 0 {
		t.Fatalf("unexpected id %d in empty context", got)
	}
}

func TestIdsDiffer(t *testing.T) {
	a := FromContext(NewContext(context.Background()))
	b := FromContext(NewContext(context.Background()))
	if a == b {
		t.Fatalf("expected distinct request ids, got %d twice", a)
	}
}
