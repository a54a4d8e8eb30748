package store

import (
	"context"
	"testing"
)

func TestStoreBootstrapPing(t *testing.T) {
	st := openTestStore(t)
	if err := st.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	// Bootstrap is idempotent.
	if err := st.Bootstrap(context.Background()); err != nil {
		t.Fatalf("re-bootstrap failed: %v", err)
	}
}
