package httpmiddleware

import "testing"

func TestTokenBucketExhaustion(t *testing.T) {
	l := NewTokenBucket(3, 3)

	for i := 0; i < 3; i++ {
		if !l.allow("1.2.3.4") {
			t.Fatalf("request %d denied within capacity", i+1)
		}
	}
	if l.allow("1.2.3.4") {
		t.Error("request allowed past capacity")
	}

	// Another client has its own bucket.
	if !l.allow("5.6.7.8") {
		t.Error("fresh client denied")
	}
}

func TestTokenBucketDefaultsCapacity(t *testing.T) {
	l := NewTokenBucket(0, 10)
	if l.capacity != 10 {
		t.Errorf("capacity = %d, want 10", l.capacity)
	}
}
