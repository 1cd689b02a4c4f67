package opid

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNew(t *testing.T) {
	a := New()
	b := New()
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
	u, err := uuid.Parse(a)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Version() != 7 {
		t.Fatalf("version=%d", u.Version())
	}
}

func TestNew_FallsBackToV4(t *testing.T) {
	orig := newV7
	t.Cleanup(func() { newV7 = orig })
	newV7 = func() (uuid.UUID, error) { return uuid.Nil, errors.New("entropy") }

	u, err := uuid.Parse(New())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Version() != 4 {
		t.Fatalf("version=%d", u.Version())
	}
}
