package hashing

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func brokenBcryptHasher(t *testing.T) *BcryptHasher {
	t.Helper()
	h, err := NewBcryptHasher(BcryptOptions{Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewBcryptHasher: %v", err)
	}
	// Same salt as the first published vector, different expected output.
	h.vectors = []bcryptVector{
		{"U*U", "$2a$05$CCCCCCCCCCCCCCCCCCCCC.VGOzA784oUp/Z0DY336zx7pLYAy0lwK"},
	}
	return h
}

func TestBcryptHasher_FailedSelfTestBlocksMake(t *testing.T) {
	h := brokenBcryptHasher(t)

	if err := h.SelfTest(); !errors.Is(err, ErrSelfTestFailed) {
		t.Fatalf("SelfTest = %v, want ErrSelfTestFailed", err)
	}
	if _, err := h.Make("pw"); !errors.Is(err, ErrSelfTestFailed) {
		t.Fatalf("Make = %v, want ErrSelfTestFailed", err)
	}

	ref, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	ok, err := h.Check("pw", string(ref))
	if err != nil || !ok {
		t.Errorf("Check after failed self-test = %v, %v; existing hashes must still verify", ok, err)
	}
}

func TestRegistry_RefusesFailedSelfTest(t *testing.T) {
	r := NewRegistry()
	good, _ := NewBcryptHasher(BcryptOptions{Cost: bcrypt.MinCost})
	if _, err := r.Install(good); err != nil {
		t.Fatalf("Install: %v", err)
	}

	if _, err := r.Install(brokenBcryptHasher(t)); !errors.Is(err, ErrSelfTestFailed) {
		t.Fatalf("Install = %v, want ErrSelfTestFailed", err)
	}
	active, ok := r.Active()
	if !ok || active != good {
		t.Error("refused install must leave the previous scheme active")
	}
}

func TestRunBcryptVectors_MalformedVector(t *testing.T) {
	err := runBcryptVectors([]bcryptVector{{"x", "$2a$05$short"}})
	if !errors.Is(err, ErrSelfTestFailed) {
		t.Errorf("got %v, want ErrSelfTestFailed", err)
	}
}

func TestParseParams(t *testing.T) {
	params, order, err := parseParams("ln=14,r=8,p=1")
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}
	if params["ln"] != 14 || params["r"] != 8 || params["p"] != 1 {
		t.Errorf("params = %v", params)
	}
	if len(order) != 3 || order[0] != "ln" || order[2] != "p" {
		t.Errorf("order = %v", order)
	}
	for _, bad := range []string{"", "ln", "=1", "ln=x", "ln=1,ln=2"} {
		if _, _, err := parseParams(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}
