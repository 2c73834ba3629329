package hashing_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/GehirnInc/crypt"

	"github.com/hasbyte1/go-ircservices/hashing"
)

func newTestCrypt3Hasher(t *testing.T) *hashing.Crypt3Hasher {
	t.Helper()
	h, err := hashing.NewCrypt3Hasher(hashing.DefaultCrypt3Options())
	if err != nil {
		t.Fatalf("NewCrypt3Hasher: %v", err)
	}
	return h
}

func TestNewCrypt3Hasher_InvalidRounds(t *testing.T) {
	for _, r := range []int{0, 999, 1000000000} {
		if _, err := hashing.NewCrypt3Hasher(hashing.Crypt3Options{Rounds: r}); !errors.Is(err, hashing.ErrInvalidOption) {
			t.Errorf("rounds %d: expected ErrInvalidOption, got %v", r, err)
		}
	}
}

func TestCrypt3Hasher_KnownAnswer(t *testing.T) {
	h := newTestCrypt3Hasher(t)
	// Published SHA-512-crypt reference vector.
	const stored = "$6$saltstring$svn8UoSVapNtMuq1ukKS4tPQd8iKwSMHWjl/O817G3uBnIFNjnQJuesI68u4OTLiBFdcbYEdFCoEOfaS35inz1"
	ok, err := h.Check("Hello world!", stored)
	if err != nil || !ok {
		t.Fatalf("Check(reference) = %v, %v", ok, err)
	}
	ok, _ = h.Check("Hello world", stored)
	if ok {
		t.Error("wrong password accepted")
	}
}

func TestCrypt3Hasher_MakeCheck(t *testing.T) {
	h := newTestCrypt3Hasher(t)
	hash, err := h.Make("hunter2")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if !strings.HasPrefix(hash, "$6$") || strings.Contains(hash, "rounds=") {
		t.Fatalf("unexpected format: %q", hash)
	}
	ok, err := h.Check("hunter2", hash)
	if err != nil || !ok {
		t.Errorf("Check(correct) = %v, %v", ok, err)
	}
	ok, _ = h.Check("hunter3", hash)
	if ok {
		t.Error("Check(wrong) = true")
	}
}

func TestCrypt3Hasher_Rounds(t *testing.T) {
	h, err := hashing.NewCrypt3Hasher(hashing.Crypt3Options{Rounds: 2000})
	if err != nil {
		t.Fatalf("NewCrypt3Hasher: %v", err)
	}
	hash, err := h.Make("pw")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if !strings.HasPrefix(hash, "$6$rounds=2000$") {
		t.Fatalf("unexpected format: %q", hash)
	}
	ok, err := newTestCrypt3Hasher(t).Check("pw", hash)
	if err != nil || !ok {
		t.Errorf("Check = %v, %v", ok, err)
	}
	info, err := h.Info(hash)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Params["method"] != "sha512" || info.Params["rounds"] != 2000 {
		t.Errorf("Info = %v", info.Params)
	}
}

func TestCrypt3Hasher_ReadsOlderMethods(t *testing.T) {
	h := newTestCrypt3Hasher(t)
	cases := []struct {
		c      crypt.Crypt
		salt   string
		method string
	}{
		{crypt.MD5, "$1$abcdefgh", "md5"},
		{crypt.SHA256, "$5$abcdefghijklmnop", "sha256"},
	}
	for _, tc := range cases {
		stored, err := tc.c.New().Generate([]byte("legacy-pw"), []byte(tc.salt))
		if err != nil {
			t.Fatalf("%s: Generate: %v", tc.method, err)
		}
		ok, err := h.Check("legacy-pw", stored)
		if err != nil || !ok {
			t.Errorf("%s: Check = %v, %v", tc.method, ok, err)
		}
		info, _ := h.Info(stored)
		if info.Params["method"] != tc.method {
			t.Errorf("%s: method = %v", tc.method, info.Params["method"])
		}
	}
}

func TestCrypt3Hasher_Check_Malformed(t *testing.T) {
	h := newTestCrypt3Hasher(t)
	if _, err := h.Check("pw", "$2b$04$abc"); !errors.Is(err, hashing.ErrAlgorithmMismatch) {
		t.Errorf("bcrypt input: got %v", err)
	}
	if _, err := h.Check("pw", "$6$"); !errors.Is(err, hashing.ErrInvalidHash) {
		t.Errorf("truncated input: got %v", err)
	}
}
