package hashing_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hasbyte1/go-ircservices/digest"
	"github.com/hasbyte1/go-ircservices/hashing"
)

// memRecord is a Record that counts writes.
type memRecord struct {
	cred   string
	writes int
}

func (r *memRecord) Credential() string { return r.cred }
func (r *memRecord) SetCredential(s string) {
	r.cred = s
	r.writes++
}

// brokenMaker verifies like scrypt but cannot produce new credentials.
type brokenMaker struct{ hashing.Hasher }

func (brokenMaker) Make(string) (string, error) { return "", errors.New("out of memory") }

func newTestRegistry(t *testing.T, opts ...hashing.RegistryOption) *hashing.Registry {
	t.Helper()
	r := hashing.NewRegistry(opts...)
	md5h := newTestSaltedMD5Hasher(t)
	for _, h := range []hashing.Hasher{newTestCrypt3Hasher(t), md5h, newTestBcryptHasher(t)} {
		if err := r.AddLegacy(h); err != nil {
			t.Fatalf("AddLegacy: %v", err)
		}
	}
	if _, err := r.Install(newTestScryptHasher(t)); err != nil {
		t.Fatalf("Install: %v", err)
	}
	return r
}

// ──────────────────────────────────────────────────────────────────────────────
// Install / Restore
// ──────────────────────────────────────────────────────────────────────────────

func TestRegistry_InstallRestore(t *testing.T) {
	r := hashing.NewRegistry()
	if _, ok := r.Active(); ok {
		t.Fatal("new registry must have no active scheme")
	}

	bc := newTestBcryptHasher(t)
	first, err := r.Install(bc)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if first.Driver() != "" {
		t.Errorf("first handle should refer to no scheme, got %q", first.Driver())
	}

	sc := newTestScryptHasher(t)
	second, err := r.Install(sc)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if second.Driver() != hashing.DriverBcrypt {
		t.Errorf("second handle = %q, want bcrypt", second.Driver())
	}
	if a, _ := r.Active(); a != hashing.Hasher(sc) {
		t.Error("scrypt should be active")
	}

	r.Restore(second)
	if a, _ := r.Active(); a != hashing.Hasher(bc) {
		t.Error("restore should bring back bcrypt")
	}
	r.Restore(first)
	if _, ok := r.Active(); ok {
		t.Error("restoring the first handle must leave no active scheme")
	}
}

func TestRegistry_InstallRejects(t *testing.T) {
	r := hashing.NewRegistry()
	if _, err := r.Install(nil); !errors.Is(err, hashing.ErrNilHasher) {
		t.Errorf("nil: got %v", err)
	}
	if _, err := r.Install(newTestSaltedMD5Hasher(t)); !errors.Is(err, hashing.ErrLegacyOnly) {
		t.Errorf("legacy-only: got %v", err)
	}
	if err := r.AddLegacy(nil); !errors.Is(err, hashing.ErrNilHasher) {
		t.Errorf("AddLegacy(nil): got %v", err)
	}
	if _, ok := r.Active(); ok {
		t.Error("rejected installs must not change the active scheme")
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// SetCredential / VerifyCredential
// ──────────────────────────────────────────────────────────────────────────────

func TestRegistry_SetThenVerify(t *testing.T) {
	r := newTestRegistry(t)
	rec := &memRecord{}
	if err := r.SetCredential(rec, "hunter2"); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	if d, _ := hashing.DetectDriver(rec.cred); d != hashing.DriverScrypt {
		t.Fatalf("stored under %q, want scrypt", d)
	}
	writes := rec.writes

	if !r.VerifyCredential(rec, "hunter2") {
		t.Error("correct password rejected")
	}
	if r.VerifyCredential(rec, "wrong") {
		t.Error("wrong password accepted")
	}
	if rec.writes != writes {
		t.Error("verifying an active-scheme credential must not write")
	}
}

func TestRegistry_SetCredential_NoActiveScheme(t *testing.T) {
	r := hashing.NewRegistry()
	rec := &memRecord{cred: "$smd5$old$value"}
	if err := r.SetCredential(rec, "pw"); !errors.Is(err, hashing.ErrNoActiveScheme) {
		t.Fatalf("got %v, want ErrNoActiveScheme", err)
	}
	if rec.cred != "$smd5$old$value" || rec.writes != 0 {
		t.Error("prior credential must be left untouched")
	}
}

func TestRegistry_Verify_NoActiveScheme(t *testing.T) {
	r := hashing.NewRegistry()
	bc := newTestBcryptHasher(t)
	_ = r.AddLegacy(bc)
	stored, _ := bc.Make("pw")
	if r.VerifyCredential(&memRecord{cred: stored}, "pw") {
		t.Error("verification without an active scheme must fail closed")
	}
}

func TestRegistry_Verify_FailsClosed(t *testing.T) {
	r := newTestRegistry(t)
	for _, stored := range []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=65536,t=3,p=2$abc$def",
		"$scrypt$ln=10,r=8,p=1$$",
		"$2b$04$broken",
	} {
		rec := &memRecord{cred: stored}
		if r.VerifyCredential(rec, "plaintext") {
			t.Errorf("%q: verification succeeded", stored)
		}
		if rec.writes != 0 {
			t.Errorf("%q: record written", stored)
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Legacy migration
// ──────────────────────────────────────────────────────────────────────────────

func TestRegistry_LegacyMigration_WritesBackOnce(t *testing.T) {
	legacy := map[string]func(t *testing.T) string{
		"saltedmd5": func(*testing.T) string { return legacyMD5("s4lt", "hunter2") },
		"crypt3": func(t *testing.T) string {
			s, _ := newTestCrypt3Hasher(t).Make("hunter2")
			return s
		},
		"bcrypt": func(t *testing.T) string {
			s, _ := newTestBcryptHasher(t).Make("hunter2")
			return s
		},
	}
	for name, mk := range legacy {
		t.Run(name, func(t *testing.T) {
			r := newTestRegistry(t)
			rec := &memRecord{cred: mk(t)}

			if !r.VerifyCredential(rec, "hunter2") {
				t.Fatal("legacy credential rejected")
			}
			if rec.writes != 1 {
				t.Fatalf("writes = %d, want 1", rec.writes)
			}
			if d, _ := hashing.DetectDriver(rec.cred); d != hashing.DriverScrypt {
				t.Fatalf("credential not upgraded, now %q", d)
			}

			if !r.VerifyCredential(rec, "hunter2") {
				t.Fatal("upgraded credential rejected")
			}
			if rec.writes != 1 {
				t.Errorf("second verify wrote again: writes = %d", rec.writes)
			}
		})
	}
}

func TestRegistry_LegacyMismatch_NoWrite(t *testing.T) {
	r := newTestRegistry(t)
	stored := legacyMD5("s4lt", "hunter2")
	rec := &memRecord{cred: stored}
	if r.VerifyCredential(rec, "hunter3") {
		t.Fatal("wrong password accepted")
	}
	if rec.writes != 0 || rec.cred != stored {
		t.Error("a mismatch must never rewrite the credential")
	}
}

func TestRegistry_LegacyOnlyTriedForMatchingTag(t *testing.T) {
	r := hashing.NewRegistry()
	_ = r.AddLegacy(newTestCrypt3Hasher(t))
	if _, err := r.Install(newTestScryptHasher(t)); err != nil {
		t.Fatal(err)
	}
	// No salted-MD5 verifier is registered, so the credential cannot verify.
	rec := &memRecord{cred: legacyMD5("s4lt", "pw")}
	if r.VerifyCredential(rec, "pw") {
		t.Error("credential verified without a verifier for its tag")
	}
}

// failingChecker shares a tag with a real driver but cannot check anything.
type failingChecker struct{ hashing.Hasher }

func (failingChecker) Check(string, string) (bool, error) { return false, errors.New("backend unavailable") }

func TestRegistry_TriesEveryMatchingLegacyVerifier(t *testing.T) {
	crypt3 := newTestCrypt3Hasher(t)
	r := hashing.NewRegistry()
	_ = r.AddLegacy(failingChecker{crypt3})
	_ = r.AddLegacy(crypt3)
	if _, err := r.Install(newTestScryptHasher(t)); err != nil {
		t.Fatal(err)
	}

	stored, err := crypt3.Make("pw")
	if err != nil {
		t.Fatal(err)
	}
	rec := &memRecord{cred: stored}
	if r.VerifyCredential(rec, "wrong") {
		t.Fatal("wrong password accepted")
	}
	if !r.VerifyCredential(rec, "pw") {
		t.Fatal("second crypt3 verifier was not tried")
	}
	if rec.writes != 1 {
		t.Errorf("writes = %d, want 1", rec.writes)
	}
	if d, _ := hashing.DetectDriver(rec.cred); d != hashing.DriverScrypt {
		t.Errorf("credential driver = %q, want scrypt", d)
	}
}

func TestRegistry_RehashFailureStillMatches(t *testing.T) {
	r := hashing.NewRegistry()
	_ = r.AddLegacy(newTestSaltedMD5Hasher(t))
	if _, err := r.Install(brokenMaker{newTestScryptHasher(t)}); err != nil {
		t.Fatal(err)
	}
	stored := legacyMD5("s4lt", "pw")
	rec := &memRecord{cred: stored}
	if !r.VerifyCredential(rec, "pw") {
		t.Fatal("a failed upgrade must not hide a real match")
	}
	if rec.writes != 0 || rec.cred != stored {
		t.Error("a failed upgrade must leave the old credential")
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Metrics
// ──────────────────────────────────────────────────────────────────────────────

func TestRegistry_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := newTestRegistry(t, hashing.WithMetrics(reg))

	rec := &memRecord{cred: legacyMD5("s4lt", "pw")}
	r.VerifyCredential(rec, "pw")
	r.VerifyCredential(rec, "pw")
	r.VerifyCredential(rec, "nope")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	got := map[string]float64{}
	for _, mf := range mfs {
		if mf.GetName() != "services_credential_verifications_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			got[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
		}
	}
	want := map[string]float64{"migrated": 1, "match": 1, "mismatch": 1}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}

	if n, err := testutil.GatherAndCount(reg, "services_credential_scheme_changes_total"); err != nil || n != 1 {
		t.Errorf("scheme_changes series = %d, %v", n, err)
	}
}

func TestRegistry_SIMDBackedLegacy(t *testing.T) {
	r := hashing.NewRegistry()
	h, _ := hashing.NewSaltedMD5Hasher(digest.New(digest.SIMD))
	_ = r.AddLegacy(h)
	_, _ = r.Install(newTestBcryptHasher(t))
	rec := &memRecord{cred: legacyMD5("x", "pw")}
	if !r.VerifyCredential(rec, "pw") {
		t.Error("legacy credential rejected with the simd backend")
	}
}
