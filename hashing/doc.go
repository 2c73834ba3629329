// Package hashing implements the password-hashing schemes of the services
// daemon and the registry that decides which of them hashes new credentials.
//
// # Architecture
//
// The central abstraction is the [Hasher] interface. Four drivers ship with
// this package:
//
//   - [BcryptHasher]: adaptive Blowfish-EKS hash with a startup self-test
//   - [ScryptHasher]: memory-hard KDF, also usable for challenge/response proofs
//   - [Crypt3Hasher]: the system crypt(3) formats ($1$, $5$, $6$)
//   - [SaltedMD5Hasher]: historical salted-MD5 records, verify only
//
// The [Registry] holds exactly one active scheme plus an ordered list of
// legacy verifiers. Account code calls [Registry.SetCredential] and
// [Registry.VerifyCredential]; the module loader calls [Registry.Install] and
// [Registry.Restore].
//
// # Migration
//
// A credential that verifies through a legacy driver is re-hashed under the
// active scheme and written back to the account, once, in the same call.
// Credentials already produced by the active scheme are never rewritten.
//
// # Credential formats
//
// Every stored credential is self-describing:
//
//	$2b$07$<22-char salt><31-char hash>           bcrypt
//	$scrypt$ln=14,r=8,p=1$<b64 salt>$<b64 key>    scrypt
//	$6$<salt>$<hash>                              crypt3 (also $1$, $5$)
//	$smd5$<b64 salt>$<b64 digest>                 saltedmd5
//
// # Failure policy
//
// [Registry.VerifyCredential] returns only a boolean. A wrong password, a
// malformed record, and an internal error are indistinguishable to the caller.
package hashing
