// Package digest provides a uniform one-shot and incremental hashing engine
// with a backend-independent HMAC construction.
//
// # Architecture
//
// An [Engine] pairs a [Backend] (the native implementation of the raw hash
// functions) with a randomness source. Two backends ship with this package:
//
//   - [Std]: Go's crypto/md5, crypto/sha1, crypto/sha256 and crypto/sha512
//   - [SIMD]: SHA-256 from github.com/minio/sha256-simd, standard code for the rest
//
// The backend is picked once at startup, usually by name via [BackendByName].
// Callers never see backend state: they drive a [Context] through
// [Engine.Init], [Context.Update] and [Context.Final].
//
// # HMAC
//
// HMAC is computed by the engine itself on top of whatever backend is
// selected, as H(K ^ opad || H(K ^ ipad || message)), with the key zero-padded
// to the algorithm's block size or pre-hashed when longer. The result is the
// same for every backend.
//
// # Quick start
//
//	e := digest.New(digest.Std)
//	sum, err := e.Oneshot(digest.SHA256, digest.Vector{[]byte("hello "), []byte("world")})
//
//	ctx, err := e.Init(digest.SHA1, []byte("key"))
//	_ = ctx.Update([]byte("message"))
//	mac, err := ctx.Final()
package digest
