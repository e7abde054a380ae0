// Package password hashes and verifies storefront account passwords with
// Argon2id, encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher.NeedsRehash] reports hashes produced with weaker parameters than
// the current Config so Login can upgrade them after a successful verify.
//
// This package never stores passwords and imports no other package of this
// module.
package password
