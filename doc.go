/*
Package lbvs implements a lattice based voting scheme with return codes.

Voters cast ballots that are committed and verifiably encrypted over the
ring Z_q[X]/(X^N+1). A return code server, holding the key of a second
encryption, gives back to every voter a short code for what it cast, so the
voter can check that its ballot was recorded as intended. After casting, an
auditor compares the ballots seen by the ballot box and by the return code
server, and a shuffle server decrypts the ballots in a secret order with a
zero-knowledge proof of the shuffle that anybody can verify.

The packages, from leaf to root:

	algebra    ring arithmetic, sampling, encodings and Fiat-Shamir transcripts
	secret     zeroing containers for secret material
	commit     homomorphic commitments to ring elements
	vericrypt  verifiable encryption of commitment openings
	sigma      linear, sum and shuffle proofs
	election   questions, vote encoding, tallies and election files
	scheme     Setup, Register, Cast, Code, Count and Verify
	storage    bbolt buckets of protobuf records
	service    the roles of an election and their messages
	cmd/lbvs   command line simulation and inspection

This package holds the error sentinels shared by all of them and the
signature suite.
*/
package lbvs
