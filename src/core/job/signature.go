package job

// SignaturePrefix is the prefix of a valid confirmation signature.
//
// VerifySignature is a mock of Ed25519 verification: a signature is accepted
// when it equals SignaturePrefix + jobID. A production deployment swaps this
// for a real check of the purchaser's key; nothing else in the gateway
// depends on how verification is done.
const SignaturePrefix = "valid_sig_"

// VerifySignature checks a payment confirmation signature against a job id.
// It is a pure predicate with no state or side effects.
func VerifySignature(jobID, signature string) error {
	if signature != SignaturePrefix+jobID {
		return &InvalidSignatureError{JobID: jobID}
	}
	return nil
}
