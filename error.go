package lbvs

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Per-ballot failures. They invalidate a single ballot and are returned to
// the caller, they never stop a role.
var (
	ErrOpeningInvalid              = xerrors.New("commitment opening invalid")
	ErrMessageRecoveryFailed       = xerrors.New("message recovery failed")
	ErrVerifiableEncryptionInvalid = xerrors.New("verifiable encryption invalid")
	ErrSumProofInvalid             = xerrors.New("sum proof invalid")
	ErrShuffleProofInvalid         = xerrors.New("shuffle proof invalid")
	ErrDecryptionFailed            = xerrors.New("decryption failed")
)

// ErrConsistencyMismatch means the ballot box and the return code server
// disagree on the cast ballots. Counting must stop.
var ErrConsistencyMismatch = xerrors.New("ballot views are not consistent")

// Protocol outcomes and misuse.
var (
	ErrBallotRefused         = xerrors.New("ballot refused by the voter")
	ErrAlreadyCast           = xerrors.New("voter already cast")
	ErrDuplicateRegistration = xerrors.New("voter already registered")
	ErrUnknownVoter          = xerrors.New("unknown voter")
	ErrInvalidVote           = xerrors.New("invalid vote")
	ErrInvalidSignature      = xerrors.New("invalid signature")
	ErrWrongPhase            = xerrors.New("operation not allowed in this phase")
)

// Fatal tells if the error must abort the election instead of only
// invalidating one ballot.
func Fatal(err error) bool {
	return xerrors.Is(err, ErrConsistencyMismatch) || xerrors.Is(err, ErrShuffleProofInvalid)
}

// Error annotates a protocol failure with the place where a role gave up
// on it. The sentinel stays reachable through Unwrap, and %+v prints the
// recorded frame followed by the detail of the cause.
type Error struct {
	err   error
	msg   string
	frame xerrors.Frame
}

// ErrorOrNil annotates err with msg and the frame of its caller. It returns
// nil when err is nil, so a role can return it unconditionally.
func ErrorOrNil(err error, msg string) error {
	return ErrorOrNilSkip(err, msg, 1)
}

// ErrorOrNilSkip is ErrorOrNil recording the frame skip calls above it.
func ErrorOrNilSkip(err error, msg string, skip int) error {
	if err == nil {
		return nil
	}
	return &Error{
		err:   err,
		msg:   msg,
		frame: xerrors.Caller(skip),
	}
}

// WrapError records the frame of its caller without changing the message,
// for errors such as a failed audit that already say what went wrong.
func WrapError(err error) error {
	return ErrorOrNilSkip(err, "", 2)
}

func (e *Error) Error() string {
	if e.msg == "" {
		return e.err.Error()
	}
	return e.msg + ": " + e.err.Error()
}

// Unwrap returns the annotated error.
func (e *Error) Unwrap() error {
	return e.err
}

// Format implements fmt.Formatter.
func (e *Error) Format(f fmt.State, c rune) {
	xerrors.FormatError(e, f, c)
}

// FormatError implements xerrors.Formatter. The detail, asked with %+v,
// holds the frame and the detail of the annotated error.
func (e *Error) FormatError(p xerrors.Printer) error {
	if e.msg == "" {
		p.Print(e.err)
	} else {
		p.Printf("%s: %v", e.msg, e.err)
	}
	if p.Detail() {
		e.frame.Format(p)
		p.Printf("%+v", e.err)
	}
	return nil
}
