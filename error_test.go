package lbvs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func makeError() error {
	return xerrors.Errorf("checking ballot: %w", ErrSumProofInvalid)
}

func TestError_ErrorOrNil(t *testing.T) {
	err := ErrorOrNil(makeError(), "voter 1")

	require.Equal(t, "voter 1: checking ballot: sum proof invalid", err.Error())
	require.Nil(t, ErrorOrNil(nil, ""))
}

// Test that the skip option is correctly used to prevent a call
// to be included in the stack trace.
func TestError_ErrorOrNilSkip(t *testing.T) {
	err := ErrorOrNilSkip(makeError(), "test", 2)

	require.NotContains(t, fmt.Sprintf("%+v", err), t.Name())
	require.Contains(t, fmt.Sprintf("%+v", err), ".makeError")
}

func TestError_WrapError(t *testing.T) {
	err := WrapError(makeError())

	require.Equal(t, "checking ballot: sum proof invalid", err.Error())
	require.True(t, xerrors.Is(err, ErrSumProofInvalid))
	require.False(t, xerrors.Is(err, ErrOpeningInvalid))
}

func TestError_Format(t *testing.T) {
	err := xerrors.Errorf("counting: %w", ErrorOrNil(ErrConsistencyMismatch, "audit"))

	require.Equal(t, "counting: audit: ballot views are not consistent", fmt.Sprintf("%v", err))
	require.Contains(t, fmt.Sprintf("%+v", err), t.Name())
	require.True(t, Fatal(err))

	var annotated *Error
	require.True(t, xerrors.As(err, &annotated))
	require.Equal(t, ErrConsistencyMismatch, annotated.Unwrap())
}

func TestError_Fatal(t *testing.T) {
	require.True(t, Fatal(WrapError(ErrConsistencyMismatch)))
	require.True(t, Fatal(xerrors.Errorf("question 2: %w", ErrShuffleProofInvalid)))
	require.False(t, Fatal(ErrBallotRefused))
	require.False(t, Fatal(makeError()))
	require.False(t, Fatal(nil))
}
