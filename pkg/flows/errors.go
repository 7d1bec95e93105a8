package flows

import (
	"errors"

	apperrors "github.com/tendant/simple-verify/pkg/errors"
)

var (
	// ErrEmailAlreadyInUse is returned when an email change targets an address another account holds
	ErrEmailAlreadyInUse = apperrors.New(apperrors.ErrCodeEmailInUse, MsgEmailInUse)

	// ErrDispatchFailure wraps notifier errors raised after a token was issued
	ErrDispatchFailure = errors.New("notification dispatch failure")

	// ErrInvalidInput is returned for malformed requests
	ErrInvalidInput = apperrors.New(apperrors.ErrCodeInvalidInput, MsgInvalidInput)

	// errStaleBinding marks a redeemed token whose bound email no longer
	// matches the account, e.g. the user changed address after issuance
	errStaleBinding = errors.New("token email no longer matches account")
)
