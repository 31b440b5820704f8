package core

import "errors"

var (
	// ErrUnknownAccount means a persona name has no bot mapping in the state file.
	ErrUnknownAccount = errors.New("account has no bot mapping")

	// ErrMissingCredential means the bot exists but carries no access token.
	ErrMissingCredential = errors.New("bot has no access token")

	// ErrUnresolvedReference means a reply's thread was not found in the
	// reply index, e.g. the opening post was never published in this run.
	ErrUnresolvedReference = errors.New("reply reference not resolved")
)
