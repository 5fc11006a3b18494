package auth

import "errors"

var (
	// ErrConfiguration indicates the Google client id or secret is missing.
	ErrConfiguration = errors.New("auth: oauth client is not configured")
	// ErrStateMismatch indicates a callback whose state does not match the one issued.
	ErrStateMismatch = errors.New("auth: oauth state mismatch")
	// ErrAuthExchange wraps network, signature and validation failures during the code exchange.
	ErrAuthExchange = errors.New("auth: code exchange failed")
	// ErrAccessDenied indicates the identity is outside the configured allowlist.
	ErrAccessDenied = errors.New("auth: access denied")
	// ErrDuplicateUser is returned by repositories when a unique constraint rejects an insert.
	ErrDuplicateUser = errors.New("auth: duplicate user")
)
