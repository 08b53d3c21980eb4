package domain

import "errors"

// Sentinel errors for the request-handling taxonomy. Each is converted to a
// user-visible message at the request boundary; none reaches the caller raw.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session is closed")
	ErrExtraction      = errors.New("document extraction failed")
	ErrBlurryDocument  = errors.New("document too blurry to read")
	ErrStoreWrite      = errors.New("session store write failed")
)
