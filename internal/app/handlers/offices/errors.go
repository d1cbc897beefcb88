package offices

import "errors"

var (
	// ErrNotOwner rejects mutations attempted by anyone but the office owner,
	// before any state is touched.
	ErrNotOwner = errors.New("offices: office does not belong to the caller")
	// ErrUnknownTag rejects create/update payloads that reference tags the
	// directory does not contain.
	ErrUnknownTag = errors.New("offices: unknown tag id")
)
