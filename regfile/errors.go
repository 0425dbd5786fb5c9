package regfile

import "errors"

var (
	// ErrUnsupportedURI indicates a registration file URI with no usable
	// scheme: not ipfs, not http(s), and not a bare content id.
	ErrUnsupportedURI = errors.New("unsupported registration file uri")

	// ErrFetchFailed indicates the registration file could not be
	// retrieved from its resolved URL.
	ErrFetchFailed = errors.New("registration file fetch failed")

	// ErrParseFailed indicates the fetched bytes are not a valid
	// registration document.
	ErrParseFailed = errors.New("registration file parse failed")
)
