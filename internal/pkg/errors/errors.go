package errors

import "errors"

var (
	ErrLoad            = errors.New("corpus load failed")
	ErrEmbedding       = errors.New("embedding failed")
	ErrAlreadyBuilt    = errors.New("index already built")
	ErrEmptyIndex      = errors.New("index is empty")
	ErrInvalidK        = errors.New("invalid k")
	ErrUnknownTool     = errors.New("unknown tool")
	ErrInvalidArgument = errors.New("invalid tool argument")
	ErrModelInvocation = errors.New("model invocation failed")
)

func IsEmbedding(err error) bool {
	return errors.Is(err, ErrEmbedding)
}

func IsUnknownTool(err error) bool {
	return errors.Is(err, ErrUnknownTool)
}

// IsRetryable reports whether the caller may retry the operation with
// backoff. Only model transport failures qualify; validation-class errors
// are terminal for the turn.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrModelInvocation)
}
