package usecase

import "errors"

// Kind classifies a failure for the caller. The server maps each kind to a
// status code.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindUnsupportedMediaType
	KindPayloadTooLarge
	KindGeocoding
	KindUnavailable
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindUnsupportedMediaType:
		return "unsupported_media_type"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindGeocoding:
		return "geocoding_error"
	case KindUnavailable:
		return "unavailable"
	case KindValidation:
		return "validation_error"
	}
	return "unknown"
}

// Error is the failure type crossing the usecase boundary. Message is safe
// to show to API callers; Err keeps the internal cause for logs only.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func NewError(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeCommitUnknown marks a transaction whose body succeeded but whose
// commit failed. Its writes may or may not be durable.
const CodeCommitUnknown = "tx_commit_unknown"

// CodeUserExists marks a user insert rejected by the unique email index.
const CodeUserExists = "user_exists"

// CommitUnknown reports whether err is an ambiguous commit failure.
func CommitUnknown(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeCommitUnknown
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// surface translates a collaborator failure into the error one operation
// returns. Store failures become Unavailable with the operation's message;
// kinds that are already caller-facing pass through untouched.
func surface(err error, notFoundMsg, unavailableMsg string) error {
	var e *Error
	if !errors.As(err, &e) {
		return NewError(KindUnavailable, "unavailable", unavailableMsg, err)
	}
	switch e.Kind {
	case KindNotFound:
		return NewError(KindNotFound, e.Code, notFoundMsg, err)
	case KindUnavailable, KindUnknown:
		return NewError(KindUnavailable, "unavailable", unavailableMsg, err)
	}
	return err
}
