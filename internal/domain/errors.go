package domain

import "errors"

var (
	ErrInvalidID          = errors.New("invalid id")
	ErrItemNotFound       = errors.New("item not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotQueued          = errors.New("user is not waiting for this item")
	ErrItemAlreadyHeld    = errors.New("item already reserved")
	ErrItemHeld           = errors.New("item is currently reserved")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNotHolder          = errors.New("item is not reserved by this user")
	ErrHoldLimitReached   = errors.New("reservation limit reached")
	ErrAlreadyQueued      = errors.New("user already waiting for this item")
	ErrAlreadyHolder      = errors.New("user already holds this item")
	ErrItemAvailable      = errors.New("item is available, reserve it instead")
	ErrItemNameRequired   = errors.New("item name required")
	ErrInvalidPrice       = errors.New("price must be a non-negative decimal")
	ErrInvalidName        = errors.New("name must have at least 3 characters")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrPasswordTooShort   = errors.New("password must have at least 6 characters")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbiddenRole      = errors.New("insufficient role")
)

// Kind groups sentinel errors into the categories callers translate into responses.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindLimitExceeded
	KindUnprocessable
	KindInvalid
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindLimitExceeded:
		return "limit_exceeded"
	case KindUnprocessable:
		return "unprocessable"
	case KindInvalid:
		return "invalid"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrItemNotFound, KindNotFound},
	{ErrUserNotFound, KindNotFound},
	{ErrNotQueued, KindNotFound},
	{ErrItemAlreadyHeld, KindConflict},
	{ErrItemHeld, KindConflict},
	{ErrEmailTaken, KindConflict},
	{ErrNotHolder, KindForbidden},
	{ErrForbiddenRole, KindForbidden},
	{ErrHoldLimitReached, KindLimitExceeded},
	{ErrAlreadyQueued, KindUnprocessable},
	{ErrAlreadyHolder, KindUnprocessable},
	{ErrItemAvailable, KindUnprocessable},
	{ErrInvalidID, KindInvalid},
	{ErrItemNameRequired, KindInvalid},
	{ErrInvalidPrice, KindInvalid},
	{ErrInvalidName, KindInvalid},
	{ErrInvalidEmail, KindInvalid},
	{ErrPasswordTooShort, KindInvalid},
	{ErrInvalidCredentials, KindUnauthorized},
	{ErrUnauthenticated, KindUnauthorized},
}

// KindOf reports the category of err, looking through wrapped errors.
// Unknown errors are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
