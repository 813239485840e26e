package workout

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode reports input that is not valid base64.
	ErrDecode = errors.New("invalid encoded data")
	// ErrEncoding reports decoded bytes that are not valid UTF-8.
	ErrEncoding = errors.New("decoded data is not valid UTF-8")
	// ErrMalformedTitle reports a day marker without a numeric day prefix.
	ErrMalformedTitle = errors.New("malformed workout title")
)

// MalformedTitleError carries the offending title text.
type MalformedTitleError struct {
	Title string
	Err   error
}

func (e *MalformedTitleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %v", ErrMalformedTitle, e.Title, e.Err)
	}
	return fmt.Sprintf("%s %q", ErrMalformedTitle, e.Title)
}

func (e *MalformedTitleError) Is(target error) bool {
	return target == ErrMalformedTitle
}

func (e *MalformedTitleError) Unwrap() error {
	return e.Err
}
