// Package convert defines the error taxonomy and planning accumulator shared
// by all provider converters.
package convert

import "fmt"

// UnsupportedContentError reports a content part the target provider cannot
// represent.
type UnsupportedContentError struct {
	PartIndex int
	PartType  string
	Provider  string
	Reason    string
}

func (e *UnsupportedContentError) Error() string {
	return fmt.Sprintf("part at index %d (%s) is not supported by %s: %s",
		e.PartIndex, e.PartType, e.Provider, e.Reason)
}

// UnsupportedMIMETypeError reports a blob MIME type outside the target
// provider's allow-set.
type UnsupportedMIMETypeError struct {
	MIMEType string
	Provider string
}

func (e *UnsupportedMIMETypeError) Error() string {
	return fmt.Sprintf("MIME type %q is not supported by %s", e.MIMEType, e.Provider)
}

// Base64TooLargeError reports an inline payload over the target provider's
// size limit.
type Base64TooLargeError struct {
	Size     int
	MaxSize  int
	Provider string
}

func (e *Base64TooLargeError) Error() string {
	return fmt.Sprintf("base64 data too large (%d bytes) for %s (max: %d bytes)",
		e.Size, e.Provider, e.MaxSize)
}

// MessageConversionError reports malformed input, such as unparseable
// embedded JSON, encountered while mapping messages.
type MessageConversionError struct {
	Detail string
	Err    error
}

func (e *MessageConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("message conversion error: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("message conversion error: %s", e.Detail)
}

func (e *MessageConversionError) Unwrap() error {
	return e.Err
}

// MessageConversionf builds a MessageConversionError from a format string.
func MessageConversionf(format string, args ...any) *MessageConversionError {
	return &MessageConversionError{Detail: fmt.Sprintf(format, args...)}
}
