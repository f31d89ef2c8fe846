package mdl

import (
	"fmt"
	"strings"
)

// Kind classifies a decode failure.
type Kind int

const (
	BadSignature Kind = iota + 1
	TruncatedInput
	InvalidLodCount
	DecompressionFailure
	SizeMismatch
	IndexOutOfRange
)

var kindNames = map[Kind]string{
	BadSignature:         "bad signature",
	TruncatedInput:       "truncated input",
	InvalidLodCount:      "invalid LOD count",
	DecompressionFailure: "decompression failure",
	SizeMismatch:         "size mismatch",
	IndexOutOfRange:      "index out of range",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error lets a Kind be used as an errors.Is target.
func (k Kind) Error() string {
	return "mdl: " + k.String()
}

// Sentinels for errors.Is.
var (
	ErrBadSignature         error = BadSignature
	ErrTruncatedInput       error = TruncatedInput
	ErrInvalidLodCount      error = InvalidLodCount
	ErrDecompressionFailure error = DecompressionFailure
	ErrSizeMismatch         error = SizeMismatch
	ErrIndexOutOfRange      error = IndexOutOfRange
)

// FormatError reports why a decode failed. LOD, Offset and Index are -1
// when they do not apply.
type FormatError struct {
	Kind   Kind
	LOD    int
	Offset int64
	Index  int64
	Msg    string
	Err    error
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("mdl: ")
	b.WriteString(e.Kind.String())
	if e.LOD >= 0 {
		fmt.Fprintf(&b, " in LOD %d", e.LOD)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if e.Index >= 0 {
		fmt.Fprintf(&b, " (index %d)", e.Index)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Is matches the Kind sentinels.
func (e *FormatError) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func newError(kind Kind, lod int, off int64, format string, args ...any) *FormatError {
	return &FormatError{
		Kind:   kind,
		LOD:    lod,
		Offset: off,
		Index:  -1,
		Msg:    fmt.Sprintf(format, args...),
	}
}
