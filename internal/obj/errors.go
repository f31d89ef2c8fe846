package obj

import "fmt"

// Kind classifies an export failure.
type Kind int

const (
	InvalidSelection Kind = iota + 1
	WriteFailure
)

func (k Kind) String() string {
	switch k {
	case InvalidSelection:
		return "invalid selection"
	case WriteFailure:
		return "write failure"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) Error() string {
	return "obj: " + k.String()
}

var (
	ErrInvalidSelection error = InvalidSelection
	ErrWriteFailure     error = WriteFailure
)

// ExportError is returned by Select and Export. LOD is -1 when unknown.
type ExportError struct {
	Kind Kind
	LOD  int
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	msg := "obj: " + e.Kind.String()
	if e.LOD >= 0 {
		msg += fmt.Sprintf(" for LOD %d", e.LOD)
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

func (e *ExportError) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}
