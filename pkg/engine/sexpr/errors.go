package sexpr

import "fmt"

// ErrorKind classifies a SyntaxError.
type ErrorKind string

const (
	ErrBadChar       ErrorKind = "BadChar"
	ErrNumber        ErrorKind = "Number"
	ErrBadEndOfInput ErrorKind = "BadEndOfInput"
)

// SyntaxError reports malformed source at a position.
type SyntaxError struct {
	Kind   ErrorKind
	Line   int
	Col    int
	Char   rune   // offending character, for ErrBadChar
	Detail string // parser detail, for ErrNumber and ErrBadEndOfInput
}

func (e *SyntaxError) Error() string {
	switch e.Kind {
	case ErrBadChar:
		return fmt.Sprintf("%d:%d: unexpected character %q", e.Line, e.Col, e.Char)
	case ErrNumber:
		return fmt.Sprintf("%d:%d: invalid number: %s", e.Line, e.Col, e.Detail)
	default:
		return fmt.Sprintf("%d:%d: unexpected end of input: %s", e.Line, e.Col, e.Detail)
	}
}

// ErrorList holds every syntax error found in one source text.
// Its message is the first error, followed by a count of the rest.
type ErrorList []*SyntaxError

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more errors)", l[0].Error(), len(l)-1)
	}
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (l ErrorList) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}
