package credentials

import (
	"errors"
	"strings"
)

var (
	// ErrNoCredentials matches InvalidCredentialsError values raised because
	// nothing was supplied.
	ErrNoCredentials = errors.New("no credentials supplied")
	// ErrIncorrectCredentials matches InvalidCredentialsError values raised
	// because the supplied credentials fit none of the provider's shapes.
	ErrIncorrectCredentials = errors.New("incorrect credentials supplied")
)

// Kind distinguishes the two ways credentials can be invalid.
type Kind int

const (
	Absent Kind = iota
	Incorrect
)

func (k Kind) String() string {
	if k == Absent {
		return "absent"
	}
	return "incorrect"
}

// InvalidCredentialsError is returned when credentials are missing or do not
// fit what the provider requires.
type InvalidCredentialsError struct {
	Kind        Kind
	Provider    string
	Requirement Requirement
}

func (e *InvalidCredentialsError) Error() string {
	var sb strings.Builder
	if e.Kind == Absent {
		sb.WriteString("no credentials supplied. ")
	} else {
		sb.WriteString("incorrect credentials supplied. ")
	}
	sb.WriteString(e.Provider)
	sb.WriteString(" requires ")
	if len(e.Requirement) == 1 {
		sb.WriteString(strings.Join(e.Requirement[0].Parameters, ", "))
		return sb.String()
	}
	sb.WriteString("one of the following forms: when type is ")
	for i, shape := range e.Requirement {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(shape.Name)
		sb.WriteString(": ")
		sb.WriteString(strings.Join(shape.Parameters, ", "))
	}
	return sb.String()
}

// Is lets errors.Is match ErrNoCredentials and ErrIncorrectCredentials.
func (e *InvalidCredentialsError) Is(target error) bool {
	switch target {
	case ErrNoCredentials:
		return e.Kind == Absent
	case ErrIncorrectCredentials:
		return e.Kind == Incorrect
	}
	return false
}

// IsInvalid reports whether err is, or wraps, an InvalidCredentialsError.
func IsInvalid(err error) bool {
	var ice *InvalidCredentialsError
	return errors.As(err, &ice)
}
