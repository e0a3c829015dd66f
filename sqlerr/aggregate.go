package sqlerr

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// CloseError carries the first failure met while releasing several resources
// and every later failure as a secondary cause.
type CloseError struct {
	Primary   error
	Secondary []error
}

func (e *CloseError) Error() string {
	if len(e.Secondary) == 0 {
		return e.Primary.Error()
	}
	msgs := make([]string, 0, len(e.Secondary))
	for _, s := range e.Secondary {
		msgs = append(msgs, s.Error())
	}
	return fmt.Sprintf("%v (secondary: %s)", e.Primary, strings.Join(msgs, "; "))
}

// Unwrap exposes primary and secondary errors to errors.Is and errors.As.
func (e *CloseError) Unwrap() []error {
	return append([]error{e.Primary}, e.Secondary...)
}

// Aggregate turns errors collected with multierr.Append into a CloseError.
// It returns nil for nil and the error itself when only one was collected.
func Aggregate(err error) error {
	errs := multierr.Errors(err)
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	return &CloseError{Primary: errs[0], Secondary: errs[1:]}
}

// Chain attaches secondary to an in-flight primary error. It is used when a
// listener fails while another error is already propagating.
func Chain(primary, secondary error) error {
	if primary == nil {
		return secondary
	}
	if secondary == nil {
		return primary
	}
	if ce, ok := primary.(*CloseError); ok {
		return &CloseError{Primary: ce.Primary, Secondary: append(append([]error(nil), ce.Secondary...), secondary)}
	}
	return &CloseError{Primary: primary, Secondary: []error{secondary}}
}
