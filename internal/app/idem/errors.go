package idem

// Error describes a guard failure. The guard fails open, so it is only ever logged, never
// mapped to a response.
type Error struct {
	Code    string
	Message string

	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
