package core

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// FieldsMap returns the field errors keyed by field name.
func (err ValidationError) FieldsMap() map[string]string {
	m := make(map[string]string, len(err.Fields))
	for _, fErr := range err.Fields {
		m[fErr.Field] = fErr.Error
	}
	return m
}
