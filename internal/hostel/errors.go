package hostel

// ValidationError marks malformed input. The HTTP layer maps it to a 400.
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string { return e.Msg }

// BusinessError marks a domain rule failure, such as deleting a student who
// is already gone. The HTTP layer reports it in the response body with
// success=false rather than an error status.
type BusinessError struct {
	Msg string
}

func (e BusinessError) Error() string { return e.Msg }
