package email

// TemporaryError marks a failure worth retrying later (network, SMTP 4xx,
// provider throttling).
type TemporaryError struct{ msg string }

func (e TemporaryError) Error() string   { return e.msg }
func (e TemporaryError) Temporary() bool { return true }

// PermanentError marks a failure that will not succeed on retry (bad
// address, auth rejected, message rejected).
type PermanentError struct{ msg string }

func (e PermanentError) Error() string   { return e.msg }
func (e PermanentError) Permanent() bool { return true }
