package driven

// SecretSink receives secret values that must be redacted from any log output.
type SecretSink interface {
	AddSecret(value string)
}

// SecretSinkFunc adapts a plain function to the SecretSink interface.
type SecretSinkFunc func(value string)

// AddSecret calls f(value).
func (f SecretSinkFunc) AddSecret(value string) {
	f(value)
}
