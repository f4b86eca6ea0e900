package core

// Logger is implemented by the logging services.
// expected args: error, map[string]interface{}, user.User (services may pick the ones they know)
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Credentials provides the bearer token attached to every backend request.
// Invalidate is called when the backend rejects the token (401).
type Credentials interface {
	Token() (string, error)
	Invalidate() error
}

// NopLogger discards everything.
type NopLogger struct{}

var _ Logger = NopLogger{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}
