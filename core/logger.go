package core

// Logger is any service that can log application events.
// expected args: error | map[string]interface{} | anything printable
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

type nopLogger struct{}

// NopLogger discards everything. Fatal does not exit.
var NopLogger Logger = nopLogger{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// Person is the user a log entry is about. Loggers attach it to the entry
// instead of printing it.
type Person struct {
	ID   string
	Name string
	Role string
}
