package core

// Logger is any service that can log leveled messages. Implementations may
// inspect args for known types (errors, request data, users) and report them
// to an external tracker.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
