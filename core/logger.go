package core

// Logger is implemented by the logging services.
// args may contain errors, maps of extra data and at most one Person.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the caller a log entry is about.
type Person struct {
	ID    string
	Name  string
	Email string
}
