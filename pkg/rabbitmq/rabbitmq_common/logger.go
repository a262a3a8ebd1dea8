package rabbitmq_common

// Logger - минимальный логгер, который принимает pkg-уровень.
// Сервис подключает свой логгер через мост (см. adapters/rabbitmq)
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(err error, msg string, keysAndValues ...interface{})
}

type noopLogger struct{}

func (l *noopLogger) Debug(msg string, keysAndValues ...interface{})            {}
func (l *noopLogger) Info(msg string, keysAndValues ...interface{})             {}
func (l *noopLogger) Warn(msg string, keysAndValues ...interface{})             {}
func (l *noopLogger) Error(err error, msg string, keysAndValues ...interface{}) {}

// NewNoopLogger returns a logger that performs no operations.
func NewNoopLogger() Logger {
	return &noopLogger{}
}

// Config - общая часть конфигурации производителя
type Config struct {
	URL string
}

func (c Config) Validate() error {
	if c.URL == "" {
		return errEmptyURL
	}
	return nil
}
