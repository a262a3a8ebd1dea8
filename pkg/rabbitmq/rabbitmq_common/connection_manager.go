package rabbitmq_common

import (
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

var errEmptyURL = errors.New("rabbitmq: URL is required")

// ConnectionManager владеет одним соединением RabbitMQ на время жизни процесса.
// Сборщик работает один запуск, поэтому фонового переподключения нет:
// закрытое соединение переоткрывается при следующем GetChannel
type ConnectionManager struct {
	url        string
	connection *amqp.Connection
	mutex      sync.Mutex
	Logger     Logger
}

// NewManager создает менеджер и сразу устанавливает соединение
func NewManager(url string, logger Logger) (*ConnectionManager, error) {
	if url == "" {
		return nil, errEmptyURL
	}
	if logger == nil {
		logger = NewNoopLogger()
	}
	m := &ConnectionManager{url: url, Logger: logger}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, err := m.connectLocked(); err != nil {
		logger.Error(err, "Initial connection failed")
		return nil, fmt.Errorf("initial connection failed: %w", err)
	}
	return m, nil
}

// connectLocked вызывается под mutex
func (m *ConnectionManager) connectLocked() (*amqp.Connection, error) {
	if m.connection != nil && !m.connection.IsClosed() {
		return m.connection, nil
	}

	m.Logger.Debug("ConnectionManager: Connecting...")
	conn, err := amqp.Dial(m.url)
	if err != nil {
		return nil, fmt.Errorf("ConnectionManager: failed to dial RabbitMQ: %w", err)
	}
	m.connection = conn
	m.Logger.Debug("ConnectionManager: Connected successfully!")
	return conn, nil
}

// GetChannel открывает новый канал на общем соединении
func (m *ConnectionManager) GetChannel() (*amqp.Connection, *amqp.Channel, error) {
	m.mutex.Lock()
	conn, err := m.connectLocked()
	m.mutex.Unlock()
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		return conn, nil, fmt.Errorf("ConnectionManager: failed to open a channel: %w", err)
	}
	return conn, ch, nil
}

// Close закрывает общее соединение RabbitMQ
func (m *ConnectionManager) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.connection == nil || m.connection.IsClosed() {
		m.Logger.Debug("ConnectionManager: Connection was already closed or not established.")
		return nil
	}

	m.Logger.Debug("ConnectionManager: Closing the connection...")
	if err := m.connection.Close(); err != nil {
		m.Logger.Error(err, "ConnectionManager: Failed to close connection properly")
		return err
	}
	m.connection = nil
	return nil
}
