package services

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/magabrotheeeer/car-marketplace/internal/lib/smtp"
	"github.com/magabrotheeeer/car-marketplace/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) GetSMTPUser() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	args := m.Called(from)
	return args.Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	args := m.Called(to)
	return args.Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSMTPClient) Quit() error {
	args := m.Called()
	return args.Error(0)
}

type MockSMTPWriter struct {
	mock.Mock
}

func (m *MockSMTPWriter) Write(p []byte) (n int, err error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockSMTPWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestNotifierService_SendExpiredSubscriptionNotice(t *testing.T) {
	expiredAt := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	notice := models.ExpiredSubscriptionNotice{
		UserUID:   "9f8c1a34-0f4e-4f6a-bb62-6a9a4f2d1c55",
		Email:     "driver@example.com",
		Username:  "driver",
		Tier:      "premium",
		ExpiredAt: &expiredAt,
	}
	body, err := json.Marshal(notice)
	require.NoError(t, err)

	t.Run("успешная отправка письма", func(t *testing.T) {
		transport := new(MockTransport)
		client := new(MockSMTPClient)
		writer := new(MockSMTPWriter)

		var written []byte
		transport.On("GetSMTPUser").Return("noreply@car-marketplace.io")
		transport.On("Connect").Return(client, nil)
		client.On("Mail", "noreply@car-marketplace.io").Return(nil)
		client.On("Rcpt", "driver@example.com").Return(nil)
		client.On("Data").Return(writer, nil)
		writer.On("Write", mock.Anything).Run(func(args mock.Arguments) {
			written = args.Get(0).([]byte)
		}).Return(0, nil)
		writer.On("Close").Return(nil)
		client.On("Quit").Return(nil)
		client.On("Close").Return(nil)

		svc := NewNotifierService(transport, newNoopLogger())
		err := svc.SendExpiredSubscriptionNotice(body)

		require.NoError(t, err)
		msg := string(written)
		assert.Contains(t, msg, "To: driver@example.com")
		assert.Contains(t, msg, "driver")
		assert.Contains(t, msg, "premium")
		transport.AssertExpectations(t)
		client.AssertExpectations(t)
		writer.AssertExpectations(t)
	})

	t.Run("битое тело сообщения", func(t *testing.T) {
		transport := new(MockTransport)
		svc := NewNotifierService(transport, newNoopLogger())

		err := svc.SendExpiredSubscriptionNotice([]byte("{not-json"))

		require.Error(t, err)
		transport.AssertNotCalled(t, "Connect")
	})

	t.Run("ошибка подключения к SMTP", func(t *testing.T) {
		transport := new(MockTransport)
		transport.On("GetSMTPUser").Return("noreply@car-marketplace.io")
		transport.On("Connect").Return(nil, errors.New("dial tcp: connection refused"))

		svc := NewNotifierService(transport, newNoopLogger())
		err := svc.SendExpiredSubscriptionNotice(body)

		require.Error(t, err)
	})
}
