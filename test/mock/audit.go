// test/mock/audit.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/workforcehq/aegis/audit"
)

// MockAuditRepository is a mock implementation of audit.Repository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Index(ctx context.Context, entry audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) QueryByUser(ctx context.Context, userID string, limit, offset int) ([]audit.Entry, error) {
	args := m.Called(ctx, userID, limit, offset)
	entries, _ := args.Get(0).([]audit.Entry)
	return entries, args.Error(1)
}

func (m *MockAuditRepository) QueryDenials(ctx context.Context, since time.Time, limit int) ([]audit.Entry, error) {
	args := m.Called(ctx, since, limit)
	entries, _ := args.Get(0).([]audit.Entry)
	return entries, args.Error(1)
}

// MockAuditSink is a mock implementation of engine.AuditSink
type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) Record(entry audit.Entry) {
	m.Called(entry)
}

// Entries returns every entry recorded so far, in call order.
func (m *MockAuditSink) Entries() []audit.Entry {
	entries := make([]audit.Entry, 0, len(m.Calls))
	for _, call := range m.Calls {
		entries = append(entries, call.Arguments.Get(0).(audit.Entry))
	}
	return entries
}
