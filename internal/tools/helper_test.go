package tools

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/agent-backend/internal/browser"
)

// testContextID is the browser context the handlers run under in these tests.
var testContextID = uuid.New()

// MockPage is a mock implementation of the PageActions interface.
type MockPage struct {
	mock.Mock
	id        uuid.UUID
	contextID uuid.UUID
}

func (m *MockPage) ID() uuid.UUID {
	return m.id
}

func (m *MockPage) ContextID() uuid.UUID {
	return m.contextID
}

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockPage) Click(ctx context.Context, selector string) error {
	return m.Called(ctx, selector).Error(0)
}

func (m *MockPage) TypeText(ctx context.Context, selector, text string) error {
	return m.Called(ctx, selector, text).Error(0)
}

func (m *MockPage) ExtractText(ctx context.Context, selector string) (string, error) {
	args := m.Called(ctx, selector)
	return args.String(0), args.Error(1)
}

func (m *MockPage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	return m.Called(ctx, selector, timeout).Error(0)
}

func (m *MockPage) Screenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockPage) Scroll(ctx context.Context, deltaX, deltaY int) error {
	return m.Called(ctx, deltaX, deltaY).Error(0)
}

func (m *MockPage) Reload(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPage) URL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) CountElements(ctx context.Context, queryBy browser.QueryBy, value string) (int, error) {
	args := m.Called(ctx, queryBy, value)
	return args.Int(0), args.Error(1)
}

func (m *MockPage) Info(ctx context.Context) browser.PageInfo {
	args := m.Called(ctx)
	return args.Get(0).(browser.PageInfo)
}

// MockController is a mock implementation of the Controller interface.
type MockController struct {
	mock.Mock
}

func (m *MockController) NewPage(ctx context.Context, contextID uuid.UUID) (PageActions, error) {
	args := m.Called(ctx, contextID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(PageActions), args.Error(1)
}

func (m *MockController) Page(id uuid.UUID) (PageActions, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(PageActions), args.Error(1)
}

func (m *MockController) Pages() []PageActions {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]PageActions)
}

// setupRegistry builds a registry over mocks and a temp screenshot dir.
func setupRegistry(t *testing.T) (*Registry, *MockController) {
	t.Helper()
	core, _ := observer.New(zap.DebugLevel)
	ctrl := new(MockController)
	return NewRegistry(ctrl, t.TempDir(), zap.New(core)), ctrl
}

func newMockPage() *MockPage {
	return &MockPage{id: uuid.New(), contextID: testContextID}
}

// newForeignMockPage builds a page owned by some other task's context.
func newForeignMockPage() *MockPage {
	return &MockPage{id: uuid.New(), contextID: uuid.New()}
}
