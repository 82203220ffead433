package shipping

import (
	"context"
)

// MockProvider is a test implementation of Provider.
type MockProvider struct {
	CreateConceptsFunc       func(ctx context.Context, col *Collection) error
	DeleteConceptsFunc       func(ctx context.Context, col *Collection) error
	RefreshFunc              func(ctx context.Context, col *Collection, size int) error
	RecentFunc               func(ctx context.Context, apiKey string, size int) (*Collection, error)
	LabelLinkFunc            func(ctx context.Context, col *Collection, format LabelFormat) (string, error)
	LabelPDFFunc             func(ctx context.Context, col *Collection, format LabelFormat) ([]byte, error)
	SendReturnLabelMailsFunc func(ctx context.Context, col *Collection) error

	nextID int
}

// NewMockProvider creates a mock that assigns ids 1, 2, ... to new concepts.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// CreateConcepts delegates to the configured function or assigns sequential ids.
func (m *MockProvider) CreateConcepts(ctx context.Context, col *Collection) error {
	if m.CreateConceptsFunc != nil {
		return m.CreateConceptsFunc(ctx, col)
	}
	col.EnsureReferenceIDs()
	for _, cons := range col.Pending() {
		if err := cons.Validate(); err != nil {
			return err
		}
		m.nextID++
		cons.APIID = m.nextID
		cons.Status = 1
	}
	return nil
}

// DeleteConcepts delegates to the configured function or clears the ids.
func (m *MockProvider) DeleteConcepts(ctx context.Context, col *Collection) error {
	if m.DeleteConceptsFunc != nil {
		return m.DeleteConceptsFunc(ctx, col)
	}
	for _, cons := range col.Registered() {
		cons.APIID = 0
		cons.Status = 0
	}
	return nil
}

// Refresh delegates to the configured function or leaves the collection as is.
func (m *MockProvider) Refresh(ctx context.Context, col *Collection, size int) error {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, col, size)
	}
	if ids, _ := col.IDs(); len(ids) == 0 {
		return ErrNoConcepts
	}
	return nil
}

// Recent delegates to the configured function or returns an empty collection.
func (m *MockProvider) Recent(ctx context.Context, apiKey string, size int) (*Collection, error) {
	if m.RecentFunc != nil {
		return m.RecentFunc(ctx, apiKey, size)
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &Collection{}, nil
}

// LabelLink delegates to the configured function or returns an error.
func (m *MockProvider) LabelLink(ctx context.Context, col *Collection, format LabelFormat) (string, error) {
	if m.LabelLinkFunc != nil {
		return m.LabelLinkFunc(ctx, col, format)
	}
	return "", ErrEmptyLabel
}

// LabelPDF delegates to the configured function or returns an error.
func (m *MockProvider) LabelPDF(ctx context.Context, col *Collection, format LabelFormat) ([]byte, error) {
	if m.LabelPDFFunc != nil {
		return m.LabelPDFFunc(ctx, col, format)
	}
	return nil, ErrEmptyLabel
}

// SendReturnLabelMails delegates to the configured function or succeeds.
func (m *MockProvider) SendReturnLabelMails(ctx context.Context, col *Collection) error {
	if m.SendReturnLabelMailsFunc != nil {
		return m.SendReturnLabelMailsFunc(ctx, col)
	}
	return nil
}
