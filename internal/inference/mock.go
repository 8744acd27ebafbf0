package inference

import (
	"context"
	"fmt"
)

// MockModel is a deterministic stand-in used for dry runs and tests.
type MockModel struct {
	name string
}

// NewMockModel creates a new mock model
func NewMockModel(name string) *MockModel {
	return &MockModel{name: name}
}

func (m *MockModel) Name() string { return m.name }

func (m *MockModel) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Image == nil {
		return "", fmt.Errorf("inference: request has no image")
	}
	if req.Image.Placeholder {
		return "Mock report: no image available.", nil
	}
	return fmt.Sprintf("Mock report for %dx%d image.", req.Image.Width, req.Image.Height), nil
}
