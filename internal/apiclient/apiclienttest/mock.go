// Package apiclienttest provides a testify mock of the backend API.
package apiclienttest

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"camdash/internal/apiclient"
	"camdash/internal/model"
)

// MockBackend implements apiclient.Backend with testify expectations.
type MockBackend struct {
	mock.Mock
}

var _ apiclient.Backend = (*MockBackend)(nil)

func (m *MockBackend) Cameras(ctx context.Context) ([]model.Camera, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Camera), args.Error(1)
}

func (m *MockBackend) Stores(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockBackend) Stats(ctx context.Context) (model.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.Stats), args.Error(1)
}

func (m *MockBackend) Mark(ctx context.Context, id, note string) error {
	return m.Called(ctx, id, note).Error(0)
}

func (m *MockBackend) Unmark(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBackend) StartDownload(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockBackend) DownloadStream(ctx context.Context) (io.ReadCloser, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockBackend) ExportMarked(ctx context.Context) ([]model.MarkedExport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.MarkedExport), args.Error(1)
}

func (m *MockBackend) VisionStatus(ctx context.Context) (model.VisionStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.VisionStatus), args.Error(1)
}

func (m *MockBackend) VisionCache(ctx context.Context) (model.ScoreCache, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.ScoreCache), args.Error(1)
}

func (m *MockBackend) AutoLearn(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockBackend) AnalyzeAll(ctx context.Context, mode model.AnalysisMode) (model.AnalysisSummary, error) {
	args := m.Called(ctx, mode)
	return args.Get(0).(model.AnalysisSummary), args.Error(1)
}

func (m *MockBackend) Compare(ctx context.Context, loja string, position model.Position, imagePath string) (model.Comparison, error) {
	args := m.Called(ctx, loja, position, imagePath)
	return args.Get(0).(model.Comparison), args.Error(1)
}

func (m *MockBackend) SetReference(ctx context.Context, loja string, position model.Position, imagePath string) error {
	return m.Called(ctx, loja, position, imagePath).Error(0)
}

func (m *MockBackend) DeleteReference(ctx context.Context, loja string, position model.Position) error {
	return m.Called(ctx, loja, position).Error(0)
}

func (m *MockBackend) References(ctx context.Context) (model.ReferenceIndex, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.ReferenceIndex), args.Error(1)
}

func (m *MockBackend) ClearReferences(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
