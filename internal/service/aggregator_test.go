package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/deanwagman/peregrine/internal/domain"
	"github.com/deanwagman/peregrine/internal/service"
	"github.com/deanwagman/peregrine/internal/service/mocks"
)

func encode(t *testing.T, result domain.Result) string {
	t.Helper()
	data, err := json.Marshal(result)
	require.NoError(t, err)
	return string(data)
}

func person(hair string) domain.Entity {
	return domain.NewEntity("person", []domain.Property{
		{Slug: "hair_color", Type: domain.PropertyTypeString, Value: domain.Text(hair)},
	})
}

func TestAggregator_FromEntities(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	recorder := mocks.NewMockInvocationRecorder(ctrl)
	recorder.EXPECT().RecordInvocation(gomock.Any(), "peregrine aggregate", "alice").Return(nil)

	aggregator := service.NewAggregator(service.WithRecorder(recorder))
	report, err := aggregator.FromEntities(context.Background(),
		[]domain.Entity{person("brown"), person("black"), person("brown")},
		service.Request{
			Models:     []string{"person"},
			Properties: []string{"hair_color:brown,black", "broken"},
			Command:    "peregrine aggregate",
			User:       "alice",
		})
	require.NoError(t, err)

	assert.Equal(t, `{"hair_color":[["brown",2],["black",1]]}`, encode(t, report.Result))
	assert.Equal(t, 3, report.Entities)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "broken")
}

func TestAggregator_FromEntitiesIgnoresRecorderFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	recorder := mocks.NewMockInvocationRecorder(ctrl)
	recorder.EXPECT().RecordInvocation(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	aggregator := service.NewAggregator(service.WithRecorder(recorder), service.WithLogger(nil))
	report, err := aggregator.FromEntities(context.Background(), []domain.Entity{person("brown")}, service.Request{})
	require.NoError(t, err)
	assert.Equal(t, `{"hair_color":[["brown",1]]}`, encode(t, report.Result))
}

func TestAggregator_FromStore(t *testing.T) {
	t.Parallel()

	stolen := domain.FilterMap{"stolen": {domain.Integer(1)}}

	tests := []struct {
		name          string
		request       service.Request
		setupMocks    func(*mocks.MockRecordSource, *mocks.MockInvocationRecorder)
		expectedJSON  string
		expectedError string
	}{
		{
			name:    "requested models are queried with the parsed filter",
			request: service.Request{Models: []string{"bike", "car", "bike"}, Properties: []string{"stolen:1"}},
			setupMocks: func(source *mocks.MockRecordSource, recorder *mocks.MockInvocationRecorder) {
				source.EXPECT().Query(gomock.Any(), "bike", stolen).Return([]domain.Record{
					{"stolen": domain.Boolean(true), "color": domain.Text("red")},
				}, nil)
				source.EXPECT().Query(gomock.Any(), "car", stolen).Return([]domain.Record{
					{"stolen": domain.Boolean(true), "color": domain.Text("blue")},
					{"stolen": domain.Boolean(true), "color": domain.Text("blue")},
				}, nil)
				recorder.EXPECT().RecordInvocation(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			},
			expectedJSON: `{"color":[["blue",2],["red",1]],"stolen":[["true",3]]}`,
		},
		{
			name:    "all stored models when none are requested",
			request: service.Request{},
			setupMocks: func(source *mocks.MockRecordSource, recorder *mocks.MockInvocationRecorder) {
				source.EXPECT().Models(gomock.Any()).Return([]string{"person"}, nil)
				source.EXPECT().Query(gomock.Any(), "person", domain.FilterMap{}).Return([]domain.Record{
					{"hair_color": domain.Text("brown")},
				}, nil)
				recorder.EXPECT().RecordInvocation(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			},
			expectedJSON: `{"hair_color":[["brown",1]]}`,
		},
		{
			name:    "no records yields an empty result",
			request: service.Request{Models: []string{"ghost"}},
			setupMocks: func(source *mocks.MockRecordSource, recorder *mocks.MockInvocationRecorder) {
				source.EXPECT().Query(gomock.Any(), "ghost", domain.FilterMap{}).Return([]domain.Record{}, nil)
				recorder.EXPECT().RecordInvocation(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			},
			expectedJSON: `{}`,
		},
		{
			name:    "query failure is fatal and nothing is recorded",
			request: service.Request{Models: []string{"bike"}},
			setupMocks: func(source *mocks.MockRecordSource, _ *mocks.MockInvocationRecorder) {
				source.EXPECT().Query(gomock.Any(), "bike", gomock.Any()).Return(nil, errors.New("connection refused"))
			},
			expectedError: "connection refused",
		},
		{
			name:    "model listing failure is fatal",
			request: service.Request{},
			setupMocks: func(source *mocks.MockRecordSource, _ *mocks.MockInvocationRecorder) {
				source.EXPECT().Models(gomock.Any()).Return(nil, errors.New("no such table"))
			},
			expectedError: "failed to list models",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)

			source := mocks.NewMockRecordSource(ctrl)
			recorder := mocks.NewMockInvocationRecorder(ctrl)
			tt.setupMocks(source, recorder)

			aggregator := service.NewAggregator(service.WithSource(source), service.WithRecorder(recorder))
			report, err := aggregator.FromStore(context.Background(), tt.request)
			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedJSON, encode(t, report.Result))
		})
	}
}

func TestAggregator_FromStoreRequiresSource(t *testing.T) {
	t.Parallel()

	_, err := service.NewAggregator().FromStore(context.Background(), service.Request{})
	require.Error(t, err)
}
