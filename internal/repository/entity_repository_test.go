package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deanwagman/peregrine/internal/domain"
)

func bike(props ...domain.Property) domain.Entity {
	return domain.NewEntity("bike", props)
}

func prop(slug string, value domain.Value) domain.Property {
	return domain.Property{Slug: slug, Type: domain.TypeOf(value), Value: value}
}

func seedBikes(t *testing.T, store EntityStore) {
	t.Helper()
	result, err := store.Save(context.Background(), []domain.Entity{
		bike(prop("color", domain.Text("red")), prop("year", domain.Integer(2008)), prop("stolen", domain.Boolean(true))),
		bike(prop("color", domain.Text("blue")), prop("year", domain.Integer(2010)), prop("stolen", domain.Boolean(false))),
		bike(prop("color", domain.Text("red")), prop("year", domain.Integer(2010))),
		domain.NewEntity("person", []domain.Property{prop("hair_color", domain.Text("brown"))}),
	})
	require.NoError(t, err)
	require.Equal(t, 4, result.Saved)
	require.Empty(t, result.Rejected)
}

func TestEntityRepositoryModels(t *testing.T) {
	t.Parallel()

	store := NewEntityRepository(newTestConnection(t), nil)
	ctx := context.Background()

	models, err := store.Models(ctx)
	require.NoError(t, err)
	assert.Empty(t, models)

	seedBikes(t, store)

	models, err = store.Models(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bike", "person"}, models)
}

func TestEntityRepositoryQuery(t *testing.T) {
	t.Parallel()

	store := NewEntityRepository(newTestConnection(t), nil)
	seedBikes(t, store)
	ctx := context.Background()

	tests := []struct {
		name   string
		model  string
		filter domain.FilterMap
		want   []domain.Record
	}{
		{
			name:  "no filter returns every record in insertion order",
			model: "bike",
			want: []domain.Record{
				{"color": domain.Text("red"), "year": domain.Integer(2008), "stolen": domain.Boolean(true)},
				{"color": domain.Text("blue"), "year": domain.Integer(2010), "stolen": domain.Boolean(false)},
				{"color": domain.Text("red"), "year": domain.Integer(2010)},
			},
		},
		{
			name:   "boolean column matches integer one",
			model:  "bike",
			filter: domain.FilterMap{"stolen": {domain.Integer(1)}},
			want: []domain.Record{
				{"color": domain.Text("red"), "year": domain.Integer(2008), "stolen": domain.Boolean(true)},
			},
		},
		{
			name:   "text filter value never matches integer column",
			model:  "bike",
			filter: domain.FilterMap{"year": {domain.Text("2008")}},
			want:   []domain.Record{},
		},
		{
			name:   "values within a key are alternatives, keys are conjunctive",
			model:  "bike",
			filter: domain.FilterMap{"year": {domain.Integer(2008), domain.Integer(2010)}, "color": {domain.Text("red")}},
			want: []domain.Record{
				{"color": domain.Text("red"), "year": domain.Integer(2008), "stolen": domain.Boolean(true)},
				{"color": domain.Text("red"), "year": domain.Integer(2010)},
			},
		},
		{
			name:   "property the model lacks",
			model:  "person",
			filter: domain.FilterMap{"year": {domain.Integer(2008)}},
			want:   []domain.Record{},
		},
		{
			name:  "unknown model",
			model: "car",
			want:  []domain.Record{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.model, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEntityRepositorySaveRejectsTypeConflicts(t *testing.T) {
	t.Parallel()

	store := NewEntityRepository(newTestConnection(t), nil)
	ctx := context.Background()

	result, err := store.Save(ctx, []domain.Entity{
		bike(prop("year", domain.Integer(2008)), prop("weight", domain.Float(9.5))),
		bike(prop("year", domain.Text("two thousand"))),
		bike(prop("year", domain.Integer(2011)), prop("weight", domain.Integer(10))),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Saved)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, 1, result.Rejected[0].Index)
	assert.Equal(t, "bike", result.Rejected[0].Model)
	assert.Contains(t, result.Rejected[0].Reason, ErrTypeConflict.Error())

	records, err := store.Query(ctx, "bike", domain.FilterMap{"weight": {domain.Integer(10)}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.Float(10), records[0]["weight"])
}

func TestEntityRepositorySaveAddsColumnsAcrossBatches(t *testing.T) {
	t.Parallel()

	store := NewEntityRepository(newTestConnection(t), nil)
	ctx := context.Background()

	_, err := store.Save(ctx, []domain.Entity{bike(prop("color", domain.Text("red")))})
	require.NoError(t, err)
	_, err = store.Save(ctx, []domain.Entity{bike(prop("size", domain.Text("large"))), bike()})
	require.NoError(t, err)

	records, err := store.Query(ctx, "bike", nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.Record{
		{"color": domain.Text("red")},
		{"size": domain.Text("large")},
		{},
	}, records)
}

func TestEntityRepositoryModelsDifferingOnlyByCase(t *testing.T) {
	t.Parallel()

	store := NewEntityRepository(newTestConnection(t), nil)
	ctx := context.Background()

	_, err := store.Save(ctx, []domain.Entity{
		domain.NewEntity("vehicle", []domain.Property{prop("make", domain.Text("toyota"))}),
	})
	require.NoError(t, err)
	_, err = store.Save(ctx, []domain.Entity{
		domain.NewEntity("Vehicle", []domain.Property{prop("color", domain.Text("red"))}),
	})
	require.NoError(t, err)

	models, err := store.Models(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Vehicle", "vehicle"}, models)

	lower, err := store.Query(ctx, "vehicle", nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.Record{{"make": domain.Text("toyota")}}, lower)

	upper, err := store.Query(ctx, "Vehicle", nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.Record{{"color": domain.Text("red")}}, upper)
}

func TestEntityRepositorySlugsDifferingOnlyByCase(t *testing.T) {
	t.Parallel()

	store := NewEntityRepository(newTestConnection(t), nil)
	ctx := context.Background()

	result, err := store.Save(ctx, []domain.Entity{
		bike(prop("color", domain.Text("red"))),
		bike(prop("Color", domain.Integer(3)), prop("color", domain.Text("blue"))),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Saved)

	records, err := store.Query(ctx, "bike", domain.FilterMap{"Color": {domain.Integer(3)}})
	require.NoError(t, err)
	assert.Equal(t, []domain.Record{
		{"Color": domain.Integer(3), "color": domain.Text("blue")},
	}, records)
}
