package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/muster/internal/domain"
)

func sampleDescriptions() []domain.ServiceDescription {
	return []domain.ServiceDescription{
		{Name: "FrontEnd", Bindings: []domain.Binding{{Name: "default", Address: "http://localhost:7000", Protocol: "http"}}},
		{Name: "BackEnd", Bindings: []domain.Binding{{Name: "default", Address: "http://localhost:8000", Protocol: "http"}}},
		{Name: "Worker"},
		{Name: "Redis", External: true, Bindings: []domain.Binding{{Name: "default", Address: "localhost:6379", Protocol: "redis"}}},
	}
}

func TestFromDescriptions(t *testing.T) {
	r, err := FromDescriptions(sampleDescriptions())
	require.NoError(t, err)

	assert.Equal(t, 4, r.Count())

	var names []string
	for _, svc := range r.All() {
		names = append(names, svc.Name())
	}
	assert.Equal(t, []string{"FrontEnd", "BackEnd", "Worker", "Redis"}, names, "All() must keep insertion order")
}

func TestFromDescriptionsDuplicate(t *testing.T) {
	descs := append(sampleDescriptions(), domain.ServiceDescription{Name: "Worker"})

	r, err := FromDescriptions(descs)
	require.ErrorIs(t, err, ErrDuplicateService)
	assert.Nil(t, r, "no partial registry may be returned")
}

func TestGetUnknown(t *testing.T) {
	r, err := FromDescriptions(sampleDescriptions())
	require.NoError(t, err)

	svc, ok := r.Get("nope")
	assert.False(t, ok)
	assert.Nil(t, svc)
}

func TestFromDescriptionsRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		descs []domain.ServiceDescription
		want  error
	}{
		{"empty name", []domain.ServiceDescription{{Name: "Worker"}, {Name: ""}}, domain.ErrInvalidService},
		{
			"binding without address",
			[]domain.ServiceDescription{{Name: "FrontEnd", Bindings: []domain.Binding{{Name: "default", Protocol: "http"}}}},
			domain.ErrInvalidBinding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := FromDescriptions(tt.descs)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, r)
		})
	}
}

func TestGetReturnsSameRecord(t *testing.T) {
	r, err := FromDescriptions(sampleDescriptions())
	require.NoError(t, err)

	a, ok := r.Get("BackEnd")
	require.True(t, ok)
	a.SetPID(1234)

	b, _ := r.Get("BackEnd")
	pid, ok := b.PID()
	assert.True(t, ok)
	assert.Equal(t, 1234, pid)
}

func TestBindableNames(t *testing.T) {
	r, err := FromDescriptions(sampleDescriptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"FrontEnd", "BackEnd"}, r.BindableNames())
}
