package naming

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/binder/internal/errors"
)

type dataSource struct {
	URL string
}

type dataSourceBuilder struct{}

func (dataSourceBuilder) Key() string { return "jdbc" }

func (dataSourceBuilder) Build(props Properties) (ResourceFactory, error) {
	url, ok := props["url"]
	if !ok {
		return nil, fmt.Errorf("url property is required")
	}
	return ResourceFactoryFunc(func(context.Context, *ResourceInfo) (any, error) {
		return &dataSource{URL: url}, nil
	}), nil
}

func newBuilders(t *testing.T) *Builders {
	t.Helper()

	b := NewBuilders()
	require.NoError(t, b.Register("DataSource", dataSourceBuilder{}))
	return b
}

func TestFactoryRef_RoundTrip(t *testing.T) {
	builders := newBuilders(t)
	props := Properties{"url": "postgres://orders", "password": "hunter2"}

	ref, err := BuildFactoryRef("DataSource", props, builders)
	require.NoError(t, err)
	props["url"] = "mutated"

	data, err := json.Marshal(ref)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"DataSource","builder":"jdbc","properties":{"url":"postgres://orders","password":"hunter2"}}`,
		string(data))

	decoded, err := DecodeFactoryRef(data, builders)
	require.NoError(t, err)
	assert.Equal(t, "DataSource", decoded.Type)
	assert.Equal(t, "jdbc", decoded.BuilderKey)

	obj, err := decoded.CreateResource(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, &dataSource{URL: "postgres://orders"}, obj)
}

func TestDecodeFactoryRef_Failures(t *testing.T) {
	builders := newBuilders(t)

	tests := []struct {
		name string
		data string
	}{
		{"malformed", `{"type":`},
		{"missing type", `{"builder":"jdbc"}`},
		{"unknown type", `{"type":"Queue","builder":"jms"}`},
		{"builder mismatch", `{"type":"DataSource","builder":"other","properties":{"url":"x"}}`},
		{"builder rejects properties", `{"type":"DataSource","builder":"jdbc"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFactoryRef([]byte(tt.data), builders)
			require.Error(t, err)
			assert.True(t, errors.IsIO(err), err.Error())
		})
	}
}

func TestFactoryRef_StringHidesProperties(t *testing.T) {
	ref, err := NewFactoryRef("DataSource", "jdbc", &countingFactory{obj: 1}, Properties{"password": "hunter2"})
	require.NoError(t, err)

	s := ref.String()
	assert.Contains(t, s, "DataSource")
	assert.Contains(t, s, "countingFactory")
	assert.NotContains(t, s, "hunter2")
}

func TestFactoryRef_NilObjectIsInvariantViolation(t *testing.T) {
	ref, err := NewFactoryRef("DataSource", "jdbc", &countingFactory{}, nil)
	require.NoError(t, err)

	_, err = ref.CreateResource(context.Background(), nil)
	assert.True(t, errors.IsInternalInvariant(err))

	_, err = NewFactoryRef("DataSource", "jdbc", nil, nil)
	assert.ErrorIs(t, err, errors.ErrNilFactory)
}

func TestBuilders_Register(t *testing.T) {
	b := newBuilders(t)
	assert.True(t, errors.IsConfiguration(b.Register("DataSource", dataSourceBuilder{})))
	assert.True(t, errors.IsConfiguration(b.Register("", dataSourceBuilder{})))

	_, err := BuildFactoryRef("Queue", nil, b)
	assert.True(t, errors.IsConfiguration(err))
}
