package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/binder/internal/errors"
)

func TestBindingMap_Bind(t *testing.T) {
	m := NewBindingMap[int]("module")

	require.NoError(t, m.Bind("module/a", 1))
	err := m.Bind("module/a", 2)
	require.Error(t, err)
	assert.True(t, errors.IsDuplicateBinding(err))
	assert.True(t, errors.IsConfiguration(err))

	v, ok := m.Lookup("module/a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	assert.ErrorIs(t, m.Bind("", 3), errors.ErrEmptyName)
}

func TestBindingMap_PrefixQueries(t *testing.T) {
	m := NewBindingMap[string]("component")
	for _, name := range []string{
		"comp/env/jdbc/orders",
		"comp/env/jdbc/audit",
		"comp/env/mail",
		"comp/envelope",
	} {
		require.NoError(t, m.Bind(name, name))
	}

	tests := []struct {
		prefix string
		want   bool
	}{
		{"comp/env", true},
		{"comp/env/", true},
		{"comp/env/jdbc", true},
		{"comp/env/jdbc/orders", true},
		{"comp/env/jd", false},
		{"comp/other", false},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			assert.Equal(t, tt.want, m.HasPrefix(tt.prefix))
		})
	}

	assert.Equal(t, []string{"jdbc", "mail"}, m.ListChildren("comp/env"))
	assert.Equal(t, []string{"audit", "orders"}, m.ListChildren("comp/env/jdbc"))
	assert.Equal(t, []string{"env", "envelope"}, m.ListChildren("comp"))
	assert.Empty(t, m.ListChildren("comp/missing"))
}

func TestBindingMap_Unbind(t *testing.T) {
	m := NewBindingMap[int]("module")
	require.NoError(t, m.Bind("module/a", 1))

	assert.True(t, m.Unbind("module/a"))
	assert.False(t, m.Unbind("module/a"))
	assert.Equal(t, 0, m.Len())
}

func TestBindingTxn(t *testing.T) {
	m := NewBindingMap[int]("component")
	require.NoError(t, m.Bind("comp/existing", 0))

	t.Run("batch is invisible until commit", func(t *testing.T) {
		txn := m.Txn()
		require.NoError(t, txn.Bind("comp/a", 1))
		require.NoError(t, txn.Bind("comp/b", 2))

		_, ok := m.Lookup("comp/a")
		assert.False(t, ok)

		txn.Commit()
		assert.Equal(t, []string{"comp/a", "comp/b", "comp/existing"}, m.Names())
	})

	t.Run("duplicates within and across batches", func(t *testing.T) {
		txn := m.Txn()
		require.NoError(t, txn.Bind("comp/c", 3))
		assert.True(t, errors.IsDuplicateBinding(txn.Bind("comp/c", 4)))
		assert.True(t, errors.IsDuplicateBinding(txn.Bind("comp/existing", 5)))

		// abandoned without commit
		_, ok := m.Lookup("comp/c")
		assert.False(t, ok)
	})
}
