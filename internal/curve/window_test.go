package curve

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matrixWithRows(t *testing.T, rows int) *Matrix {
	t.Helper()
	values := make(map[int]string, rows)
	for i := 0; i < rows; i++ {
		values[i] = fmt.Sprintf("%f", float64(i))
	}
	m, err := Align(map[string]RawSeries{"a": mkSeries(values)}, []string{"a"})
	require.NoError(t, err)
	require.Equal(t, rows, m.Rows())
	return m
}

func TestWindow(t *testing.T) {
	t.Run("30 years at 252 trading days exceeds 5000 rows", func(t *testing.T) {
		m := matrixWithRows(t, 5000)
		_, ok := Window(m, 30, 252)
		assert.False(t, ok)
	})

	t.Run("30 years at 252 trading days fits 10000 rows exactly at 7560", func(t *testing.T) {
		m := matrixWithRows(t, 10000)
		w, ok := Window(m, 30, 252)
		require.True(t, ok)
		assert.Equal(t, 7560, w.Rows())

		// The window holds the most recent dates, in the same order
		assert.Equal(t, m.Date(m.Rows()-1), w.Date(w.Rows()-1))
		assert.Equal(t, m.Date(m.Rows()-7560), w.Date(0))
		assert.Equal(t, m.At(m.Rows()-1, 0), w.At(w.Rows()-1, 0))
	})

	t.Run("window is a self-contained copy", func(t *testing.T) {
		m := matrixWithRows(t, 10)
		w, ok := Window(m, 1, 5)
		require.True(t, ok)
		require.Equal(t, 5, w.Rows())

		w.data[0] = -999
		w.dates[0] = time.Time{}
		assert.NotEqual(t, -999.0, m.At(5, 0))
		assert.False(t, m.Date(5).IsZero())
	})

	t.Run("exact fit succeeds", func(t *testing.T) {
		m := matrixWithRows(t, 252)
		w, ok := Window(m, 1, 252)
		require.True(t, ok)
		assert.Equal(t, 252, w.Rows())
	})

	t.Run("one row short is insufficient", func(t *testing.T) {
		m := matrixWithRows(t, 251)
		_, ok := Window(m, 1, 252)
		assert.False(t, ok)
	})
}
