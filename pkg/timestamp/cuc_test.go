package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAtIsDeterministic(t *testing.T) {
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := At(ref)
	b := At(ref)
	assert.Equal(t, a, b)
	assert.Equal(t, byte(PField), a[0])
}

func TestAtCoarseTimeIncreases(t *testing.T) {
	t0 := At(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	t1 := At(time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC))
	assert.NotEqual(t, t0, t1)
}
