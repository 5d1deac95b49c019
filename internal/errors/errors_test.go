package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilder(t *testing.T) {
	t.Parallel()

	base := fmt.Errorf("camera 2 did not produce a file")
	err := New(base).
		Component("capture").
		Category(CategoryCapture).
		Context("camera", 2).
		Build()

	assert.Equal(t, base.Error(), err.Error())
	assert.Equal(t, "capture", err.GetComponent())
	assert.Equal(t, string(CategoryCapture), err.GetCategory())
	assert.Equal(t, 2, err.GetContext()["camera"])
	require.ErrorIs(t, err, base)
}

func TestDefaultCategory(t *testing.T) {
	t.Parallel()

	err := Newf("boom").Build()
	assert.Equal(t, string(CategoryGeneric), err.GetCategory())
}

func TestCategoryMatching(t *testing.T) {
	t.Parallel()

	a := Newf("a").Category(CategoryDatabase).Build()
	b := Newf("b").Category(CategoryDatabase).Build()
	c := Newf("c").Category(CategoryNetwork).Build()

	assert.True(t, a.Is(b), "same category should match")
	assert.False(t, a.Is(c), "different category should not match")
}

func TestPriorityValidation(t *testing.T) {
	t.Parallel()

	err := Newf("x").Priority("nonsense").Build()
	assert.Equal(t, PriorityMedium, err.Priority)

	err = Newf("x").Priority(PriorityCritical).Build()
	assert.Equal(t, PriorityCritical, err.Priority)
}

func TestContextCopyIsolation(t *testing.T) {
	t.Parallel()

	err := Newf("x").Context("k", "v").Build()
	ctx := err.GetContext()
	ctx["k"] = "mutated"
	assert.Equal(t, "v", err.GetContext()["k"])
}
