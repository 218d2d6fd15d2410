package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	l, ok := Lookup("ES")
	assert.True(t, ok)
	assert.Equal(t, "Spanish", l.Name)

	_, ok = Lookup("xx")
	assert.False(t, ok)
}

func TestNameFallbacks(t *testing.T) {
	assert.Equal(t, "French", NativeName("fr"))
	assert.Equal(t, "English", NativeName("xx"))
	assert.Equal(t, "Japanese", TargetName("ja"))
	assert.Equal(t, "Spanish", TargetName(""))
}

func TestDefaultsAreValid(t *testing.T) {
	assert.True(t, Valid(DefaultNative))
	assert.True(t, Valid(DefaultTarget))
}

func TestAllReturnsCopy(t *testing.T) {
	all := All()
	all[0].Name = "changed"
	assert.Equal(t, "English", NativeName("en"))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "🇪🇸 Spanish", Label("es"))
	assert.Equal(t, "xx", Label("xx"))
}
