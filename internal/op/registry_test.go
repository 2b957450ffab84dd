package op

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndNew(t *testing.T) {
	Register("registryTestOnlyOp", func() Operator { return &addOp{} })

	instance, err := New("registryTestOnlyOp")
	require.NoError(t, err)
	assert.Equal(t, "Add", instance.ClassName())
}

func TestNewUnknownClassErrors(t *testing.T) {
	_, err := New("thisClassDoesNotExist")
	assert.Error(t, err)
}

func TestRegisterPanicsOnDuplicate(t *testing.T) {
	Register("registryTestDuplicateOp", func() Operator { return &addOp{} })
	assert.Panics(t, func() {
		Register("registryTestDuplicateOp", func() Operator { return &addOp{} })
	})
}

func TestNamesIncludesRegistered(t *testing.T) {
	Register("registryTestNamesOp", func() Operator { return &addOp{} })
	assert.Contains(t, Names(), "registryTestNamesOp")
}
