package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategories(t *testing.T) {
	categories, err := parseCategories([]string{"1234567-01=消耗品", " 1234568 = 工具 "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"1234567-01": "消耗品",
		"1234568":    "工具",
	}, categories)

	_, err = parseCategories([]string{"missing-separator"})
	assert.Error(t, err)

	_, err = parseCategories([]string{"=label"})
	assert.Error(t, err)
}

func TestGetHelpDescribesAutoFill(t *testing.T) {
	assert.Contains(t, getCmd().Long, "only applied to orders whose")
}
