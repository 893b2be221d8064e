package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, CleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, CleanJSON("```\n{\"a\":1}```"))
	assert.Equal(t, `[1,2]`, CleanJSON("  [1,2]  "))
}

func TestParsePage(t *testing.T) {
	page, limit := ParsePage("", "")
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	page, limit = ParsePage("3", "500")
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, limit)

	page, limit = ParsePage("-2", "abc")
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)
}

func TestParseOptionalBool(t *testing.T) {
	assert.Nil(t, ParseOptionalBool(""))
	assert.Nil(t, ParseOptionalBool("maybe"))
	assert.True(t, *ParseOptionalBool("true"))
	assert.False(t, *ParseOptionalBool("0"))
}

func TestHasAllowedExtension(t *testing.T) {
	assert.True(t, HasAllowedExtension("me.JPG", AllowedImageExtensions))
	assert.False(t, HasAllowedExtension("me.bmp", AllowedImageExtensions))
}
