package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjects(t *testing.T) {
	raw := "loading {pairs}\n{\"a\": 1}\nprogress 50%\n{\n  \"b\": \"}\",\n  \"c\": {\"d\": 2}\n}\n"
	objs := Objects(raw)
	assert.Equal(t, []string{"{pairs}", `{"a": 1}`, "{\n  \"b\": \"}\",\n  \"c\": {\"d\": 2}\n}"}, objs)

	last, ok := LastObject(raw)
	assert.True(t, ok)
	assert.Equal(t, objs[2], last)
}

func TestObjectsUnterminated(t *testing.T) {
	assert.Equal(t, []string{`{"x": 1}`}, Objects(`{ broken {"x": 1}`))
	_, ok := LastObject("no json here")
	assert.False(t, ok)
}
