package scans

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginatedResult(t *testing.T) {
	r := NewPaginatedResult(nil, 1, 20, 41)
	assert.Equal(t, 3, r.TotalPages)
	assert.NotNil(t, r.Data)

	r = NewPaginatedResult([]*Scan{{ID: "a"}}, 2, 10, 10)
	assert.Equal(t, 1, r.TotalPages)
	assert.Len(t, r.Data, 1)

	assert.Equal(t, 0, NewPaginatedResult(nil, 1, 0, 5).TotalPages)
}
