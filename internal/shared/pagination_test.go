package shared

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginationClampsInputs(t *testing.T) {
	p := NewPagination(0, 0, 45)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Equal(t, 3, p.TotalPages)

	empty := NewPagination(5, 20, 0)
	assert.Equal(t, 1, empty.Page, "page clamps to the last page")
	assert.Equal(t, 1, empty.TotalPages)
}

func TestPaginationWindow(t *testing.T) {
	p := NewPagination(2, 20, 45)
	assert.Equal(t, 20, p.Offset())
	assert.True(t, p.HasPrev())
	assert.True(t, p.HasNext())
	assert.Equal(t, 1, p.PrevPage())
	assert.Equal(t, 3, p.NextPage())

	last := NewPagination(3, 20, 45)
	assert.False(t, last.HasNext())
	assert.Equal(t, 3, last.NextPage())
}

func TestPageParam(t *testing.T) {
	assert.Equal(t, 1, PageParam(url.Values{}))
	assert.Equal(t, 1, PageParam(url.Values{"page": {"junk"}}))
	assert.Equal(t, 1, PageParam(url.Values{"page": {"-3"}}))
	assert.Equal(t, 7, PageParam(url.Values{"page": {"7"}}))
}
