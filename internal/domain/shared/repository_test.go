package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Offset(t *testing.T) {
	assert.Equal(t, 0, DefaultFilter().Offset())
	assert.Equal(t, 40, Filter{Page: 3, PageSize: 20}.Offset())
	assert.Equal(t, 0, Filter{Page: 0, PageSize: 20}.Offset())
	assert.Equal(t, 0, Filter{Page: 2}.Offset())
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]string{"a", "b"}, 41, 1, 20)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, []string{"a", "b"}, p.Items)

	assert.Equal(t, 0, NewPaginated[string](nil, 5, 1, 0).TotalPages)
	assert.Equal(t, 0, NewPaginated[string](nil, 0, 1, 20).TotalPages)
}
