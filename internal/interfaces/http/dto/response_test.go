package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 101, 2, 50)
	assert.True(t, resp.Success)
	assert.Equal(t, &Meta{Total: 101, Page: 2, PageSize: 50, TotalPages: 3}, resp.Meta)

	resp = NewSuccessResponseWithMeta(nil, 45, 1, 0)
	assert.Equal(t, 20, resp.Meta.PageSize)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "No sale with id 3", "req-1")
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.WithinDuration(t, time.Now(), resp.Error.Timestamp, time.Minute)

	raw, err := json.Marshal(NewErrorResponse(ErrCodeInternal, "boom"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "request_id")
	assert.NotContains(t, string(raw), "details")
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{{Field: "sale_date", Message: "Date cannot be in the future."}}
	resp := NewValidationErrorResponse("Invalid sale", "req-2", details)

	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, details, resp.Error.Details)
}

func TestListRequest_Ordering(t *testing.T) {
	assert.Nil(t, DefaultListRequest().Ordering())
	assert.Equal(t, []string{"name"}, ListRequest{OrderBy: "name", OrderDir: "asc"}.Ordering())
	assert.Equal(t, []string{"-sale_date"}, ListRequest{OrderBy: "sale_date", OrderDir: "desc"}.Ordering())
}
