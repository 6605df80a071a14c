package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xerocraft/backend/internal/domain/shared"
	"github.com/xerocraft/backend/internal/interfaces/http/dto"
	"github.com/xerocraft/backend/internal/interfaces/http/router"
	"github.com/xerocraft/backend/tests/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("no books.sale %d: %w", 4, shared.ErrNotFound), http.StatusNotFound, dto.ErrCodeNotFound},
		{"already exists", shared.ErrAlreadyExists, http.StatusConflict, dto.ErrCodeAlreadyExists},
		{"invalid state", shared.ErrInvalidState, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState},
		{"field", shared.NewValidationError("sale_date", "Date cannot be in the future.", nil), http.StatusBadRequest, dto.ErrCodeValidation},
		{"reverse", fmt.Errorf("change url: %w", router.ErrNoReverseMatch), http.StatusInternalServerError, dto.ErrCodeNoReverseMatch},
		{"deadline", fmt.Errorf("list: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, dto.ErrCodeTimeout},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := testutil.NewTestContext(t)
			tc.SetRequestID("req-7")

			h := &BaseHandler{}
			h.HandleError(tc.Context, tt.err)

			assert.Equal(t, tt.status, tc.ResponseCode())
			errInfo := testutil.AssertErrorResponse(t, tc.Recorder, tt.code)
			assert.Equal(t, "req-7", errInfo["request_id"])
		})
	}
}

func TestBaseHandler_HandleError_KeepsNotFoundContext(t *testing.T) {
	tc := testutil.NewTestContext(t)
	(&BaseHandler{}).HandleError(tc.Context, fmt.Errorf("no books.sale 4: %w", shared.ErrNotFound))

	errInfo := testutil.AssertErrorResponse(t, tc.Recorder, dto.ErrCodeNotFound)
	assert.Equal(t, "no books.sale 4: Resource not found", errInfo["message"])
}

func TestBaseHandler_HandleError_ValidationDetails(t *testing.T) {
	tc := testutil.NewTestContext(t)
	(&BaseHandler{}).HandleError(tc.Context, shared.NewValidationError("ctrlid", "Taken.", "000001"))

	errInfo := testutil.AssertErrorResponse(t, tc.Recorder, dto.ErrCodeValidation)
	details, ok := errInfo["details"].([]any)
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, map[string]any{"field": "ctrlid", "message": "Taken."}, details[0])
}

func TestBaseHandler_HandleError_Nil(t *testing.T) {
	tc := testutil.NewTestContext(t)
	(&BaseHandler{}).HandleError(tc.Context, nil)
	assert.Empty(t, tc.ResponseBody())
}

func TestBaseHandler_Responses(t *testing.T) {
	h := &BaseHandler{}

	tc := testutil.NewTestContext(t)
	h.Created(tc.Context, map[string]int{"id": 1})
	assert.Equal(t, http.StatusCreated, tc.ResponseCode())
	assert.Equal(t, map[string]any{"id": float64(1)}, testutil.AssertSuccessResponse(t, tc.Recorder))

	tc = testutil.NewTestContext(t)
	h.SuccessWithMeta(tc.Context, []string{}, 7, 2, 5)
	resp := testutil.JSONResponse(t, tc.Recorder)
	assert.Equal(t, map[string]any{"total": float64(7), "page": float64(2), "page_size": float64(5), "total_pages": float64(2)}, resp["meta"])

	tc = testutil.NewTestContext(t)
	h.BadRequest(tc.Context, "bad")
	testutil.AssertErrorResponse(t, tc.Recorder, dto.ErrCodeBadRequest)
}
