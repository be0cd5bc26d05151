package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-live/core"
	"github.com/trezcool/masomo-live/core/lecture"
)

func Test_appHTTPErrorHandler(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	type payload struct {
		Text string `json:"text" validate:"required"`
	}

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "raw validation errors are translated",
			err:      errors.Wrap(validate.Struct(payload{}), "binding"),
			wantCode: http.StatusBadRequest,
			wantBody: `{"text":"this field is required"}`,
		},
		{
			name:     "domain error",
			err:      lecture.ErrRoomCancelled,
			wantCode: http.StatusGone,
			wantBody: `{"error":"lecture has been cancelled"}`,
		},
		{
			name:     "internal error",
			err:      errors.New("db down"),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Internal Server Error"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			handle := newAppHTTPErrorHandler(core.NopLogger, translator)
			rec := httptest.NewRecorder()
			ctx := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

			handle(tt.err, ctx)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
