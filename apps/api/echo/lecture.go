package echoapi

import (
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-live/core"
	"github.com/trezcool/masomo-live/core/lecture"
)

type (
	lectureApi struct {
		svc        *lecture.Service
		validate   *validator.Validate
		translator ut.Translator
	}

	// SubtitleRequest is a transcript chunk posted by the speech-to-text source.
	SubtitleRequest struct {
		Text     string `json:"text" validate:"required,notblank"`
		Language string `json:"language" validate:"omitempty,max=16"`
	}

	broadcastResponse struct {
		Delivered int `json:"delivered"`
	}
)

func registerLectureAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *lecture.Service,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := lectureApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
	}

	lg := g.Group("/lectures/:id", jwt)
	lg.GET("/stats", api.stats)
	lg.POST("/subtitles", api.subtitles, rolesMiddleware(lecture.RoleProfessor, lecture.RoleAdmin))
}

// Handlers

func (api *lectureApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting lecture stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *lectureApi) subtitles(ctx echo.Context) error {
	var data SubtitleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubtitleRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return core.TranslateValidationErrors(err, api.translator)
	}

	n, err := api.svc.Broadcast(ctx.Param("id"), lecture.EventNewSubtitle, lecture.Subtitle{
		Text:      core.CleanString(data.Text),
		Language:  data.Language,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "broadcasting subtitle")
	}
	return ctx.JSON(http.StatusAccepted, broadcastResponse{Delivered: n})
}
