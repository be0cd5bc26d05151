package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-live/apps/api/ws"
	"github.com/trezcool/masomo-live/core"
)

type liveApi struct {
	handler *ws.Handler
	logger  core.Logger
}

func registerLiveAPI(g *echo.Group, jwt echo.MiddlewareFunc, handler *ws.Handler, logger core.Logger) {
	api := liveApi{handler: handler, logger: logger}
	g.GET("/live", api.serve, jwt)
}

// serve upgrades to the websocket carrying the lecture commands and events.
// The token is the connection's verified identity.
func (api *liveApi) serve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	ident := ws.Identity{UserID: claims.Subject, Name: claims.Name, Role: claims.Role}
	if err := api.handler.Serve(ctx.Response(), ctx.Request(), ident); err != nil {
		// the upgrader has already answered
		api.logger.Debug("live connection refused: " + err.Error())
	}
	return nil
}
