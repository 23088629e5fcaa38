package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/role"
)

type roleApi struct {
	svc role.ServiceInterface
}

type promoteRequest struct {
	Role string `json:"role"`
}

func registerRoleAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc role.ServiceInterface) {
	api := roleApi{svc: svc}

	g.POST("/promote-role", api.promote, jwt)
}

// Handlers

// promote sets the caller's own role; the caller is the JWT subject.
func (api *roleApi) promote(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data promoteRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to promoteRequest")
	}

	meta, err := api.svc.Promote(ctx.Request().Context(), claims.Subject, data.Role)
	if err != nil {
		return errors.Wrap(err, "promoting user")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"user_id": meta.UserID, "role": meta.Role})
}
