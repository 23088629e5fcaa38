package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/social"
)

type sparksApi struct {
	svc      social.ServiceInterface
	validate *validator.Validate
}

func registerSparksAPI(g *echo.Group, svc social.ServiceInterface, validate *validator.Validate) {
	api := sparksApi{
		svc:      svc,
		validate: validate,
	}

	sg := g.Group("/sparks")
	sg.GET("", api.query)
	sg.POST("", api.create)

	// detail endpoints
	dg := sg.Group("/:sparkId")
	dg.GET("", api.retrieve)
	dg.GET("/echoes", api.queryEchoes)
	dg.POST("/echoes", api.createEcho)
}

// Handlers

func (api *sparksApi) query(ctx echo.Context) error {
	sparks, err := api.svc.ListSparks(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing sparks")
	}
	return ctx.JSON(http.StatusOK, sparks)
}

func (api *sparksApi) create(ctx echo.Context) error {
	var data social.NewSpark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to social.NewSpark")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	spk, err := api.svc.CreateSpark(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating spark")
	}
	return ctx.JSON(http.StatusCreated, spk)
}

func (api *sparksApi) retrieve(ctx echo.Context) error {
	spk, err := api.svc.GetSpark(ctx.Request().Context(), ctx.Param("sparkId"))
	if err != nil {
		return errors.Wrap(err, "getting spark")
	}
	return ctx.JSON(http.StatusOK, spk)
}

func (api *sparksApi) queryEchoes(ctx echo.Context) error {
	echoes, err := api.svc.ListEchoes(ctx.Request().Context(), ctx.Param("sparkId"))
	if err != nil {
		return errors.Wrap(err, "listing echoes")
	}
	return ctx.JSON(http.StatusOK, echoes)
}

func (api *sparksApi) createEcho(ctx echo.Context) error {
	var data social.NewEcho
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to social.NewEcho")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ech, err := api.svc.CreateEcho(ctx.Request().Context(), ctx.Param("sparkId"), data)
	if err != nil {
		return errors.Wrap(err, "creating echo")
	}
	return ctx.JSON(http.StatusCreated, ech)
}
