package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/images"
	"github.com/trezcool/academia/services/metrics"
)

type imagesApi struct {
	searcher images.Searcher
	validate *validator.Validate
}

func registerImagesAPI(
	g *echo.Group,
	rps float64,
	searcher images.Searcher,
	validate *validator.Validate,
	m *metricsvc.Metrics,
) {
	api := imagesApi{
		searcher: searcher,
		validate: validate,
	}

	g.POST("/images", api.search, rateLimitMiddleware(rps, m))
}

// Handlers

func (api *imagesApi) search(ctx echo.Context) error {
	var data images.SearchRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to images.SearchRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	img, err := api.searcher.Search(ctx.Request().Context(), data.Query)
	if err != nil {
		return errors.Wrap(err, "searching image")
	}
	return ctx.JSON(http.StatusOK, img)
}
