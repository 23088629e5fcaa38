package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/voice"
)

type voiceApi struct {
	svc      voice.ServiceInterface
	validate *validator.Validate
}

func registerVoiceAPI(g *echo.Group, svc voice.ServiceInterface, validate *validator.Validate) {
	api := voiceApi{
		svc:      svc,
		validate: validate,
	}

	vg := g.Group("/voice")
	vg.POST("/session", api.createSession)
	vg.POST("/start-bot", api.startBot)
}

// Handlers

func (api *voiceApi) createSession(ctx echo.Context) error {
	if err := api.svc.Ready(); err != nil {
		return err
	}

	var data voice.SessionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to voice.SessionRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.IssueToken(data)
	if err != nil {
		return errors.Wrap(err, "issuing voice token")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *voiceApi) startBot(ctx echo.Context) error {
	var data voice.StartBotRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to voice.StartBotRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.StartBot(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "starting voice bot")
	}
	if res.Bot != nil {
		return ctx.JSONBlob(http.StatusOK, res.Bot)
	}
	return ctx.JSON(http.StatusOK, res)
}
