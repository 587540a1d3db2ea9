package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core/notification"
	"github.com/trezcool/classroom/core/user"
)

type notificationApi struct {
	svc      notification.ServiceInterface
	usrSvc   user.ServiceInterface
	validate *validator.Validate
}

func registerNotificationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc notification.ServiceInterface,
	usrSvc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := notificationApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.query)
	ng.POST("", api.create)
	ng.GET("/unread", api.unread)
	ng.POST("/mark_all_read", api.markAllRead)
	ng.GET("/:id", api.retrieve)
	ng.PATCH("/:id/mark_as_read", api.markAsRead)
	ng.PATCH("/:id/mark_as_unread", api.markAsUnread)
	ng.DELETE("/:id", api.destroy)
}

// Handlers

func (api *notificationApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var filter notification.QueryFilter
	var created createdRange
	if err = ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []notification.Item{})
	}
	if err = ctx.Bind(&created); err != nil {
		return ctx.JSON(http.StatusOK, []notification.Item{})
	}
	filter.CreatedFrom = created.From.ptr()
	filter.CreatedTo = created.To.ptr()

	items, err := api.svc.List(ctx.Request().Context(), usr, filter)
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *notificationApi) unread(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	items, err := api.svc.Unread(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "listing unread notifications")
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *notificationApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data notification.NewNotification
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotification")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	n, err := api.svc.Send(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "sending notification")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *notificationApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	item, err := api.svc.Retrieve(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving notification")
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api *notificationApi) markAsRead(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	n, err := api.svc.MarkAsRead(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking notification as read")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) markAsUnread(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	n, err := api.svc.MarkAsUnread(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking notification as unread")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	cnt, err := api.svc.MarkAllRead(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "marking all notifications as read")
	}
	return ctx.JSON(http.StatusOK, MarkAllReadResponse{Updated: cnt})
}

func (api *notificationApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type MarkAllReadResponse struct {
	Updated int `json:"updated"`
}
