package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/notification"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/user"
)

type notificationApi struct {
	deps *ServerDeps
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := notificationApi{deps: deps}

	ng := g.Group("/notifications", jwt)

	ng.POST("", api.create, roleMiddleware(user.RoleTeacher))
	ng.GET("/parent", api.queryByParent, roleMiddleware(user.RoleParent))
	ng.GET("/student/:studentID", api.queryByStudent, roleMiddleware(user.RoleTeacher, user.RoleConsultant))
	ng.POST("/:id/acknowledge", api.acknowledge, roleMiddleware(user.RoleParent))
	ng.POST("/:id/retry-email", api.retryEmail, roleMiddleware(user.RoleTeacher))
}

// Handlers

func (api *notificationApi) create(ctx echo.Context) error {
	var data CreateNotificationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CreateNotificationRequest")
	}
	data.StudentID = core.CleanString(data.StudentID)
	if err := data.Result.Validate(api.deps.Validate); err != nil {
		return err
	}

	n, err := api.deps.NotifSvc.CreateFromResult(ctx.Request().Context(), data.StudentID, data.Result)
	if err != nil {
		return err
	}
	if n == nil {
		// score not low enough to notify
		return ctx.JSON(http.StatusOK, echo.Map{"created": false})
	}

	if err = api.deps.NotifSvc.DispatchEmail(ctx.Request().Context(), n); err != nil {
		return errors.Wrap(err, "dispatching email")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *notificationApi) queryByParent(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var acknowledged *bool
	switch ctx.QueryParam("acknowledged") {
	case "true":
		t := true
		acknowledged = &t
	case "false":
		f := false
		acknowledged = &f
	}
	page := new(Pagination)
	page.Bind(ctx)

	notifs, total, err := api.deps.NotifSvc.QueryByParent(ctx.Request().Context(), claims.Subject, acknowledged, page.Limit, page.Offset)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []notification.ParentNotification{}
	}
	return ctx.JSON(http.StatusOK, PageResponse{Count: total, Results: notifs})
}

func (api *notificationApi) queryByStudent(ctx echo.Context) error {
	page := new(Pagination)
	page.Bind(ctx)

	notifs, total, err := api.deps.NotifSvc.QueryByStudent(ctx.Request().Context(), ctx.Param("studentID"), page.Limit, page.Offset)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []notification.ParentNotification{}
	}
	return ctx.JSON(http.StatusOK, PageResponse{Count: total, Results: notifs})
}

func (api *notificationApi) acknowledge(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data AcknowledgeRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AcknowledgeRequest")
	}

	n, err := api.deps.NotifSvc.Acknowledge(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data.Response, data.RequestMeeting)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) retryEmail(ctx echo.Context) error {
	n, err := api.deps.NotifSvc.RetryEmail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, n)
}

type (
	CreateNotificationRequest struct {
		StudentID string          `json:"student_id"`
		Result    core.QuizResult `json:"quiz_result"`
	}

	AcknowledgeRequest struct {
		Response       string `json:"response"`
		RequestMeeting bool   `json:"request_meeting"`
	}
)
