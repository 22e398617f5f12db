package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/consultation"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/user"
)

type consultationApi struct {
	deps *ServerDeps
}

func registerConsultationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := consultationApi{deps: deps}

	cg := g.Group("/consultations", jwt)

	cg.POST("", api.create, roleMiddleware(user.RoleTeacher))
	cg.GET("/student/:studentID", api.queryByStudent)
	cg.GET("/consultant", api.queryByConsultant, roleMiddleware(user.RoleConsultant))
	cg.GET("/consultants/:subject", api.availableConsultants)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id/schedule", api.schedule)
	cg.PUT("/:id/status", api.updateStatus, roleMiddleware(user.RoleConsultant, user.RoleTeacher))
	cg.POST("/:id/feedback", api.addFeedback)
}

// Handlers

func (api *consultationApi) create(ctx echo.Context) error {
	var data consultation.NewConsultation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewConsultation")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	c, err := api.deps.ConsulSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *consultationApi) queryByStudent(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	studentID := ctx.Param("studentID")
	if !canViewPerformance(ctxUsr, studentID) {
		return errHttpForbidden
	}

	page := new(Pagination)
	page.Bind(ctx)

	consuls, total, err := api.deps.ConsulSvc.QueryByStudent(ctx.Request().Context(), studentID, ctx.QueryParam("status"), page.Limit, page.Offset)
	if err != nil {
		return errors.Wrap(err, "querying consultations")
	}
	if consuls == nil {
		consuls = []consultation.Consultation{}
	}
	return ctx.JSON(http.StatusOK, PageResponse{Count: total, Results: consuls})
}

func (api *consultationApi) queryByConsultant(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	page := new(Pagination)
	page.Bind(ctx)

	consuls, total, err := api.deps.ConsulSvc.QueryByConsultant(ctx.Request().Context(), claims.Subject, ctx.QueryParam("status"), page.Limit, page.Offset)
	if err != nil {
		return errors.Wrap(err, "querying consultations")
	}
	if consuls == nil {
		consuls = []consultation.Consultation{}
	}
	return ctx.JSON(http.StatusOK, PageResponse{Count: total, Results: consuls})
}

func (api *consultationApi) availableConsultants(ctx echo.Context) error {
	consultants, err := api.deps.ConsulSvc.AvailableConsultants(ctx.Request().Context(), ctx.Param("subject"))
	if err != nil {
		return errors.Wrap(err, "querying consultants")
	}
	if consultants == nil {
		consultants = []user.User{}
	}
	return ctx.JSON(http.StatusOK, consultants)
}

func (api *consultationApi) retrieve(ctx echo.Context) error {
	c, err := api.getParticipantConsultation(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *consultationApi) schedule(ctx echo.Context) error {
	if _, err := api.getParticipantConsultation(ctx); err != nil {
		return err
	}

	var data consultation.ScheduleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScheduleRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	c, err := api.deps.ConsulSvc.Schedule(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *consultationApi) updateStatus(ctx echo.Context) error {
	var data StatusUpdateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdateRequest")
	}

	c, err := api.deps.ConsulSvc.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), data.Status, data.ConsultantNotes)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *consultationApi) addFeedback(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data FeedbackRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FeedbackRequest")
	}

	c, err := api.deps.ConsulSvc.AddFeedback(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data.Rating, data.Comment)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

// getParticipantConsultation loads the consultation and rejects callers who are
// neither a participant nor staff, without revealing the record exists.
func (api *consultationApi) getParticipantConsultation(ctx echo.Context) (consultation.Consultation, error) {
	c, err := api.deps.ConsulSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return consultation.Consultation{}, err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return consultation.Consultation{}, errors.Wrap(err, "getting context claims")
	}
	if claims.IsAdmin || claims.IsTeacher || claims.Subject == c.StudentID || claims.Subject == c.ConsultantID {
		return c, nil
	}
	return consultation.Consultation{}, errHttpNotFound
}

type (
	StatusUpdateRequest struct {
		Status          string `json:"status"`
		ConsultantNotes string `json:"consultant_notes"`
	}

	FeedbackRequest struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
)
