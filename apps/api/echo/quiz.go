package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Sadman-Shakib-Aungon/quizzyverse/core"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/quiz"
	"github.com/Sadman-Shakib-Aungon/quizzyverse/core/user"
)

type quizApi struct {
	deps *ServerDeps
}

func registerQuizAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := quizApi{deps: deps}

	qg := g.Group("/quiz", jwt)

	qg.POST("/complete", api.complete, roleMiddleware(user.RoleTeacher))
	qg.POST("/batch-complete", api.batchComplete, roleMiddleware(user.RoleTeacher))
	qg.GET("/performance/:studentID", api.performance)
	qg.GET("/statistics", api.statistics, adminMiddleware())
}

// Handlers

func (api *quizApi) complete(ctx echo.Context) error {
	var data CompletionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompletionRequest")
	}
	data.StudentID = core.CleanString(data.StudentID)

	result, err := api.deps.QuizSvc.ProcessCompletion(ctx.Request().Context(), data.StudentID, data.Result)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, result)
}

func (api *quizApi) batchComplete(ctx echo.Context) error {
	var data BatchCompletionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BatchCompletionRequest")
	}

	results := api.deps.QuizSvc.BatchProcess(ctx.Request().Context(), data.Completions)
	return ctx.JSON(http.StatusOK, results)
}

// performance is open to the student themselves, their parent, and staff.
func (api *quizApi) performance(ctx echo.Context) error {
	studentID := ctx.Param("studentID")

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !canViewPerformance(ctxUsr, studentID) {
		return errHttpForbidden
	}

	summary, err := api.deps.QuizSvc.StudentPerformanceSummary(ctx.Request().Context(), studentID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *quizApi) statistics(ctx echo.Context) error {
	stats, err := api.deps.QuizSvc.Statistics(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func canViewPerformance(ctxUsr user.User, studentID string) bool {
	if ctxUsr.IsAdmin() || ctxUsr.IsTeacher() {
		return true
	}
	if ctxUsr.ID == studentID {
		return true
	}
	if ctxUsr.IsParent() && ctxUsr.Parent != nil {
		for _, childID := range ctxUsr.Parent.Children {
			if childID == studentID {
				return true
			}
		}
	}
	return false
}

type (
	CompletionRequest struct {
		StudentID string          `json:"student_id"`
		Result    core.QuizResult `json:"quiz_result"`
	}

	BatchCompletionRequest struct {
		Completions []quiz.Completion `json:"completions"`
	}
)
