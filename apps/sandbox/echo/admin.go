package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/courseapp/courseapp/core"
	"github.com/courseapp/courseapp/core/exambank"
	"github.com/courseapp/courseapp/core/user"
)

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *server) {
	adg := g.Group("/admin")

	// un-authed endpoints
	adg.POST("/login", s.login(user.RoleAdmin))

	// authed endpoints
	ag := adg.Group("", jwt, adminMiddleware)
	ag.GET("/alltests", s.allTests)
	ag.POST("/managetests", s.createTest)
	ag.PUT("/tests/:id", s.updateTest)
	ag.DELETE("/tests/:id", s.deleteTest)
}

func (s *server) allTests(ctx echo.Context) error {
	tests, err := s.opts.ExamSvc.AllTests()
	if err != nil {
		return errors.Wrap(err, "querying tests")
	}
	if tests == nil {
		tests = []exambank.Test{}
	}
	return ctx.JSON(http.StatusOK, envelope(echo.Map{"tests": tests}))
}

func (s *server) bindTest(ctx echo.Context) (exambank.NewTest, error) {
	var data exambank.NewTest
	if err := ctx.Bind(&data); err != nil {
		return data, core.NewValidationError(errors.Wrap(err, "binding to NewTest"))
	}
	return data, data.Validate(s.opts.Validate, s.opts.Translator)
}

func (s *server) createTest(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	data, err := s.bindTest(ctx)
	if err != nil {
		return err
	}
	t, err := s.opts.ExamSvc.CreateTest(data, claims.User())
	if err != nil {
		return errors.Wrap(err, "creating test")
	}
	return ctx.JSON(http.StatusCreated, envelope(echo.Map{"test": t}))
}

func (s *server) updateTest(ctx echo.Context) error {
	data, err := s.bindTest(ctx)
	if err != nil {
		return err
	}
	t, err := s.opts.ExamSvc.UpdateTest(ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating test")
	}
	return ctx.JSON(http.StatusOK, envelope(echo.Map{"test": t}))
}

func (s *server) deleteTest(ctx echo.Context) error {
	if err := s.opts.ExamSvc.DeleteTest(ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting test")
	}
	return ctx.JSON(http.StatusOK, envelope(echo.Map{"message": "test deleted"}))
}
