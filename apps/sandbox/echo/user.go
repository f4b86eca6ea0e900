package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/courseapp/courseapp/core"
	"github.com/courseapp/courseapp/core/exambank"
	"github.com/courseapp/courseapp/core/user"
)

// registerUserAPI mounts the learner routes. Any authenticated account may use them,
// so an admin can preview a test the way a learner sees it.
func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *server) {
	ug := g.Group("/user")

	// un-authed endpoints
	ug.POST("/login", s.login(user.RoleLearner))

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.GET("/givetests", s.publishedTests)
	ag.POST("/:id/start", s.startAttempt)
	ag.POST("/:id/submit", s.submitAttempt)
	ag.GET("/attempt/:id", s.attempt)
	ag.GET("/result/:id", s.legacyResult)
}

// login answers a token for an account of the given role.
func (s *server) login(role string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data user.LoginRequest
		if err := ctx.Bind(&data); err != nil {
			return core.NewValidationError(errors.Wrap(err, "binding to LoginRequest"))
		}
		if err := data.Validate(s.opts.Validate, s.opts.Translator); err != nil {
			return err
		}

		usr, err := s.opts.UserSvc.Authenticate(data.Email, data.Password, role)
		if err != nil {
			if errors.Cause(err) == user.ErrInvalidCredentials {
				return errBadCredentials
			}
			return errors.Wrap(err, "authenticating")
		}
		token, err := s.auth.GenerateToken(usr)
		if err != nil {
			return errors.Wrap(err, "generating token")
		}
		s.opts.Logger.Info("logged in", usr)
		return ctx.JSON(http.StatusOK, envelope(echo.Map{"token": token, "user": usr}))
	}
}

func (s *server) publishedTests(ctx echo.Context) error {
	tests, err := s.opts.ExamSvc.PublishedTests()
	if err != nil {
		return errors.Wrap(err, "querying published tests")
	}
	return ctx.JSON(http.StatusOK, envelope(echo.Map{"tests": tests}))
}

func (s *server) startAttempt(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	a, t, err := s.opts.ExamSvc.StartAttempt(claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "starting attempt")
	}
	s.opts.Logger.Info("attempt started", map[string]interface{}{"attempt_id": a.ID, "test_id": t.ID}, claims.User())
	return ctx.JSON(http.StatusCreated, envelope(echo.Map{
		"attemptId": a.ID,
		"test":      t.Public(),
		"expiresAt": a.ExpiresAt,
	}))
}

func (s *server) submitAttempt(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data exambank.SubmitRequest
	if err = ctx.Bind(&data); err != nil {
		return core.NewValidationError(errors.Wrap(err, "binding to SubmitRequest"))
	}
	if err = data.Validate(s.opts.Validate, s.opts.Translator); err != nil {
		return err
	}

	a, err := s.opts.ExamSvc.SubmitAttempt(claims.Subject, ctx.Param("id"), data.AttemptID, data.Answers)
	if err != nil {
		return errors.Wrap(err, "submitting attempt")
	}
	return ctx.JSON(http.StatusOK, envelope(echo.Map{
		"attemptId": a.ID,
		"score":     a.Score,
		"maxScore":  a.MaxScore,
		"status":    a.Status,
	}))
}

// attempt answers {"attempt": {..., "test": {...}}}. It is switched off when the sandbox
// plays an older backend that only knows the result route.
func (s *server) attempt(ctx echo.Context) error {
	if s.legacyResults {
		return errHttpNotFound
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	a, t, err := s.opts.ExamSvc.GetAttempt(claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting attempt")
	}
	res := resultBody(a)
	if t.ID != "" {
		res["test"] = t.Public()
	}
	return ctx.JSON(http.StatusOK, envelope(echo.Map{"attempt": res}))
}

// legacyResult answers {"attemptData": {..., "test": "<test id>"}}.
func (s *server) legacyResult(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	a, _, err := s.opts.ExamSvc.GetAttempt(claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting attempt")
	}
	return ctx.JSON(http.StatusOK, envelope(echo.Map{"attemptData": resultBody(a)}))
}

func resultBody(a exambank.Attempt) echo.Map {
	return echo.Map{
		"_id":         a.ID,
		"score":       a.Score,
		"maxScore":    a.MaxScore,
		"status":      a.Status,
		"startedAt":   a.StartedAt,
		"submittedAt": a.SubmittedAt,
		"answers":     a.Answers,
		"test":        a.TestID,
	}
}
