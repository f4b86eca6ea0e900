package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/courseapp/courseapp/core"
	"github.com/courseapp/courseapp/core/exambank"
	"github.com/courseapp/courseapp/core/user"
)

type (
	Options struct {
		Conf           *core.Config
		DisableReqLogs bool
		Logger         core.Logger
		UserSvc        *user.Service
		ExamSvc        *exambank.Service
		Validate       *validator.Validate
		Translator     ut.Translator
	}

	Server interface {
		http.Handler
		// Start blocks until the server stops. A graceful Shutdown is not an error.
		Start() error
		Shutdown(ctx context.Context) error
	}

	server struct {
		opts          Options
		app           *echo.Echo
		auth          *authenticator
		legacyResults bool
	}
)

var _ Server = (*server)(nil)

func NewServer(opts Options) Server {
	if opts.Logger == nil {
		opts.Logger = core.NopLogger{}
	}
	if opts.Validate == nil {
		opts.Validate, opts.Translator = NewValidator()
	}
	s := &server{
		opts:          opts,
		app:           echo.New(),
		auth:          newAuthenticator(opts.Conf),
		legacyResults: opts.Conf.Sandbox.LegacyResultRoute,
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	jwt := middleware.JWTWithConfig(s.auth.config)
	api := s.app.Group("/api")
	registerUserAPI(api, jwt, s)
	registerAdminAPI(api, jwt, s)
}

func (s *server) Start() error {
	err := s.app.Start(s.opts.Conf.Server.Address)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

// NewValidator returns a validator knowing the account and test rules.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	exambank.InitValidators(validate, translator)
	return validate, translator
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "CourseApp sandbox API")
}

// envelope wraps every successful payload: {"success": true, ...fields}.
func envelope(fields echo.Map) echo.Map {
	out := echo.Map{"success": true}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

