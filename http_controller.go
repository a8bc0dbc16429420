package garden

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
)

// RegisterAuthRoutes mounts the login, registration, logout and session
// endpoints. limiter, when not nil, guards the credential POSTs.
func RegisterAuthRoutes(app fiber.Router, controller *AuthController, limiter fiber.Handler) {
	post := func(path string, h fiber.Handler) fiber.Router {
		if limiter != nil {
			return app.Post(path, limiter, h)
		}
		return app.Post(path, h)
	}

	post(controller.Routes.Login, controller.LoginPost).Name("sign-in.post")
	post(controller.Routes.Register, controller.RegistrationCreate).Name("register.post")

	app.Get(controller.Routes.Logout, controller.LogOut).Name("sign-out.get")
	app.Post(controller.Routes.Logout, controller.LogOut).Name("sign-out.post")

	app.Get(controller.Routes.Session, controller.SessionStatus).Name("session.get")
}

type AuthControllerRoutes struct {
	Login    string
	Logout   string
	Register string
	Session  string
	Home     string
}

type AuthController struct {
	Debug     bool
	UseHashid bool
	Logger    Logger
	Registrar *Registrar
	Auther    *RouteAuthenticator
	Pages     *PageRenderer
	Activity  ActivitySink
	Routes    *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(l Logger) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		if l != nil {
			a.Logger = l
		}
		return a
	}
}

func WithRegistrar(r *Registrar) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Registrar = r
		return a
	}
}

func WithRouteAuthenticator(r *RouteAuthenticator) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Auther = r
		return a
	}
}

func WithPages(p *PageRenderer) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Pages = p
		return a
	}
}

func WithActivitySink(sink ActivitySink) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Activity = sink
		return a
	}
}

func WithDebug(debug bool) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Debug = debug
		return a
	}
}

// WithHashidUserIDs derives new user ids from their email
func WithHashidUserIDs(enabled bool) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.UseHashid = enabled
		return a
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defaultLogger(),
		Routes: &AuthControllerRoutes{
			Login:    "/login",
			Logout:   "/logout",
			Register: "/register",
			Session:  "/api/session",
			Home:     "/",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Registrar == nil {
		panic("missing Registrar in auth controller")
	}

	if c.Auther == nil {
		panic("missing RouteAuthenticator in auth controller")
	}

	if c.Pages == nil {
		panic("missing PageRenderer in auth controller")
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession will return the remember me flag
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required, validation.Length(3, 100)),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.renderLogin(c, fiber.StatusBadRequest, payload, map[string]string{
			"form": "Failed to parse form",
		})
	}

	if a.Debug {
		redacted := *payload
		redacted.Password = "******"
		a.Logger.Debug("login payload", "payload", print.MaybePrettyJSON(redacted))
	}

	if err := payload.Validate(); err != nil {
		return a.renderLogin(c, fiber.StatusUnprocessableEntity, payload, FormatValidationErrorToMap(err))
	}

	if err := a.Auther.Login(c, payload); err != nil {
		a.record(c, ActivityEventLoginFailure, "", map[string]any{
			"identifier": payload.Identifier,
			"reason":     err.Error(),
		})

		status := fiber.StatusUnauthorized
		message := "Invalid identifier or password"

		switch {
		case errors.Is(err, ErrTooManyLoginAttempts):
			status = fiber.StatusTooManyRequests
			message = "Too many failed attempts, try again later"
		case errors.Is(err, ErrMismatchedHashAndPassword):
		default:
			a.Logger.Error("login failed", "identifier", payload.Identifier, "error", err)
			status = fiber.StatusInternalServerError
			message = "Unable to sign in right now"
		}

		return a.renderLogin(c, status, payload, map[string]string{
			"authentication": message,
		})
	}

	a.record(c, ActivityEventLoginSuccess, "", map[string]any{"identifier": payload.Identifier})
	return c.Redirect(a.Auther.GetRedirectOrDefault(c), fiber.StatusSeeOther)
}

func (a *AuthController) record(c *fiber.Ctx, event ActivityEventType, userID string, meta map[string]any) {
	recordActivity(c.UserContext(), a.Activity, a.Logger, ActivityEvent{
		EventType: event,
		UserID:    userID,
		IP:        c.IP(),
		Metadata:  meta,
	})
}

func (a *AuthController) renderLogin(c *fiber.Ctx, status int, payload *LoginRequest, errs map[string]string) error {
	record := *payload
	record.Password = ""
	c.Status(status)
	return a.Pages.Render(c, PageLogin, "Sign in", fiber.Map{
		"errors": errs,
		"record": record,
	})
}

func (a *AuthController) LogOut(c *fiber.Ctx) error {
	var userID string
	if user, ok := CurrentSession(c).User(); ok {
		userID = user.ID.String()
	}
	a.Auther.Logout(c)
	a.record(c, ActivityEventLogout, userID, nil)
	return c.Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

// SessionStatus reports the request session as JSON
func (a *AuthController) SessionStatus(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(a.Auther.Session(c))
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// RegistrationRequest is the registration form payload
type RegistrationRequest struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone" json:"phone"`
	Password        string `form:"password" json:"password"`
	PasswordConfirm string `form:"password_confirm" json:"password_confirm"`
}

// Validate will validate the payload
func (r RegistrationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
		validation.Field(&r.Username, validation.Required, validation.Length(3, 50), validation.Match(usernamePattern)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.Length(0, 32)),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.PasswordConfirm,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(c *fiber.Ctx) error {
	payload := new(RegistrationRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("register user parse payload", "error", err)
		return a.renderRegister(c, fiber.StatusBadRequest, payload, map[string]string{
			"form": "Failed to parse form",
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Debug("register user validate payload", "error", err)
		return a.renderRegister(c, fiber.StatusUnprocessableEntity, payload, FormatValidationErrorToMap(err))
	}

	msg := RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Username:  payload.Username,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
		Role:      RoleMember,
		UseHashid: a.UseHashid,
	}

	user, err := a.Registrar.RegisterUser(c.UserContext(), msg)
	switch {
	case errors.Is(err, ErrUserExists):
		return a.renderRegister(c, fiber.StatusConflict, payload, map[string]string{
			"email": "An account with this email or username already exists",
		})
	case errors.Is(err, ErrInvalidPhone):
		return a.renderRegister(c, fiber.StatusUnprocessableEntity, payload, map[string]string{
			"phone": "Enter a valid phone number",
		})
	case err != nil:
		a.Logger.Error("register user", "error", err)
		return a.renderRegister(c, fiber.StatusInternalServerError, payload, map[string]string{
			"form": "Unable to create the account right now",
		})
	}

	a.record(c, ActivityEventRegistered, user.ID.String(), map[string]any{"username": user.Username})

	if a.Debug {
		a.Logger.Debug("registered user", "user", print.MaybePrettyJSON(user))
	}

	if err := a.Auther.SignIn(c, NewIdentityFromUser(user)); err != nil {
		a.Logger.Error("sign in registered user", "error", err)
		return c.Redirect(a.Routes.Login, fiber.StatusSeeOther)
	}

	return c.Redirect(a.Routes.Home, fiber.StatusSeeOther)
}

func (a *AuthController) renderRegister(c *fiber.Ctx, status int, payload *RegistrationRequest, errs map[string]string) error {
	record := *payload
	record.Password = ""
	record.PasswordConfirm = ""
	c.Status(status)
	return a.Pages.Render(c, PageRegister, "Create account", fiber.Map{
		"errors": errs,
		"record": record,
	})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo field errors into field: message
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		out["form"] = err.Error()
		return out
	}

	for field, ferr := range verrs {
		if ferr != nil {
			out[field] = ferr.Error()
		}
	}
	return out
}
