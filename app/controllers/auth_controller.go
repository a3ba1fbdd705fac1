package controllers

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/TrafficWatch/internal/pkg/auth"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/middleware"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/oauth"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/session"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/usercontext"
)

// PENDING_EMAIL remembers the address awaiting confirmation across redirects.
const PENDING_EMAIL = "pending_email"

func HandleAuthLogin(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return render(c, "auth/login", "Sign in", fiber.Map{
			"Email":     c.Query("email"),
			"Providers": oauth.Providers(),
		})
	}

	b, err := currentBundle(c)
	if err != nil {
		return err
	}
	email := c.FormValue("email")
	res, err := b.Auth.SignIn(c.UserContext(), email, c.FormValue("password"))
	if err != nil {
		return redirectWithError(c, "/login?email="+url.QueryEscape(email), auth.Message(err))
	}
	if res.NeedsVerification {
		_ = session.SetSessionValue(c, PENDING_EMAIL, email)
		return redirectWithInfo(c, "/verify-email?email="+url.QueryEscape(email), res.Message)
	}

	middleware.RefreshUserContext(c)
	return redirectWithSuccess(c, res.RedirectTo, "Welcome back, "+res.User.FullName+"!")
}

func HandleAuthRegister(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return render(c, "auth/register", "Register", fiber.Map{"Form": auth.Registration{}})
	}

	b, err := currentBundle(c)
	if err != nil {
		return err
	}
	var reg auth.Registration
	if err := c.BodyParser(&reg); err != nil {
		return redirectWithError(c, "/register", "Invalid form submission")
	}

	res, err := b.Auth.SignUp(c.UserContext(), reg)
	if err != nil {
		var fields auth.FieldErrors
		var dup *auth.DuplicateError
		errs := map[string]string{}
		switch {
		case errors.As(err, &fields):
			errs = fields
		case errors.As(err, &dup):
			errs[dup.Field] = dup.Message
		default:
			log.Warnf("[Auth] Registration failed: %v", err)
			return redirectWithError(c, "/register", auth.Message(err))
		}
		reg.Password, reg.ConfirmPassword = "", ""
		c.Status(fiber.StatusUnprocessableEntity)
		return render(c, "auth/register", "Register", fiber.Map{"Form": reg, "Errors": errs})
	}

	_ = session.SetSessionValue(c, PENDING_EMAIL, res.Email)
	return redirectWithSuccess(c, "/verify-email?email="+url.QueryEscape(res.Email), res.Message)
}

// HandleAuthLogout signs out locally right away; the remote session is
// revoked in the background.
func HandleAuthLogout(c *fiber.Ctx) error {
	b, err := currentBundle(c)
	if err != nil {
		return err
	}
	b.Auth.SignOut(c.UserContext())
	usercontext.Set(c, usercontext.UserContext{})
	return redirectWithSuccess(c, "/login", auth.MsgSignedOut)
}

func HandleVerifyEmail(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		email := c.Query("email")
		if email == "" {
			email = session.GetSessionValue(c, PENDING_EMAIL)
		}
		return render(c, "auth/verify_email", "Verify your email", fiber.Map{"Email": email})
	}

	b, err := currentBundle(c)
	if err != nil {
		return err
	}
	email := c.FormValue("email")
	back := "/verify-email?email=" + url.QueryEscape(email)
	if err := b.Auth.ResendVerification(c.UserContext(), email); err != nil {
		return redirectWithError(c, back, auth.Message(err))
	}
	return redirectWithSuccess(c, back, auth.MsgVerificationSent)
}

// HandleEmailVerified consumes the confirmation link sent after sign-up.
func HandleEmailVerified(c *fiber.Ctx) error {
	b, err := currentBundle(c)
	if err != nil {
		return err
	}
	user, err := b.Auth.ConfirmEmail(c.UserContext(), c.Query("token"))
	if err != nil {
		return redirectWithError(c, "/verify-email", auth.Message(err))
	}
	return redirectWithSuccess(c, "/login?email="+url.QueryEscape(user.Email), auth.MsgEmailVerified)
}

// HandleResetPassword serves the reset request form and, when called from
// the emailed link, signs the browser in and forwards to the new password form.
func HandleResetPassword(c *fiber.Ctx) error {
	b, err := currentBundle(c)
	if err != nil {
		return err
	}

	if c.Method() == fiber.MethodPost {
		email := c.FormValue("email")
		if err := b.Auth.RequestPasswordReset(c.UserContext(), email); err != nil {
			return redirectWithError(c, "/reset-password", auth.Message(err))
		}
		return redirectWithSuccess(c, "/login?email="+url.QueryEscape(email), auth.MsgResetSent)
	}

	if token := c.Query("token"); token != "" {
		if _, err := b.Auth.VerifyRecovery(c.UserContext(), token); err != nil {
			return redirectWithError(c, "/reset-password", auth.Message(err))
		}
		return c.Redirect("/reset-password/new", fiber.StatusSeeOther)
	}
	return render(c, "auth/reset_password", "Reset password", nil)
}

func HandleNewPassword(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return render(c, "auth/new_password", "Choose a new password", nil)
	}

	b, err := currentBundle(c)
	if err != nil {
		return err
	}
	err = b.Auth.ResetPassword(c.UserContext(), c.FormValue("password"), c.FormValue("confirm_password"))
	if err != nil {
		var fields auth.FieldErrors
		if errors.As(err, &fields) {
			c.Status(fiber.StatusUnprocessableEntity)
			return render(c, "auth/new_password", "Choose a new password", fiber.Map{"Errors": map[string]string(fields)})
		}
		return redirectWithError(c, "/reset-password/new", auth.Message(err))
	}
	return redirectWithSuccess(c, b.Auth.CurrentUser().DashboardPath(), auth.MsgPasswordUpdated)
}
