package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/TrafficWatch/internal/pkg/appcontext"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/auth"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/middleware"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/platform"
)

// OAuthController completes provider sign-ins. The /auth routes bypass the
// session middleware, so it resolves the browser's bundle itself.
type OAuthController struct {
	sessions *fibersession.Store
	registry *appcontext.Registry
}

func NewOAuthController(sessions *fibersession.Store, registry *appcontext.Registry) *OAuthController {
	return &OAuthController{sessions: sessions, registry: registry}
}

// HandleCallback completes the provider flow and logs the user in
func (oc *OAuthController) HandleCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		log.Warnf("[OAuth] Provider flow failed: %v", err)
		return redirectWithError(c, "/login", "Sign-in with the provider failed. Please try again.")
	}

	b, err := middleware.ResolveBundle(c, oc.sessions, oc.registry)
	if err != nil {
		log.Errorf("[OAuth] %v", err)
		return redirectWithError(c, "/login", auth.MsgServiceDown)
	}

	var expires *time.Time
	if !u.ExpiresAt.IsZero() {
		t := u.ExpiresAt
		expires = &t
	}
	res, err := b.Auth.SignInWithProvider(c.UserContext(), platform.ProviderUser{
		Provider:       u.Provider,
		ProviderUserID: u.UserID,
		Email:          u.Email,
		Name:           firstNonEmpty(u.Name, u.NickName, u.Email),
		AccessToken:    u.AccessToken,
		RefreshToken:   u.RefreshToken,
		ExpiresAt:      expires,
	})
	if err != nil {
		return redirectWithError(c, "/login", auth.Message(err))
	}

	// Ensure HTMX boosted flows perform a full redirect
	c.Set("HX-Redirect", res.RedirectTo)
	return c.Redirect(res.RedirectTo, fiber.StatusSeeOther)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
