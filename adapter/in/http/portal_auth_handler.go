package http

import (
	"fmt"
	"html"
	"time"

	"portal_server/core/service/auth"
	"portal_server/infra/middleware"
	"portal_server/pkg/apperr"
	"portal_server/pkg/logger"
	"portal_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const authErrorPage = `<!doctype html>
<html><head><meta charset="utf-8"><title>Sign-in failed</title></head>
<body><h1>Sign-in failed</h1><p>%s</p><p><a href="/login">Try again</a></p></body></html>`

type AuthHandler struct {
	oauth    *auth.OAuthService
	sessions *auth.SessionService
	cookies  middleware.CookieOptions
}

func NewAuthHandler(oauth *auth.OAuthService, sessions *auth.SessionService, cookies middleware.CookieOptions) *AuthHandler {
	return &AuthHandler{oauth: oauth, sessions: sessions, cookies: cookies}
}

func (h *AuthHandler) Register(app fiber.Router) {
	app.Get("/login", h.Login)
	app.Get("/auth/callback", h.Callback)
	app.Get("/auth/gmail", h.GmailConnect)
	app.Get("/auth/gmail/callback", h.GmailCallback)
	app.Get("/logout", h.Logout)
	app.Post("/api/gmail/disconnect", h.Disconnect)
}

// Login redirects to the identity provider with a fresh login state.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	authURL, nonce, err := h.oauth.LoginURL()
	if err != nil {
		return err
	}
	h.cookies.SetCookie(c, middleware.LoginStateCookie, nonce, auth.LoginStateTTL)
	return c.Redirect(authURL, fiber.StatusFound)
}

// Callback completes the portal login and issues the session cookie.
func (h *AuthHandler) Callback(c *fiber.Ctx) error {
	if reason := c.Query("error"); reason != "" {
		logger.WithContext(requestContext(c)).WithField("reason", reason).Warn("[OAuth Login] provider returned error")
		return authPage(c, fiber.StatusUnauthorized, "Sign-in was cancelled or denied.")
	}
	if c.Query("code") == "" {
		return authPage(c, fiber.StatusBadRequest, "Missing authorization code.")
	}

	nonce := c.Cookies(middleware.LoginStateCookie)
	h.cookies.ClearCookie(c, middleware.LoginStateCookie)

	result, err := h.oauth.CompleteLogin(requestContext(c), c.Query("code"), c.Query("state"), nonce)
	if err != nil {
		return authFailure(c, err)
	}

	h.cookies.SetCookie(c, middleware.SessionCookie, result.SessionToken, time.Until(result.ExpiresAt))
	if !result.GmailConnected {
		return c.Redirect("/auth/gmail", fiber.StatusFound)
	}
	return c.Redirect("/", fiber.StatusFound)
}

// GmailConnect starts the Gmail grant for the signed-in user.
func (h *AuthHandler) GmailConnect(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	authURL, err := h.oauth.GmailConnectURL(email)
	if err != nil {
		return err
	}
	return c.Redirect(authURL, fiber.StatusFound)
}

// GmailCallback stores the Gmail credentials. It is a public path, so the
// session is read here rather than by the middleware.
func (h *AuthHandler) GmailCallback(c *fiber.Ctx) error {
	if reason := c.Query("error"); reason != "" {
		logger.WithContext(requestContext(c)).WithField("reason", reason).Warn("[OAuth Gmail] provider returned error")
		return authPage(c, fiber.StatusBadRequest, "Gmail access was not granted.")
	}
	if c.Query("code") == "" {
		return authPage(c, fiber.StatusBadRequest, "Missing authorization code.")
	}

	email, err := h.sessions.VerifySession(c.Cookies(middleware.SessionCookie))
	if err != nil {
		return authPage(c, fiber.StatusUnauthorized, "Your portal session has expired. Sign in again.")
	}
	middleware.SetUser(c, email)

	if err := h.oauth.CompleteGmailConnect(requestContext(c), email, c.Query("state"), c.Query("code")); err != nil {
		return authFailure(c, err)
	}
	return c.Redirect("/", fiber.StatusFound)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.cookies.ClearCookie(c, middleware.SessionCookie)
	return c.Redirect("/login", fiber.StatusFound)
}

// Disconnect forgets the stored Gmail credentials.
func (h *AuthHandler) Disconnect(c *fiber.Ctx) error {
	email, err := GetUserEmail(c)
	if err != nil {
		return err
	}
	if err := h.oauth.Disconnect(requestContext(c), email); err != nil {
		return err
	}
	return response.OK(c, fiber.Map{"connected": false})
}

func authFailure(c *fiber.Ctx, err error) error {
	appErr := apperr.AsAppError(err)
	message := appErr.Message
	if appErr.Status >= 500 {
		message = "Something went wrong while signing in. Please try again."
	}
	return authPage(c, appErr.Status, message)
}

func authPage(c *fiber.Ctx, status int, message string) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(status).SendString(fmt.Sprintf(authErrorPage, html.EscapeString(message)))
}
