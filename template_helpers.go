package auth

import (
	"maps"

	"github.com/gofiber/fiber/v2"
)

var TemplateUserKey = "current_user"

// TemplateHelpers returns the global data shared by every page view.
//
// In templates, you can then use:
//
//	{% if is_authenticated %}
//	{{ current_user.firstName }}
//	{{ routes.signout }}
func TemplateHelpers() map[string]any {
	return map[string]any{
		"is_authenticated": false,
		"routes": map[string]string{
			"home":      "/",
			"signin":    "/signin",
			"signup":    "/signup",
			"signout":   "/signout",
			"dashboard": "/dashboard",
			"activity":  "/api/activity",
		},
	}
}

// TemplateHelpersWithSession returns the global data with session set as current_user
func TemplateHelpersWithSession(session *SessionObject) map[string]any {
	helpers := TemplateHelpers()
	if session == nil {
		return helpers
	}
	helpers["is_authenticated"] = true
	helpers[TemplateUserKey] = session.UserView()
	helpers["display_name"] = session.DisplayName()
	return helpers
}

// MergeTemplateData merges data over the helpers for the request. The
// session is read from the locals stored by the route gate.
func MergeTemplateData(c *fiber.Ctx, data map[string]any) map[string]any {
	session, _ := SessionFromFiber(c, DefaultContextKey)
	out := TemplateHelpersWithSession(session)
	maps.Copy(out, data)
	return out
}
