package activity

import (
	"github.com/gofiber/fiber/v2"
)

// HeaderSource carries the Source of the served activity
const HeaderSource = "X-Activity-Source"

// Handler serves a random activity, upstream first
func (c *Client) Handler() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		a, src := c.Random(ctx.UserContext())
		ctx.Set(HeaderSource, string(src))
		return ctx.JSON(a)
	}
}

// FallbackHandler serves a random entry of the built-in list
func (c *Client) FallbackHandler() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		c.observe(SourceFallback)
		ctx.Set(HeaderSource, string(SourceFallback))
		return ctx.JSON(c.Fallback())
	}
}
