package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"streamdoc-engine/internal/dto"
	"streamdoc-engine/internal/pkg/serverutils"
	"streamdoc-engine/internal/service"
)

type IStreamController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Load(ctx *fiber.Ctx) error
}

type streamController struct {
	streamService service.IStreamService
}

func NewStreamController(streamService service.IStreamService) IStreamController {
	return &streamController{
		streamService: streamService,
	}
}

func (c *streamController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/stream/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Create)
	h.Get("", c.List)
	h.Get(":id", c.Show)
	h.Get(":id/load", c.Load)
	h.Put(":id", c.Update)
	h.Delete(":id", c.Delete)
}

func (c *streamController) Create(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	var req dto.CreateStreamRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.streamService.Create(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create stream", res))
}

func (c *streamController) Show(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	res, err := c.streamService.Show(ctx.Context(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show stream", res))
}

func (c *streamController) List(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	res, err := c.streamService.List(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list streams", res))
}

// Load returns the stream with its cells in document order, ready for the
// editor to hydrate from.
func (c *streamController) Load(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	res, err := c.streamService.Load(ctx.Context(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success load stream", res))
}

func (c *streamController) Update(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	var req dto.UpdateStreamRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.Id = id

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.streamService.Update(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update stream", res))
}

func (c *streamController) Delete(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	if err := c.streamService.Delete(ctx.Context(), userId, id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete stream", nil))
}

func currentUserId(ctx *fiber.Ctx) uuid.UUID {
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	return userId
}
