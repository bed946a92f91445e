package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"streamdoc-engine/internal/dto"
	"streamdoc-engine/internal/pkg/serverutils"
	"streamdoc-engine/internal/service"
)

type ICellController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Reorder(ctx *fiber.Ctx) error
}

type cellController struct {
	cellService service.ICellService
}

func NewCellController(cellService service.ICellService) ICellController {
	return &cellController{
		cellService: cellService,
	}
}

func (c *cellController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/cell/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Create)
	h.Get(":id", c.Show)
	h.Put(":id", c.Update)
	h.Put(":id/reorder", c.Reorder)
	h.Delete(":id", c.Delete)
}

func (c *cellController) Create(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	var req dto.CreateCellRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.cellService.Create(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create cell", res))
}

func (c *cellController) Show(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	res, err := c.cellService.Show(ctx.Context(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show cell", res))
}

func (c *cellController) Update(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	var req dto.UpdateCellRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.Id = id

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.cellService.Update(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update cell", res))
}

func (c *cellController) Reorder(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	var req dto.ReorderCellRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.Id = id

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.cellService.Reorder(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success reorder cell", res))
}

func (c *cellController) Delete(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	if err := c.cellService.Delete(ctx.Context(), userId, id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete cell", nil))
}
