package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"streamdoc-engine/internal/dto"
	"streamdoc-engine/internal/entity"
	"streamdoc-engine/internal/repository/contract"
	"streamdoc-engine/internal/repository/specification"
)

type ICellService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateCellRequest) (*dto.CreateCellResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowCellResponse, error)
	Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateCellRequest) (*dto.UpdateCellResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
	Reorder(ctx context.Context, userId uuid.UUID, req *dto.ReorderCellRequest) (*dto.ReorderCellResponse, error)
}

type cellService struct {
	cellRepo   contract.CellRepository
	streamRepo contract.StreamRepository
}

func NewCellService(cellRepo contract.CellRepository, streamRepo contract.StreamRepository) ICellService {
	return &cellService{
		cellRepo:   cellRepo,
		streamRepo: streamRepo,
	}
}

func (s *cellService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateCellRequest) (*dto.CreateCellResponse, error) {
	if err := s.verifyStreamOwnership(ctx, userId, req.StreamId); err != nil {
		return nil, err
	}

	cells, err := s.orderedCells(ctx, req.StreamId)
	if err != nil {
		return nil, err
	}

	// 1. Resolve insert position: after the anchor, or append.
	position := len(cells)
	if req.AfterId != nil {
		for i, c := range cells {
			if c.Id == *req.AfterId {
				position = i + 1
				break
			}
		}
	}

	cell := entity.Cell{
		Id:        uuid.New(),
		StreamId:  req.StreamId,
		Content:   req.Content,
		Type:      req.Type,
		Order:     position,
		CreatedAt: time.Now(),
	}

	if err := s.cellRepo.Create(ctx, &cell); err != nil {
		return nil, err
	}

	// 2. Renumber everything below the insert point so orders stay dense.
	for i := position; i < len(cells); i++ {
		cells[i].Order = i + 1
		if err := s.cellRepo.Update(ctx, cells[i]); err != nil {
			return nil, err
		}
	}

	return &dto.CreateCellResponse{Id: cell.Id, Order: cell.Order}, nil
}

func (s *cellService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowCellResponse, error) {
	cell, err := s.findOwnedCell(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	return toCellResponse(cell), nil
}

func (s *cellService) Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateCellRequest) (*dto.UpdateCellResponse, error) {
	cell, err := s.findOwnedCell(ctx, userId, req.Id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if req.Content != nil {
		cell.Content = *req.Content
	}
	if req.Type != nil {
		cell.Type = *req.Type
	}
	cell.UpdatedAt = &now

	if err := s.cellRepo.Update(ctx, cell); err != nil {
		return nil, err
	}

	return &dto.UpdateCellResponse{Id: cell.Id}, nil
}

func (s *cellService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	cell, err := s.findOwnedCell(ctx, userId, id)
	if err != nil {
		return err
	}

	if err := s.cellRepo.Delete(ctx, cell.Id); err != nil {
		return err
	}

	// Close the gap left by the deleted cell.
	cells, err := s.orderedCells(ctx, cell.StreamId)
	if err != nil {
		return err
	}
	for i, c := range cells {
		if c.Order != i {
			c.Order = i
			if err := s.cellRepo.Update(ctx, c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *cellService) Reorder(ctx context.Context, userId uuid.UUID, req *dto.ReorderCellRequest) (*dto.ReorderCellResponse, error) {
	if err := s.verifyStreamOwnership(ctx, userId, req.StreamId); err != nil {
		return nil, err
	}

	cells, err := s.orderedCells(ctx, req.StreamId)
	if err != nil {
		return nil, err
	}

	from := -1
	for i, c := range cells {
		if c.Id == req.Id {
			from = i
			break
		}
	}
	if from < 0 {
		return nil, fmt.Errorf("cell not found")
	}
	if req.ToIndex >= len(cells) {
		return nil, fmt.Errorf("target index out of range")
	}

	moved := cells[from]
	cells = append(cells[:from], cells[from+1:]...)
	rest := make([]*entity.Cell, 0, len(cells)+1)
	rest = append(rest, cells[:req.ToIndex]...)
	rest = append(rest, moved)
	rest = append(rest, cells[req.ToIndex:]...)

	orders := make(map[uuid.UUID]int, len(rest))
	for i, c := range rest {
		orders[c.Id] = i
		if c.Order != i {
			c.Order = i
			if err := s.cellRepo.Update(ctx, c); err != nil {
				return nil, err
			}
		}
	}

	return &dto.ReorderCellResponse{Orders: orders}, nil
}

func (s *cellService) orderedCells(ctx context.Context, streamId uuid.UUID) ([]*entity.Cell, error) {
	return s.cellRepo.FindAll(ctx,
		specification.ByStreamID{StreamID: streamId},
		specification.OrderBy{Field: "cell_order"},
	)
}

func (s *cellService) findOwnedCell(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*entity.Cell, error) {
	cell, err := s.cellRepo.FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if cell == nil {
		return nil, fmt.Errorf("cell not found")
	}
	if err := s.verifyStreamOwnership(ctx, userId, cell.StreamId); err != nil {
		return nil, err
	}
	return cell, nil
}

func (s *cellService) verifyStreamOwnership(ctx context.Context, userId uuid.UUID, streamId uuid.UUID) error {
	stream, err := s.streamRepo.FindOne(ctx,
		specification.ByID{ID: streamId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if stream == nil {
		return fmt.Errorf("stream not found")
	}
	return nil
}

func toCellResponse(cell *entity.Cell) *dto.ShowCellResponse {
	return &dto.ShowCellResponse{
		Id:             cell.Id,
		StreamId:       cell.StreamId,
		Content:        cell.Content,
		Type:           cell.Type,
		Order:          cell.Order,
		OriginalPrompt: cell.OriginalPrompt,
		ModelId:        cell.ModelId,
		SourceApp:      cell.SourceApp,
		BlockName:      cell.BlockName,
		References:     cell.References,
		CreatedAt:      cell.CreatedAt,
		UpdatedAt:      cell.UpdatedAt,
	}
}
