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

type IStreamService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateStreamRequest) (*dto.CreateStreamResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowStreamResponse, error)
	List(ctx context.Context, userId uuid.UUID) ([]*dto.ShowStreamResponse, error)
	Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateStreamRequest) (*dto.UpdateStreamResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
	Load(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.LoadStreamResponse, error)
}

type streamService struct {
	streamRepo contract.StreamRepository
	cellRepo   contract.CellRepository
}

func NewStreamService(streamRepo contract.StreamRepository, cellRepo contract.CellRepository) IStreamService {
	return &streamService{
		streamRepo: streamRepo,
		cellRepo:   cellRepo,
	}
}

func (s *streamService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateStreamRequest) (*dto.CreateStreamResponse, error) {
	stream := entity.Stream{
		Id:        uuid.New(),
		Title:     req.Title,
		UserId:    userId,
		CreatedAt: time.Now(),
	}

	if err := s.streamRepo.Create(ctx, &stream); err != nil {
		return nil, err
	}

	return &dto.CreateStreamResponse{Id: stream.Id}, nil
}

func (s *streamService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowStreamResponse, error) {
	stream, err := s.findOwned(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	return toStreamResponse(stream), nil
}

func (s *streamService) List(ctx context.Context, userId uuid.UUID) ([]*dto.ShowStreamResponse, error) {
	streams, err := s.streamRepo.FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.ShowStreamResponse, 0, len(streams))
	for _, stream := range streams {
		responses = append(responses, toStreamResponse(stream))
	}
	return responses, nil
}

func (s *streamService) Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateStreamRequest) (*dto.UpdateStreamResponse, error) {
	stream, err := s.findOwned(ctx, userId, req.Id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	stream.Title = req.Title
	stream.UpdatedAt = &now

	if err := s.streamRepo.Update(ctx, stream); err != nil {
		return nil, err
	}

	return &dto.UpdateStreamResponse{Id: stream.Id}, nil
}

func (s *streamService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	stream, err := s.findOwned(ctx, userId, id)
	if err != nil {
		return err
	}

	// Cells go first so a crash between the two deletes never orphans rows
	// pointing at a missing stream.
	if err := s.cellRepo.DeleteAllByStreamId(ctx, stream.Id); err != nil {
		return err
	}
	return s.streamRepo.Delete(ctx, stream.Id)
}

func (s *streamService) Load(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.LoadStreamResponse, error) {
	stream, err := s.findOwned(ctx, userId, id)
	if err != nil {
		return nil, err
	}

	cells, err := s.cellRepo.FindAll(ctx,
		specification.ByStreamID{StreamID: stream.Id},
		specification.OrderBy{Field: "cell_order"},
	)
	if err != nil {
		return nil, err
	}

	cellResponses := make([]dto.ShowCellResponse, 0, len(cells))
	for _, cell := range cells {
		cellResponses = append(cellResponses, *toCellResponse(cell))
	}

	return &dto.LoadStreamResponse{
		Stream: *toStreamResponse(stream),
		Cells:  cellResponses,
	}, nil
}

func (s *streamService) findOwned(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*entity.Stream, error) {
	stream, err := s.streamRepo.FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if stream == nil {
		return nil, fmt.Errorf("stream not found")
	}
	return stream, nil
}

func toStreamResponse(stream *entity.Stream) *dto.ShowStreamResponse {
	return &dto.ShowStreamResponse{
		Id:        stream.Id,
		Title:     stream.Title,
		CreatedAt: stream.CreatedAt,
		UpdatedAt: stream.UpdatedAt,
	}
}
