package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"streamdoc-engine/internal/dto"
	"streamdoc-engine/internal/entity"
	"streamdoc-engine/internal/repository/contract"
	"streamdoc-engine/internal/repository/specification"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	cellRepo  contract.CellRepository
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	cellRepo contract.CellRepository,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		cellRepo:  cellRepo,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	switch msg.Metadata.Get("action") {
	case "delete":
		cs.processDelete(ctx, msg)
	default:
		cs.processSave(ctx, msg)
	}
}

func (cs *consumerService) processSave(ctx context.Context, msg *message.Message) {
	var payload dto.SaveCellMessage
	err := json.Unmarshal(msg.Payload, &payload)
	if err != nil {
		log.Printf("[ERROR] Failed to unmarshal save message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	// Upsert, not update: the first debounced write for a freshly created
	// cell may beat the structural insert to the queue.
	now := time.Now()
	cell := entity.Cell{
		Id:        payload.CellId,
		StreamId:  payload.StreamId,
		Content:   payload.Content,
		Type:      entity.CellTypeText,
		Order:     payload.Order,
		CreatedAt: now,
		UpdatedAt: &now,
	}
	if existing, err := cs.cellRepo.FindOne(ctx, specification.ByID{ID: payload.CellId}); err == nil && existing != nil {
		cell.Type = existing.Type
		cell.OriginalPrompt = existing.OriginalPrompt
		cell.ModelId = existing.ModelId
		cell.SourceApp = existing.SourceApp
		cell.BlockName = existing.BlockName
		cell.References = existing.References
		cell.Modifiers = existing.Modifiers
		cell.Versions = existing.Versions
		cell.ActiveVersionId = existing.ActiveVersionId
		cell.Processing = existing.Processing
		cell.CreatedAt = existing.CreatedAt
	}

	if err := cs.cellRepo.Upsert(ctx, &cell); err != nil {
		log.Printf("[ERROR] Failed to persist cell %s: %v", payload.CellId, err)
		msg.Nack() // Nack for retriable errors
		return
	}

	msg.Ack()
}

func (cs *consumerService) processDelete(ctx context.Context, msg *message.Message) {
	var payload dto.DeleteCellMessage
	err := json.Unmarshal(msg.Payload, &payload)
	if err != nil {
		log.Printf("[ERROR] Failed to unmarshal delete message: %v", err)
		msg.Ack()
		return
	}

	if err := cs.cellRepo.Delete(ctx, payload.CellId); err != nil {
		log.Printf("[ERROR] Failed to delete cell %s: %v", payload.CellId, err)
		msg.Nack()
		return
	}

	msg.Ack()
}
