package service

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"streamdoc-engine/internal/dto"
	"streamdoc-engine/internal/pkg/logger"
	"streamdoc-engine/pkg/persist"
)

// IPublisherService pushes persist writes onto the in-process queue. It is
// the sink side of the persistence scheduler and the deleter side of
// boundary navigation, so DB latency never blocks the editor loop.
type IPublisherService interface {
	SaveCell(w persist.Write)
	DeleteCell(streamId, cellId uuid.UUID)
}

type publisherService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	log       logger.ILogger
}

func NewPublisherService(pubSub *gochannel.GoChannel, topicName string, log logger.ILogger) IPublisherService {
	return &publisherService{
		pubSub:    pubSub,
		topicName: topicName,
		log:       log,
	}
}

func (ps *publisherService) SaveCell(w persist.Write) {
	payload := dto.SaveCellMessage{
		CellId:   w.CellId,
		StreamId: w.StreamId,
		Content:  w.Content,
		Order:    w.Order,
		Reason:   w.Reason,
	}
	ps.publish("save", payload, w.CellId)
}

func (ps *publisherService) DeleteCell(streamId, cellId uuid.UUID) {
	payload := dto.DeleteCellMessage{
		CellId:   cellId,
		StreamId: streamId,
	}
	ps.publish("delete", payload, cellId)
}

func (ps *publisherService) publish(action string, payload interface{}, cellId uuid.UUID) {
	data, err := json.Marshal(payload)
	if err != nil {
		ps.log.Error("publisher", "failed to marshal persist payload", map[string]interface{}{
			"error":   err,
			"cell_id": cellId.String(),
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("action", action)

	if err := ps.pubSub.Publish(ps.topicName, msg); err != nil {
		ps.log.Error("publisher", "failed to publish persist message", map[string]interface{}{
			"error":   err,
			"action":  action,
			"cell_id": cellId.String(),
		})
	}
}
