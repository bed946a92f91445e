package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"streamdoc-engine/internal/dto"
	"streamdoc-engine/internal/pkg/logger"
	"streamdoc-engine/pkg/events"
	pkgNats "streamdoc-engine/pkg/nats"
)

// GenerationEvents receives the generation lifecycle as it arrives from the
// gateway. Implemented by the editor service.
type GenerationEvents interface {
	OnGenerationChunk(streamId, cellId uuid.UUID, chunk string)
	OnGenerationDone(streamId, cellId uuid.UUID, finalText string)
	OnGenerationFailed(streamId, cellId uuid.UUID, message string)
}

// IGenerationService talks to the generation gateway over NATS. It also
// satisfies the merger's Canceler: cancellation is a best-effort publish,
// local chunk application stops regardless.
type IGenerationService interface {
	RequestThink(ctx context.Context, req *dto.ThinkRequest) error
	CancelGeneration(cellId uuid.UUID)
	Listen(handler GenerationEvents) error
}

type generationService struct {
	publisher  *pkgNats.Publisher
	subscriber *pkgNats.Subscriber
	log        logger.ILogger

	mu       sync.Mutex
	inFlight map[uuid.UUID]uuid.UUID // cellId -> streamId
}

func NewGenerationService(publisher *pkgNats.Publisher, subscriber *pkgNats.Subscriber, log logger.ILogger) IGenerationService {
	return &generationService{
		publisher:  publisher,
		subscriber: subscriber,
		log:        log,
		inFlight:   make(map[uuid.UUID]uuid.UUID),
	}
}

func (g *generationService) RequestThink(ctx context.Context, req *dto.ThinkRequest) error {
	if g.publisher == nil {
		return errors.New("generation gateway unavailable")
	}

	g.mu.Lock()
	g.inFlight[req.CellId] = req.StreamId
	g.mu.Unlock()

	event := events.NewEvent(events.TypeThinkRequested, map[string]interface{}{
		"stream_id":     req.StreamId.String(),
		"cell_id":       req.CellId.String(),
		"prompt":        req.Prompt,
		"model_id":      req.ModelId,
		"prior_context": req.PriorContext,
		"image_urls":    req.ImageURLs,
	})

	if err := g.publisher.Publish(ctx, event); err != nil {
		g.mu.Lock()
		delete(g.inFlight, req.CellId)
		g.mu.Unlock()
		return err
	}
	return nil
}

func (g *generationService) CancelGeneration(cellId uuid.UUID) {
	g.mu.Lock()
	streamId, ok := g.inFlight[cellId]
	if ok {
		delete(g.inFlight, cellId)
	}
	g.mu.Unlock()
	if !ok || g.publisher == nil {
		return
	}

	event := events.NewEvent(events.TypeThinkCancelled, map[string]interface{}{
		"stream_id": streamId.String(),
		"cell_id":   cellId.String(),
	})

	if err := g.publisher.Publish(context.Background(), event); err != nil {
		g.log.Warn("generation", "failed to publish cancellation", map[string]interface{}{
			"error":   err,
			"cell_id": cellId.String(),
		})
	}
}

// Listen subscribes to the generation lifecycle subjects and routes them to
// the handler. Chunks for cells this engine never asked about are dropped.
func (g *generationService) Listen(handler GenerationEvents) error {
	chunkSubject := "generation." + events.TypeGenerationChunk
	doneSubject := "generation." + events.TypeGenerationDone
	failSubject := "generation." + events.TypeGenerationFailed

	err := g.subscriber.Subscribe(chunkSubject, "engine-chunks", func(ctx context.Context, event events.Event) error {
		streamId, cellId, ok := g.identify(event)
		if !ok {
			return nil
		}
		chunk, _ := event.Payload()["chunk"].(string)
		handler.OnGenerationChunk(streamId, cellId, chunk)
		return nil
	})
	if err != nil {
		return err
	}

	err = g.subscriber.Subscribe(doneSubject, "engine-done", func(ctx context.Context, event events.Event) error {
		streamId, cellId, ok := g.identify(event)
		if !ok {
			return nil
		}
		g.mu.Lock()
		delete(g.inFlight, cellId)
		g.mu.Unlock()
		finalText, _ := event.Payload()["text"].(string)
		handler.OnGenerationDone(streamId, cellId, finalText)
		return nil
	})
	if err != nil {
		return err
	}

	return g.subscriber.Subscribe(failSubject, "engine-failed", func(ctx context.Context, event events.Event) error {
		streamId, cellId, ok := g.identify(event)
		if !ok {
			return nil
		}
		g.mu.Lock()
		delete(g.inFlight, cellId)
		g.mu.Unlock()
		message, _ := event.Payload()["error"].(string)
		handler.OnGenerationFailed(streamId, cellId, message)
		return nil
	})
}

func (g *generationService) identify(event events.Event) (uuid.UUID, uuid.UUID, bool) {
	payload := event.Payload()
	rawStream, _ := payload["stream_id"].(string)
	rawCell, _ := payload["cell_id"].(string)

	streamId, err := uuid.Parse(rawStream)
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	cellId, err := uuid.Parse(rawCell)
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return streamId, cellId, true
}
