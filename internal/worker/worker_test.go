package worker

import (
	"context"
	"encoding/json"
	"testing"

	"crm-insight/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingInvalidator struct {
	ids []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, id string) error {
	r.ids = append(r.ids, id)
	return nil
}

func TestRefreshWorkerInvalidatesOnSourceUpdated(t *testing.T) {
	inv := &recordingInvalidator{}
	w := NewRefreshWorker(nil, inv)

	value, err := json.Marshal(models.SourceUpdatedEvent{
		BaseEvent: models.BaseEvent{EventID: "e1", EventType: models.EventTypeSourceUpdated},
		SourceID:  "sheet-42",
	})
	require.NoError(t, err)

	require.NoError(t, w.eventHandler.HandleMessage(context.Background(), kafka.Message{Value: value}))
	assert.Equal(t, []string{"sheet-42"}, inv.ids)
}

func TestRefreshWorkerIgnoresOtherEvents(t *testing.T) {
	inv := &recordingInvalidator{}
	w := NewRefreshWorker(nil, inv)

	value, err := json.Marshal(models.DatasetLoadedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeDatasetLoaded},
		SourceID:  "sheet-42",
	})
	require.NoError(t, err)

	require.NoError(t, w.eventHandler.HandleMessage(context.Background(), kafka.Message{Value: value}))
	assert.Empty(t, inv.ids)
}
