package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"tradecouncil/internal/adapters/kafka"
	"tradecouncil/pkg/errors"
	"tradecouncil/pkg/logger"
)

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) PublishBinary(ctx context.Context, topic string, key, value []byte) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func TestPublisher_PipelineCompleted(t *testing.T) {
	producer := &mockProducer{}
	var payload []byte
	producer.On("PublishBinary", mock.Anything, kafka.TopicPipelineCompleted, []byte("u1"), mock.Anything).
		Run(func(args mock.Arguments) { payload = args.Get(3).([]byte) }).
		Return(nil).
		Once()

	p := NewPublisher(producer, logger.NewNop())
	require.NoError(t, p.PipelineCompleted(context.Background(), sampleResult()))
	producer.AssertExpectations(t)

	var decoded structpb.Struct
	require.NoError(t, proto.Unmarshal(payload, &decoded))
	assert.Equal(t, "Avoid", decoded.GetFields()["action"].GetStringValue())
}

func TestPublisher_ProducerError(t *testing.T) {
	producer := &mockProducer{}
	producer.On("PublishBinary", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.ErrUnavailable)

	p := NewPublisher(producer, logger.NewNop())
	err := p.PipelineCompleted(context.Background(), sampleResult())
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
}

func TestPublisher_NilResult(t *testing.T) {
	producer := &mockProducer{}
	p := NewPublisher(producer, logger.NewNop())

	assert.Error(t, p.PipelineCompleted(context.Background(), nil))
	producer.AssertNotCalled(t, "PublishBinary", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPublisher_WithTopic(t *testing.T) {
	producer := &mockProducer{}
	producer.On("PublishBinary", mock.Anything, "runs.done", []byte("u1"), mock.Anything).Return(nil)

	p := NewPublisher(producer, logger.NewNop()).WithTopic("runs.done")
	require.NoError(t, p.PipelineCompleted(context.Background(), sampleResult()))
	producer.AssertExpectations(t)
}
