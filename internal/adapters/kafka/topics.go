package kafka

// Default topic names; both are overridable through KafkaConfig
const (
	// TopicPipelineRequests carries analysis requests into the service
	TopicPipelineRequests = "pipeline.requests"
	// TopicPipelineCompleted carries one event per finished run
	TopicPipelineCompleted = "pipeline.completed"
)
