package subscriber

import (
	"encoding/json"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const topicPattern = "/tracking/+/+/position"

type ingestPipeline interface {
	Submit(raw map[string]any)
}

// PositionSubscriber feeds raw position reports from the wire topic into the
// ingest pipeline. Payloads stay as loose maps here: the pipeline's
// normalizer owns field aliases and validation, so the two ingest sources
// share one code path.
type PositionSubscriber struct {
	client   mqtt.Client
	pipeline ingestPipeline
}

func NewPositionSubscriber(client mqtt.Client, pipeline ingestPipeline) *PositionSubscriber {
	return &PositionSubscriber{client: client, pipeline: pipeline}
}

func (s *PositionSubscriber) Start() error {
	token := s.client.Subscribe(topicPattern, 1, s.handleMessage)
	token.Wait()
	return token.Error()
}

func (s *PositionSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw map[string]any
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		log.Printf("invalid position message on %s: %v", msg.Topic(), err)
		return
	}

	applyTopicIdentity(raw, msg.Topic())
	s.pipeline.Submit(raw)
}

// applyTopicIdentity fills the identity field from the topic segments
// (/tracking/{kind}/{id}/position) when the payload carries none. A payload
// identity wins over the topic.
func applyTopicIdentity(raw map[string]any, topic string) {
	if _, ok := raw["deviceId"]; ok {
		return
	}
	if _, ok := raw["userId"]; ok {
		return
	}

	parts := strings.Split(strings.TrimPrefix(topic, "/"), "/")
	if len(parts) != 4 || parts[2] == "" {
		return
	}
	switch parts[1] {
	case "user":
		raw["userId"] = parts[2]
	case "vehicle":
		raw["deviceId"] = parts[2]
	}
}
