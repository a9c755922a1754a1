package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// topicAdmin is the subset of *kafka.Conn used to provision topics
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

const (
	partitionReadAttempts = 5
	partitionReadBackoff  = 2 * time.Second
)

// createKafkaTopicIfNotExists creates the topic when no partitions can be read for it
func createKafkaTopicIfNotExists(conn *kafka.Conn, topicName string, numPartitions int, replicationFactor int, log *slog.Logger) error {
	return ensureTopic(conn, kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}, partitionReadBackoff, log)
}

func ensureTopic(admin topicAdmin, topic kafka.TopicConfig, backoff time.Duration, log *slog.Logger) error {
	var partitions []kafka.Partition
	var err error

	for i := 0; i < partitionReadAttempts; i++ {
		partitions, err = admin.ReadPartitions(topic.Topic)
		if err == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying", "topic", topic.Topic, "attempt", i+1, "error", err)
		time.Sleep(backoff)
	}

	if len(partitions) > 0 {
		log.Info("Kafka topic already exists", "topic", topic.Topic, "partitions", len(partitions))
		return nil
	}

	if topic.NumPartitions <= 0 {
		topic.NumPartitions = 1
	}
	if topic.ReplicationFactor <= 0 {
		topic.ReplicationFactor = 1
	}

	log.Info("Creating Kafka topic",
		"topic", topic.Topic,
		"partitions", topic.NumPartitions,
		"replication_factor", topic.ReplicationFactor,
		"last_read_error", err,
	)
	if err := admin.CreateTopics(topic); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic.Topic, err)
	}
	return nil
}
