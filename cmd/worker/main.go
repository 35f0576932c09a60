package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/alavista/internal/queue"
	"github.com/OFFIS-RIT/alavista/internal/util"

	"github.com/OFFIS-RIT/alavista/pkg/ai"
	oai "github.com/OFFIS-RIT/alavista/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/alavista/pkg/ai/openai"
	"github.com/OFFIS-RIT/alavista/pkg/graph"
	"github.com/OFFIS-RIT/alavista/pkg/ingest"
	"github.com/OFFIS-RIT/alavista/pkg/logger"
	"github.com/OFFIS-RIT/alavista/pkg/logger/console"
	"github.com/OFFIS-RIT/alavista/pkg/ontology"
	"github.com/OFFIS-RIT/alavista/pkg/search"
	"github.com/OFFIS-RIT/alavista/pkg/store/pgx"

	amqp "github.com/rabbitmq/amqp091-go"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	// GraphAIClient
	adapter := util.GetEnv("AI_ADAPTER")
	var aiClient ai.GraphAIClient

	switch adapter {
	case "ollama":
		client, err := oai.NewClient(oai.ClientParams{
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
			CompletionModel: util.GetEnv("AI_CHAT_MODEL"),
			ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
			EmbeddingDim:    int(util.GetEnvNumeric("AI_EMBED_DIM", 1024)),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			APIKey:  util.GetEnv("AI_CHAT_KEY"),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		aiClient = client
	default:
		aiClient = gai.NewClient(gai.ClientParams{
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
			CompletionModel: util.GetEnv("AI_CHAT_MODEL"),
			ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
			EmbeddingDim:    int(util.GetEnvNumeric("AI_EMBED_DIM", 1536)),

			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),
		})
	}

	// Init pgx store
	databaseURL := util.GetEnv("DATABASE_URL")
	migrationsURL := util.GetEnvString("MIGRATIONS_URL", "file://pkg/store/pgx/migrations")
	if err := pgx.Migrate(databaseURL, migrationsURL); err != nil {
		logger.Fatal("Failed to run migrations", "err", err)
	}

	pgStore, err := pgx.NewStore(ctx, databaseURL)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgStore.Close()

	// Ontology, graph and search
	onto, err := ontology.Load(util.GetEnvString("ONTOLOGY_PATH", "configs/ontology.json"))
	if err != nil {
		logger.Fatal("Failed to load ontology", "err", err)
	}
	graphClient := graph.NewClient(pgStore, onto)

	engine := search.NewEngine(search.EngineParams{
		Corpora:  pgStore,
		Vectors:  pgStore,
		Embedder: aiClient,
	})

	counter, err := ingest.NewTokenCounter(util.GetEnvString("TOKEN_ENCODING", "cl100k_base"))
	if err != nil {
		logger.Fatal("Failed to load token encoding", "err", err)
	}
	chunker := ingest.NewChunker(counter, int(util.GetEnvNumeric("CHUNK_MAX_TOKENS", ingest.DefaultMaxTokens)))

	var extractor *graph.LLMExtractor
	if util.GetEnvString("EXTRACTION_METHOD", "heuristic") == "llm" {
		extractor = graph.NewLLMExtractor(aiClient, onto)
	}

	ingestSvc := ingest.NewService(ingest.ServiceParams{
		Corpora:   pgStore,
		Graph:     graphClient,
		Chunker:   chunker,
		Embedder:  aiClient,
		Vectors:   pgStore,
		Engine:    engine,
		Extractor: extractor,
	})

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	queues := []string{queue.IngestQueue}
	if err := queue.SetupQueues(ch, queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	logger.Info("Listening for messages")

	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	// prefetch=1 so only one message is in flight at a time
	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queues {
		go func(qName string) {
			consumerTag := fmt.Sprintf("%s_consumer", qName)
			msgs, err := consumerCh.Consume(
				qName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("Stopping consumer", "queue", qName)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				var processingErr error
				switch qm.queueName {
				case queue.IngestQueue:
					processingErr = queue.ProcessIngestMessage(ctx, ingestSvc, string(qm.msg.Body))
				}

				// If there was an error send to retry or dead-letter, otherwise ack the message
				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					handleProcessingError(consumerCh, qm.msg, qm.queueName)
				} else {
					err = qm.msg.Ack(false)
					if err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				metrics := aiClient.GetMetrics()
				aiDuration := time.Duration(metrics.DurationMs) * time.Millisecond
				logger.Info(
					"AI Metrics",
					"input_tokens", metrics.InputTokens,
					"output_tokens", metrics.OutputTokens,
					"total_tokens", metrics.TotalTokens,
					"duration", formatDuration(aiDuration),
				)

				logger.Info(
					"Processing time",
					"duration", formatDuration(time.Since(startTime)),
				)
				logger.Info("Waiting for next message")
				aiClient.ResetMetrics()
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	// After 10 attempts the message goes to the dead-letter queue
	if retries >= 10 {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = retries + 1

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
