package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/alavista/internal/queue"
	mid "github.com/OFFIS-RIT/alavista/internal/server/middleware"
	"github.com/OFFIS-RIT/alavista/internal/util"
	"github.com/OFFIS-RIT/alavista/pkg/ai"
	oai "github.com/OFFIS-RIT/alavista/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/alavista/pkg/ai/openai"
	"github.com/OFFIS-RIT/alavista/pkg/graph"
	"github.com/OFFIS-RIT/alavista/pkg/ingest"
	"github.com/OFFIS-RIT/alavista/pkg/logger"
	"github.com/OFFIS-RIT/alavista/pkg/ontology"
	"github.com/OFFIS-RIT/alavista/pkg/persona"
	"github.com/OFFIS-RIT/alavista/pkg/rag"
	"github.com/OFFIS-RIT/alavista/pkg/search"
	"github.com/OFFIS-RIT/alavista/pkg/store"
	"github.com/OFFIS-RIT/alavista/pkg/store/memory"
	"github.com/OFFIS-RIT/alavista/pkg/store/pgx"
	"github.com/OFFIS-RIT/alavista/pkg/vector"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// AI adapter. "static" wires a deterministic hash embedder for
	// offline deployments; extraction then always runs heuristically.
	adapter := util.GetEnv("AI_ADAPTER")
	var aiClient ai.GraphAIClient
	var embedder ai.EmbeddingClient

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
		embedder = client
	case "static":
		embedder = ai.NewStaticEmbedder(int(util.GetEnvNumeric("AI_EMBED_DIM", 64)))
	default:
		client := gai.NewClient(gai.ClientParams{
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
			CompletionModel: util.GetEnv("AI_CHAT_MODEL"),
			ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
			EmbeddingDim:    int(util.GetEnvNumeric("AI_EMBED_DIM", 1536)),

			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),
		})
		aiClient = client
		embedder = client
	}

	// Storage adapter
	var (
		corpora    store.CorpusStorage
		graphStore store.GraphStorage
		vectors    vector.Index
		memStore   *memory.Store
	)

	switch util.GetEnvString("STORAGE_ADAPTER", "postgres") {
	case "memory":
		memStore = memory.NewStore()
		snapshotPath := util.GetEnvString("SNAPSHOT_PATH", "")
		if snapshotPath != "" {
			if _, err := os.Stat(snapshotPath); err == nil {
				if err := memStore.Load(snapshotPath); err != nil {
					logger.Fatal("Failed to load snapshot", "path", snapshotPath, "err", err)
				}
				logger.Info("Loaded snapshot", "path", snapshotPath)
			}
		}
		corpora = memStore
		graphStore = memStore
		vectors = vector.NewMemoryIndex(util.GetEnvString("VECTOR_DIR", "data/vectors"))
	default:
		databaseURL := util.GetEnv("DATABASE_URL")
		migrationsURL := util.GetEnvString("MIGRATIONS_URL", "file://pkg/store/pgx/migrations")
		if err := pgx.Migrate(databaseURL, migrationsURL); err != nil {
			logger.Fatal("Failed to run migrations", "err", err)
		}
		pgStore, err := pgx.NewStore(ctx, databaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", "err", err)
		}
		defer pgStore.Close()
		corpora = pgStore
		graphStore = pgStore
		vectors = pgStore
	}

	// Ontology, personas, and the retrieval stack
	onto, err := ontology.Load(util.GetEnvString("ONTOLOGY_PATH", "configs/ontology.json"))
	if err != nil {
		logger.Fatal("Failed to load ontology", "err", err)
	}

	personas := persona.NewRegistry(onto, nil)
	if err := personas.LoadDir(util.GetEnvString("PERSONA_DIR", "configs/personas")); err != nil {
		logger.Fatal("Failed to load personas", "err", err)
	}

	graphClient := graph.NewClient(graphStore, onto)
	engine := search.NewEngine(search.EngineParams{
		Corpora:  corpora,
		Vectors:  vectors,
		Embedder: embedder,
	})

	var extractor *graph.LLMExtractor
	if util.GetEnvString("EXTRACTION_METHOD", "heuristic") == "llm" && aiClient != nil {
		extractor = graph.NewLLMExtractor(aiClient, onto)
	}

	var candidateExtractor graph.Extractor
	if extractor != nil {
		candidateExtractor = extractor
	}
	retriever := rag.NewRetriever(rag.RetrieverParams{
		Graph:     graphClient,
		Engine:    engine,
		Extractor: candidateExtractor,
	})
	runtime := persona.NewRuntime(personas, engine, retriever)

	counter, err := ingest.NewTokenCounter(util.GetEnvString("TOKEN_ENCODING", "cl100k_base"))
	if err != nil {
		logger.Fatal("Failed to load token encoding", "err", err)
	}
	chunker := ingest.NewChunker(counter, int(util.GetEnvNumeric("CHUNK_MAX_TOKENS", ingest.DefaultMaxTokens)))

	ingestSvc := ingest.NewService(ingest.ServiceParams{
		Corpora:   corpora,
		Graph:     graphClient,
		Chunker:   chunker,
		Embedder:  embedder,
		Vectors:   vectors,
		Engine:    engine,
		Extractor: extractor,
	})

	app := &mid.App{
		Corpora:   corpora,
		Graph:     graphClient,
		Engine:    engine,
		Retriever: retriever,
		Personas:  personas,
		Runtime:   runtime,
		Ingest:    ingestSvc,
		Vectors:   vectors,
	}

	// When enabled, document ingestion is delegated to the worker
	if util.GetEnvBool("QUEUE_ENABLED", false) {
		conn := queue.Init()
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		defer ch.Close()

		if err := queue.SetupQueues(ch, []string{queue.IngestQueue}); err != nil {
			logger.Fatal("Failed to set up queues", "err", err)
		}
		app.Queue = ch
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("64M"))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()

	if memStore != nil {
		snapshotPath := util.GetEnvString("SNAPSHOT_PATH", "")
		if snapshotPath != "" {
			if err := memStore.Save(snapshotPath); err != nil {
				logger.Error("Failed to save snapshot", "path", snapshotPath, "err", err)
			} else {
				logger.Info("Saved snapshot", "path", snapshotPath)
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
