// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/kazipath/kazipath/services/assistant/config"
	"github.com/kazipath/kazipath/services/assistant/datatypes"
	"github.com/kazipath/kazipath/services/assistant/handlers"
	"github.com/kazipath/kazipath/services/assistant/history"
	"github.com/kazipath/kazipath/services/assistant/llm"
	"github.com/kazipath/kazipath/services/assistant/observability"
	"github.com/kazipath/kazipath/services/assistant/prompt"
	"github.com/kazipath/kazipath/services/assistant/ratelimit"
	"github.com/kazipath/kazipath/services/assistant/retrieval"
	"github.com/kazipath/kazipath/services/assistant/routes"
	"github.com/kazipath/kazipath/services/assistant/services"
	"github.com/kazipath/kazipath/services/assistant/tools"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

const serviceName = "assistant-service"

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "kazipath-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	// Local development convenience; in deployment the environment comes
	// from the container runtime.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Could not load .env file", "error", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("ASSISTANT_CONFIG"))
	if err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	metrics := observability.InitMetrics()

	// --- Weaviate (retrieval corpora) ---
	// A missing or unreachable Weaviate does not stop startup: the engine
	// runs with nil searchers and every turn assembles without context.
	var weaviateClient *weaviate.Client
	if cfg.Weaviate.Host != "" {
		weaviateClient, err = weaviate.NewClient(weaviate.Config{
			Host:   cfg.Weaviate.Host,
			Scheme: cfg.Weaviate.Scheme,
		})
		if err != nil {
			slog.Error("Failed to create Weaviate client, retrieval disabled", "error", err)
			weaviateClient = nil
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := datatypes.EnsureSchema(ctx, weaviateClient); err != nil {
				slog.Warn("Weaviate schema bootstrap incomplete", "error", err)
			}
			cancel()
		}
	} else {
		slog.Info("Weaviate host not set. Running without library retrieval.")
	}

	var careers, helpDocs, qa retrieval.Searcher
	if weaviateClient != nil {
		careers = retrieval.NewCareerSearcher(weaviateClient)
		helpDocs = retrieval.NewHelpDocSearcher(weaviateClient)
		qa = retrieval.NewQASearcher(weaviateClient)
	}
	engine := retrieval.NewEngine(careers, helpDocs, qa,
		retrieval.WithLimits(retrieval.Limits{
			Careers:  cfg.Retrieval.Careers,
			HelpDocs: cfg.Retrieval.HelpDocs,
			QA:       cfg.Retrieval.QA,
		}),
		retrieval.WithBranchTimeout(cfg.Retrieval.BranchTimeout.Std()),
		retrieval.WithDegradationHook(func(corpus, mode string) {
			metrics.RetrievalDegradationsTotal.WithLabelValues(corpus, mode).Inc()
		}),
	)

	// --- Model gateway ---
	// ErrNotConfigured is an expected state: the service runs fallback-only
	// until a key is provisioned. Any other construction error is fatal.
	var modelClient llm.LLMClient
	modelClient, err = llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			slog.Warn("Model gateway not configured. Running in fallback-only mode.")
			modelClient = nil
		} else {
			log.Fatalf("FATAL: could not initialize the model gateway: %v", err)
		}
	}

	// --- History store ---
	var store *history.Store
	if cfg.Postgres.DSN != "" {
		pool, err := pgxpool.New(context.Background(), cfg.Postgres.DSN)
		if err != nil {
			log.Fatalf("FATAL: could not create postgres pool: %v", err)
		}
		defer pool.Close()
		store = history.NewStore(pool)
		store.Start()
		defer store.Close()
	} else {
		slog.Info("Postgres DSN not set. Running without history or telemetry.")
	}

	// --- Pipeline ---
	limiter := ratelimit.New(ratelimit.Policy{
		Limit:  cfg.RateLimit.Limit,
		Window: cfg.RateLimit.Window.Std(),
	})
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	limiter.StartJanitor(janitorCtx, cfg.RateLimit.Window.Std())

	executor := tools.NewExecutor(recorderOrNil(store))

	// The interface-typed deps must stay genuinely nil when disabled.
	var svcStore services.HistoryStore
	if store != nil {
		svcStore = store
	}

	svc := services.NewAssistantService(
		limiter, engine, prompt.NewAssembler(), modelClient, executor, svcStore, metrics,
		services.WithTurnDeadline(cfg.Pipeline.TurnDeadline.Std()),
		services.WithHistoryLimit(cfg.Pipeline.HistoryLimit),
		services.WithLifeSkillTool(cfg.Tools.LifeSkillsEnabled),
	)

	// --- HTTP ---
	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))

	var historyReader handlers.HistoryReader
	probes := map[string]handlers.Probe{
		"postgres": nil,
		"weaviate": nil,
		"model":    nil,
	}
	if store != nil {
		historyReader = store
		probes["postgres"] = store.Ping
	}
	if weaviateClient != nil {
		probes["weaviate"] = func(ctx context.Context) error {
			ok, err := weaviateClient.Misc().ReadyChecker().Do(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("weaviate not ready")
			}
			return nil
		}
	}
	if modelClient != nil {
		// Configuration is checked at construction; presence is the probe.
		probes["model"] = func(context.Context) error { return nil }
	}

	routes.SetupRoutes(router, svc, historyReader, probes)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("Starting the assistant server", "addr", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// recorderOrNil avoids handing the executor a typed-nil interface.
func recorderOrNil(store *history.Store) tools.RecommendationRecorder {
	if store == nil {
		return nil
	}
	return store
}
