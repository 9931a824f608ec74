package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	log "github.com/jensneuse/abstractlogger"
	"go.uber.org/zap"

	"github.com/storegraph/storegraph/internal/backend"
	"github.com/storegraph/storegraph/internal/cartaction"
	"github.com/storegraph/storegraph/internal/dispatcher"
	"github.com/storegraph/storegraph/internal/eventbus"
	"github.com/storegraph/storegraph/internal/federation"
	"github.com/storegraph/storegraph/internal/importer"
	"github.com/storegraph/storegraph/internal/otel"
	"github.com/storegraph/storegraph/internal/remote"
	"github.com/storegraph/storegraph/internal/schema"
	"github.com/storegraph/storegraph/internal/server"
	"github.com/storegraph/storegraph/internal/statestore"
)

const rootUsage = `storegraph — federated commerce GraphQL gateway

USAGE:
  storegraph <command> [flags]

COMMANDS:
  serve          Run the HTTP GraphQL gateway
  import         Validate a product CSV export against a fresh store
  render-schema  Print the local schema as SDL
  help           Show help for any command
`

const serveUsage = `serve FLAGS:
  -server.addr <addr>          HTTP listen address (default: :8080)
  -server.pretty               Pretty-print JSON responses
  -server.timeout <duration>   Per-request timeout, e.g. 10s (default: 10s)
  -server.max-body <bytes>     Request body size limit (default: 1048576)
  -server.cors-origin <origin> Allowed CORS origin. Repeatable
  -server.graphiql <bool>      Serve the GraphiQL IDE (default: true)
  -backend.url <url>           Commerce backend base URL
  -catalog.import <url|file>   Import a product CSV on startup. Repeatable
  -remote.schemas <json>       Remote schema config, e.g.
                                 {"cart":{"action":"cart-resolver","order":1000}}
                               (default: the in-process cart resolver)
  -remote.endpoint <url>       Invoke remote actions over HTTP at this base URL
                               instead of in process
  -cache.size <n>              State store LRU capacity (default: 1024)
  -cache.ttl <seconds>         Schema cache TTL; negative disables (default: -1)
  -otel.endpoint <addr>        OTLP collector endpoint
  -otel.service <name>         OpenTelemetry service name (default: storegraph)
`

const importUsage = `import FLAGS:
  -file <url|file>  Product CSV export to ingest (required)
`

const renderSchemaUsage = `render-schema FLAGS:
  -out <file>  Write SDL to file (default: stdout)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		stdlog.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}
	cmd := args[0]
	cmdArgs := args[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "import":
		return cmdImport(cmdArgs)
	case "render-schema":
		return cmdRenderSchema(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "import":
		fmt.Print(importUsage)
	case "render-schema":
		fmt.Print(renderSchemaUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func newLogger() log.Logger {
	zapLogger, err := zap.NewDevelopmentConfig().Build()
	if err != nil {
		panic(err)
	}
	return log.NewZapLogger(zapLogger, log.DebugLevel)
}

func cmdServe(args []string) error {
	addr := ":8080"
	pretty := false
	timeout := 10 * time.Second
	maxBody := int64(1 << 20)
	graphiql := true
	backendURL := "https://backend.example.com"
	remoteSchemasJSON := ""
	remoteEndpoint := ""
	cacheSize := 1024
	cacheTTL := -1
	otelEndpoint := ""
	otelService := "storegraph"
	var corsOrigins, imports stringListFlag

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.Int64Var(&maxBody, "server.max-body", maxBody, "Request body size limit")
	fs.Var(&corsOrigins, "server.cors-origin", "Allowed CORS origin")
	fs.BoolVar(&graphiql, "server.graphiql", graphiql, "Serve the GraphiQL IDE")
	fs.StringVar(&backendURL, "backend.url", backendURL, "Commerce backend base URL")
	fs.Var(&imports, "catalog.import", "Product CSV to import on startup")
	fs.StringVar(&remoteSchemasJSON, "remote.schemas", remoteSchemasJSON, "Remote schema config JSON")
	fs.StringVar(&remoteEndpoint, "remote.endpoint", remoteEndpoint, "Remote action HTTP base URL")
	fs.IntVar(&cacheSize, "cache.size", cacheSize, "State store LRU capacity")
	fs.IntVar(&cacheTTL, "cache.ttl", cacheTTL, "Schema cache TTL in seconds")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}

	logger := newLogger()

	store, err := statestore.NewMemory(cacheSize)
	if err != nil {
		return fmt.Errorf("state store init: %w", err)
	}
	sim := &backend.Simulator{BaseURL: backendURL}
	catalog := backend.NewCatalog(store, logger)

	ctx := context.Background()
	imp := importer.New(store, nil, logger)
	for _, file := range imports {
		count, err := importFile(ctx, imp, file)
		if err != nil {
			return fmt.Errorf("import %s: %w", file, err)
		}
		logger.Info("imported catalog file", log.String("file", file), log.Int("products", count))
	}

	var invoker remote.Invoker
	if remoteEndpoint != "" {
		invoker = &remote.HTTPInvoker{BaseURL: strings.TrimRight(remoteEndpoint, "/")}
	} else {
		action, err := cartaction.New(sim, catalog, logger)
		if err != nil {
			return fmt.Errorf("cart action init: %w", err)
		}
		invoker = &remote.InProcessInvoker{Actions: map[string]remote.ActionFunc{
			"cart-resolver": action.Main,
		}}
	}

	settings := map[string]any{}
	if remoteSchemasJSON != "" {
		var remoteSchemas map[string]any
		if err := json.Unmarshal([]byte(remoteSchemasJSON), &remoteSchemas); err != nil {
			return fmt.Errorf("parsing -remote.schemas: %w", err)
		}
		settings["remoteSchemas"] = remoteSchemas
	} else {
		settings["remoteSchemas"] = map[string]any{
			"cart": map[string]any{"action": "cart-resolver", "order": 1000},
		}
	}
	if cacheTTL >= 0 {
		settings["use-aio-cache"] = cacheTTL
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	d := dispatcher.New(sim, catalog, federation.NewFederator(store, invoker, logger), logger)

	sopts := []server.Option{server.WithGraphiQL(graphiql)}
	if pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if timeout > 0 {
		sopts = append(sopts, server.WithTimeout(timeout))
	}
	if maxBody > 0 {
		sopts = append(sopts, server.WithMaxBodyBytes(maxBody))
	}
	if len(corsOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(corsOrigins...))
	}
	h := server.New(d, settings, sopts...)

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)

	stdlog.Printf("GraphQL gateway listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}

// importFile ingests a CSV given as either a URL or a local path.
func importFile(ctx context.Context, imp *importer.Importer, file string) (int, error) {
	if strings.HasPrefix(file, "http://") || strings.HasPrefix(file, "https://") {
		return imp.ImportURL(ctx, file)
	}
	f, err := os.Open(file)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return imp.Import(ctx, f)
}

func cmdImport(args []string) error {
	file := ""
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&file, "file", file, "Product CSV export to ingest")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, importUsage)
		return err
	}
	if file == "" {
		fmt.Fprint(os.Stderr, importUsage)
		return fmt.Errorf("-file is required")
	}

	store, err := statestore.NewMemory(4096)
	if err != nil {
		return err
	}
	imp := importer.New(store, nil, newLogger())
	count, err := importFile(context.Background(), imp, file)
	if err != nil {
		return err
	}
	fmt.Printf("storedProducts: %d\n", count)
	return nil
}

func cmdRenderSchema(args []string) error {
	outFile := ""
	fs := flag.NewFlagSet("render-schema", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&outFile, "out", outFile, "Write SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, renderSchemaUsage)
		return err
	}

	sch, err := dispatcher.LocalSchema()
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}
	sdl := schema.Render(sch)
	if outFile == "" {
		fmt.Print(sdl)
		return nil
	}
	return os.WriteFile(outFile, []byte(sdl), 0644)
}
