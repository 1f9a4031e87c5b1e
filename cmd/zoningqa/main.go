package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/flarexio/zoningqa"
	"github.com/flarexio/zoningqa/tui"

	mcpE "github.com/flarexio/zoningqa/mcp"
	httpT "github.com/flarexio/zoningqa/transport/http"
	natsT "github.com/flarexio/zoningqa/transport/nats"
)

func main() {
	natsFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "nats-url",
			Usage:   "NATS server URL",
			Value:   "wss://nats.flarex.io",
			Sources: cli.EnvVars("NATS_URL"),
		},
		&cli.StringFlag{
			Name:    "nats-creds",
			Usage:   "NATS user credentials file (default: <path>/user.creds)",
			Sources: cli.EnvVars("NATS_CREDS"),
		},
		&cli.StringFlag{
			Name:    "edge-id",
			Usage:   "Edge ID of the zoningqa service (default: contents of <path>/id)",
			Sources: cli.EnvVars("EDGE_ID"),
		},
	}

	cmd := &cli.Command{
		Name:  "zoningqa",
		Usage: "NYC zoning handbook assistant",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Usage:   "Path to the zoningqa service directory",
				Sources: cli.EnvVars("ZONINGQA_PATH"),
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "Write production JSON logs",
				Value: false,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Serve the assistant over HTTP and NATS",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "nats",
						Usage: "Enable NATS transport",
						Value: false,
					},
					&cli.BoolFlag{
						Name:  "http",
						Usage: "Enable HTTP transport",
						Value: true,
					},
					&cli.StringFlag{
						Name:  "http-addr",
						Usage: "HTTP server address",
						Value: ":8080",
					},
				}, natsFlags...),
				Action: serve,
			},
			{
				Name:  "chat",
				Usage: "Chat with the assistant in the terminal",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "nats",
						Usage: "Use a remote zoningqa service over NATS",
						Value: false,
					},
				}, natsFlags...),
				Action: chat,
			},
			{
				Name:      "ask",
				Usage:     "Answer a single question and exit",
				ArgsUsage: "<question>",
				Action:    ask,
			},
			{
				Name:   "ingest",
				Usage:  "Build the document index from the corpus directory",
				Action: ingestCorpus,
			},
			{
				Name:  "mcp",
				Usage: "Serve the assistant as an MCP server over stdio",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "nats",
						Usage: "Use a remote zoningqa service over NATS",
						Value: false,
					},
				}, natsFlags...),
				Action: serveMCP,
			},
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	path, err := servicePath(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cmd, "")
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	svc, cleanup, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	endpoints := zoningqa.MakeEndpoints(svc)

	if cmd.Bool("nats") {
		nc, edgeID, err := connectNATS(cmd, path, "zoningqa Server")
		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "zoningqa",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		root := srv.AddGroup(topic(edgeID))
		if err := natsT.AddEndpoints(root, endpoints); err != nil {
			return err
		}

		log.Info("nats transport enabled", zap.String("topic", topic(edgeID)))
	}

	if cmd.Bool("http") {
		r := gin.Default()
		httpT.AddRouters(r, endpoints)
		httpT.AddStreamableRouters(r, mcpE.Endpoints(svc))

		httpAddr := cmd.String("http-addr")
		go r.Run(httpAddr)

		log.Info("http transport enabled", zap.String("addr", httpAddr))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}

func chat(ctx context.Context, cmd *cli.Command) error {
	path, err := servicePath(cmd)
	if err != nil {
		return err
	}

	// the terminal belongs to the TUI
	log, err := newLogger(cmd, filepath.Join(path, "zoningqa.log"))
	if err != nil {
		return err
	}
	defer log.Sync()

	svc, cleanup, err := clientService(ctx, cmd, path, log)
	if err != nil {
		return err
	}
	defer cleanup()

	sessionID, err := svc.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer svc.CloseSession(ctx, sessionID)

	ctx = context.WithValue(ctx, zoningqa.SessionID, sessionID)

	m := tui.New(ctx, svc)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return err
	}

	return nil
}

func ask(ctx context.Context, cmd *cli.Command) error {
	question := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		return errors.New("a question is required")
	}

	path, err := servicePath(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cmd, filepath.Join(path, "zoningqa.log"))
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	svc, cleanup, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	answer, err := svc.Answer(ctx, question)
	if err != nil {
		return err
	}

	fmt.Println(answer)
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	path, err := servicePath(cmd)
	if err != nil {
		return err
	}

	// stdout carries the protocol
	log, err := newLogger(cmd, filepath.Join(path, "zoningqa.log"))
	if err != nil {
		return err
	}
	defer log.Sync()

	svc, cleanup, err := clientService(ctx, cmd, path, log)
	if err != nil {
		return err
	}
	defer cleanup()

	s := mcpE.NewStdioServer(os.Stdin, os.Stdout)
	for method, endpoint := range mcpE.Endpoints(svc) {
		if err := s.AddEndpoint(method, endpoint); err != nil {
			return err
		}
	}

	errs := make(chan error, 1)
	go func() {
		errs <- s.Listen(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	select {
	case <-quit:
		cancel()
		return nil

	case err := <-errs:
		return err
	}
}

// clientService returns either a local service or a proxy to a remote
// one over NATS.
func clientService(ctx context.Context, cmd *cli.Command, path string, log *zap.Logger) (zoningqa.Service, func(), error) {
	if !cmd.Bool("nats") {
		cfg, err := loadConfig(path)
		if err != nil {
			return nil, nil, err
		}

		return newService(ctx, cfg, log)
	}

	nc, edgeID, err := connectNATS(cmd, path, "zoningqa Client")
	if err != nil {
		return nil, nil, err
	}

	endpoints := natsT.MakeEndpoints(nc, topic(edgeID), natsT.DefaultTimeout)

	var svc zoningqa.Service
	svc = zoningqa.ProxyMiddleware(endpoints)(svc)

	cleanup := func() {
		nc.Drain()
	}

	return svc, cleanup, nil
}

func connectNATS(cmd *cli.Command, path string, name string) (*nats.Conn, string, error) {
	edgeID := cmd.String("edge-id")
	if edgeID == "" {
		idBytes, err := os.ReadFile(filepath.Join(path, "id"))
		if err != nil {
			return nil, "", err
		}

		edgeID = strings.TrimSpace(string(idBytes))
	}

	natsCreds := cmd.String("nats-creds")
	if natsCreds == "" {
		natsCreds = filepath.Join(path, "user.creds")
	}

	opts := []nats.Option{
		nats.Name(name + " - " + edgeID),
	}

	if _, err := os.Stat(natsCreds); err == nil {
		opts = append(opts, nats.UserCredentials(natsCreds))
	}

	nc, err := nats.Connect(cmd.String("nats-url"), opts...)
	if err != nil {
		return nil, "", err
	}

	return nc, edgeID, nil
}

func topic(edgeID string) string {
	return "edges." + edgeID + ".zoningqa"
}

func ingestCorpus(ctx context.Context, cmd *cli.Command) error {
	path, err := servicePath(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cmd, "")
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	stats, err := runIngest(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("files=%d pages=%d chunks=%d added=%d skipped=%d\n",
		stats.Files, stats.Pages, stats.Chunks, stats.Added, stats.Skipped)

	return nil
}
