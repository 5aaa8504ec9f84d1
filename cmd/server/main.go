package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiliankoe/codewords/internal/api"
	"github.com/kiliankoe/codewords/internal/config"
	"github.com/kiliankoe/codewords/internal/game"
	"github.com/kiliankoe/codewords/internal/store"
	"github.com/kiliankoe/codewords/internal/store/sqlite"
	"github.com/kiliankoe/codewords/internal/ws"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
)

var version = "dev" // Set at build time via -ldflags

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Codewords - Real-time team word-association game server

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT              Port to listen on (default: 8080)
  STORE             Room storage: "memory" or "sqlite" (default: memory)
  SQLITE_PATH       SQLite database file (default: ./codewords.db)
  CAS_RETRIES       Retries for conflicting SQLite updates (default: 5)
  ROOM_TTL          How long a room accepts joins (default: 3h)
  WORDS_FILE        Word list used when a room is created without words
  ALLOWED_ORIGINS   Comma separated CORS origins (default: *)
  RATE_LIMIT        Requests per second per client (default: 5)
  RATE_BURST        Request burst per client (default: 10)
  ADMIN_USER        Admin username for basic auth
  ADMIN_PASS        Admin password for basic auth
  EXPORT_ENABLED    Export finished games to file (default: false)
  EXPORT_FILE       Path to export game results (default: ./codewords-results.txt)

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("Codewords %s\n", version)
		return
	}

	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	cfg, err := config.FromEnv()
	if err != nil {
		zerologlog.Fatal().Err(err).Msg("invalid configuration")
	}
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		zerologlog.Fatal().Err(err).Str("store", cfg.Store).Msg("failed to open room store")
	}
	defer closeRepo()

	opts := []game.Option{game.WithTTL(cfg.RoomTTL)}
	if cfg.WordsFile != "" {
		words, err := game.LoadWords(cfg.WordsFile)
		if err != nil {
			zerologlog.Fatal().Err(err).Str("file", cfg.WordsFile).Msg("failed to load word list")
		}
		zerologlog.Info().Int("words", len(words)).Str("file", cfg.WordsFile).Msg("loaded word list")
		opts = append(opts, game.WithDefaultWords(words))
	}
	if cfg.ExportEnabled {
		opts = append(opts, game.WithExport(cfg.ExportFile))
	}
	svc := game.NewService(repo, opts...)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(api.Logger())
	r.Use(api.CORS(cfg.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	sock := ws.New(svc, cfg.RateLimit, cfg.RateBurst)
	io := sock.Mount(r)
	defer io.Close()

	h := api.New(svc)
	h.Register(r.Group("/api", api.RateLimit(cfg.RateLimit, cfg.RateBurst)))
	if cfg.AdminEnabled() {
		auth := gin.BasicAuth(gin.Accounts{cfg.AdminUser: cfg.AdminPass})
		h.RegisterAdmin(r.Group("/api/admin", auth))
	}

	zerologlog.Info().Str("port", cfg.Port).Str("store", cfg.Store).Msg("listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		zerologlog.Fatal().Err(err).Msg("server stopped")
	}
}

func openRepository(cfg config.Config) (game.Repository, func(), error) {
	switch cfg.Store {
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath, sqlite.WithRetries(cfg.CASRetries))
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return store.NewMemoryStore(), func() {}, nil
	}
}
