package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/climatenet/climatebot/internal/bot"
	"github.com/climatenet/climatebot/internal/climate"
	"github.com/climatenet/climatebot/internal/directory"
	"github.com/climatenet/climatebot/internal/httputil"
	"github.com/climatenet/climatebot/internal/models"
	"github.com/climatenet/climatebot/internal/report"
	"github.com/climatenet/climatebot/internal/session"
	"github.com/climatenet/climatebot/internal/store"
)

// defaultIssueDevices are stations known to report unreliable values.
// Their columns carry a warning badge in comparison reports.
var defaultIssueDevices = []string{"Berd", "Ashotsk", "Gavar", "Artsvaberd", "Chambarak", "Areni", "Amasia"}

type cli struct {
	Token   string `env:"TELEGRAM_TOKEN" required:"" help:"Telegram bot API token."`
	APIBase string `env:"CLIMATE_API_URL" default:"https://climatenet.am" help:"Base URL of the measurement provider."`

	DB      string `env:"BOT_DB" default:"data/climatebot.db" help:"Path to the SQLite database."`
	OpsAddr string `env:"OPS_ADDR" default:":9090" help:"Listen address for metrics and health endpoints."`

	Renderer         string   `enum:"wkhtmltoimage,native" default:"wkhtmltoimage" help:"Comparison image backend."`
	WkhtmltoimageBin string   `env:"WKHTMLTOIMAGE_BIN" default:"wkhtmltoimage" help:"Path to the wkhtmltoimage binary."`
	FontPath         string   `env:"REPORT_FONT" default:"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf" help:"TTF font for the native renderer."`
	IssueDevices     []string `env:"ISSUE_DEVICES" help:"Device names flagged with a technical issues warning."`

	RefreshInterval time.Duration `env:"DIRECTORY_REFRESH" default:"6h" help:"Device directory refresh interval."`
	WebsiteURL      string        `env:"WEBSITE_URL" default:"" help:"Override for the /Website link."`
	MapImageURL     string        `env:"MAP_IMAGE_URL" default:"" help:"Override for the /Map image."`
}

func main() {
	var flags cli
	kong.Parse(&flags,
		kong.Name("climatebot"),
		kong.Description("Telegram bot for browsing ClimateNet environmental sensors."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	db, err := store.Open(flags.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database migrated")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	provider := climate.New(flags.APIBase)
	dir := directory.New(provider)
	// A failed initial refresh is not fatal: the bot starts with an empty
	// directory and the periodic refresh fills it in.
	if err := dir.Refresh(ctx); err != nil {
		log.Printf("initial directory refresh failed: %v", err)
	}
	go refreshLoop(ctx, dir, flags.RefreshInterval)

	issues := flags.IssueDevices
	if len(issues) == 0 {
		issues = defaultIssueDevices
	}
	renderer, err := newRenderer(flags, issues)
	if err != nil {
		log.Fatalf("renderer: %v", err)
	}

	transport := bot.NewTelegram("", flags.Token)
	machine := session.NewMachine(session.NewStore(), dir, provider, renderer, analytics{st}, bot.MainMenu)
	dispatcher := bot.NewDispatcher(transport, machine, dir, st, httputil.NewClient(), flags.WebsiteURL, flags.MapImageURL)
	poller := bot.NewPoller(transport, dispatcher)

	go serveOps(ctx, flags.OpsAddr, opsHandler(st, dir))

	log.Println("starting update poller")
	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("poller: %v", err)
	}
	log.Println("shut down")
}

func newRenderer(flags cli, issues []string) (session.Renderer, error) {
	if flags.Renderer == "native" {
		return report.NewNativeRenderer(flags.FontPath, report.DefaultWidth, issues), nil
	}
	return report.NewRenderer(report.NewExecRasterizer(flags.WkhtmltoimageBin), report.DefaultWidth, issues)
}

func refreshLoop(ctx context.Context, dir *directory.Directory, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := dir.Refresh(ctx); err != nil {
				log.Printf("directory refresh failed: %v", err)
			}
		}
	}
}

// opsHandler exposes Prometheus metrics, a liveness endpoint, and a small
// usage snapshot: per-command dispatch counts plus the age of the device
// directory.
func opsHandler(st *store.Store, dir *directory.Directory) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		counts, err := st.CommandCounts()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"commands":               counts,
			"directory_refreshed_at": dir.RefreshedAt(),
		})
	})
	return mux
}

func serveOps(ctx context.Context, addr string, handler http.Handler) {
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("ops server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("ops server: %v", err)
	}
}

// analytics adapts the persistent store to the session machine's
// fire-and-forget selection hook.
type analytics struct {
	st *store.Store
}

func (a analytics) RecordSelection(chatID int64, dev models.Device) error {
	return a.st.RecordDeviceSelection(chatID, dev.ID, dev.Name)
}
