package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Fullex26/noticehook/internal/analysers"
	"github.com/Fullex26/noticehook/pkg/models"
)

// maxNoticeBody bounds the size of an inbound notice
const maxNoticeBody = 64 << 10

// Intake accepts notices over HTTP and publishes them on the notice topic.
//
//	POST /notice   {"channel","type","title","text","image"} -> 202
//	GET  /healthz  -> 200
type Intake struct {
	addr  string
	pub   Publisher
	dedup *analysers.Deduplicator
	srv   *http.Server
}

func NewIntake(addr string, pub Publisher) *Intake {
	in := &Intake{addr: addr, pub: pub}
	in.srv = &http.Server{
		Addr:              addr,
		Handler:           in.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return in
}

func (in *Intake) Name() string { return "intake" }

// WithDedup makes the intake acknowledge repeated notices without publishing
// them. A duplicate gets 200 {"status":"duplicate"}.
func (in *Intake) WithDedup(d *analysers.Deduplicator) *Intake {
	in.dedup = d
	return in
}

// Handler returns the intake routes
func (in *Intake) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /notice", in.handleNotice)
	mux.HandleFunc("GET /healthz", in.handleHealth)
	return mux
}

// Start serves until ctx is cancelled
func (in *Intake) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", in.addr)
	if err != nil {
		return fmt.Errorf("intake listen on %s: %w", in.addr, err)
	}
	slog.Info("intake listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- in.srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return in.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (in *Intake) Stop() error {
	return in.srv.Close()
}

func (in *Intake) handleNotice(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxNoticeBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body: "+err.Error())
		return
	}
	if len(body) > maxNoticeBody {
		writeError(w, http.StatusRequestEntityTooLarge, "notice too large")
		return
	}

	var n models.Notice
	if err := json.Unmarshal(body, &n); err != nil {
		writeError(w, http.StatusBadRequest, "invalid notice: "+err.Error())
		return
	}
	if n.Type != "" && !n.Type.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown notice type %q", n.Type))
		return
	}

	if in.dedup != nil && !in.dedup.Allow(n) {
		slog.Debug("duplicate notice dropped", "type", n.Type, "title", n.Title)
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}

	in.pub.Publish(models.TopicNoticeMessage, n)
	slog.Debug("notice accepted", "type", n.Type, "title", n.Title, "remote", r.RemoteAddr)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (in *Intake) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
