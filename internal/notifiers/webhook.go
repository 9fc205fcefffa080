package notifiers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Fullex26/noticehook/internal/config"
	"github.com/Fullex26/noticehook/pkg/models"
)

// maxErrorBody caps how much of a failed response is logged
const maxErrorBody = 4096

// Webhook forwards notices to a single configured URL via GET or POST
type Webhook struct {
	mu  sync.RWMutex
	cfg config.WebhookConfig

	transport Transport
	recorder  Recorder
	log       *slog.Logger
	sleep     func(time.Duration)
}

// NewWebhook builds the forwarder. transport defaults to NewHTTPTransport;
// recorder may be nil.
func NewWebhook(cfg config.WebhookConfig, transport Transport, recorder Recorder) *Webhook {
	if transport == nil {
		transport = NewHTTPTransport()
	}
	return &Webhook{
		cfg:       cfg,
		transport: transport,
		recorder:  recorder,
		log:       slog.Default(),
		sleep:     time.Sleep,
	}
}

func (w *Webhook) Name() string { return "webhook" }

// Reconfigure swaps in a new config snapshot. Notices already past the
// filter keep the snapshot they started with.
func (w *Webhook) Reconfigure(cfg config.WebhookConfig) {
	w.mu.Lock()
	w.cfg = cfg
	w.mu.Unlock()
	w.log.Info("webhook reconfigured",
		"enabled", cfg.Enabled,
		"method", cfg.RequestMethod,
		"delay", cfg.Delay,
		"msgtypes", cfg.MsgTypes,
	)
}

// Config returns the current snapshot
func (w *Webhook) Config() config.WebhookConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}

// State reports whether the forwarder is enabled and has somewhere to send
func (w *Webhook) State() bool {
	return w.Config().Active()
}

// Handle filters the notice, waits out the configured delay on the calling
// goroutine, then dispatches it once.
func (w *Webhook) Handle(notice models.Notice) {
	cfg := w.Config()
	if !cfg.Active() {
		return
	}

	// Already routed to a specific channel elsewhere.
	if notice.Channel != "" {
		return
	}

	if notice.Title == "" && notice.Text == "" {
		w.log.Warn("notice skipped: title and text are both empty")
		return
	}

	if notice.Type != "" && len(cfg.MsgTypes) > 0 && !slices.Contains(cfg.MsgTypes, string(notice.Type)) {
		w.log.Info("notice type not enabled for webhook", "type", notice.Type.Label())
		return
	}

	if d := cfg.DelayDuration(); d > 0 {
		w.log.Info("delaying webhook delivery", "delay", d)
		w.sleep(d)
	}

	w.dispatch(cfg, models.NewDispatchPayload(notice))
}

// Test sends a fixed payload through the normal dispatch path. It only
// needs a URL; the enabled switch is ignored so a disabled hook can be checked.
func (w *Webhook) Test() error {
	cfg := w.Config()
	if cfg.URL == "" {
		return errors.New("webhook url is not configured")
	}
	d := w.dispatch(cfg, models.DispatchPayload{
		Device: models.DeviceTag,
		Title:  "noticehook test",
		Desp:   "Test notification: noticehook is connected!",
	})
	if d.Outcome != models.OutcomeSent {
		return fmt.Errorf("webhook test failed: %s", d.Error)
	}
	return nil
}

func (w *Webhook) dispatch(cfg config.WebhookConfig, p models.DispatchPayload) (d models.Delivery) {
	method := http.MethodGet
	if cfg.RequestMethod == http.MethodPost {
		method = http.MethodPost
	}
	d = models.NewDelivery(method, cfg.URL, p)

	defer func() {
		if r := recover(); r != nil {
			d.Outcome = models.OutcomeError
			d.Error = fmt.Sprint(r)
			w.log.Error("webhook send failed", "error", d.Error)
		}
		w.record(d)
	}()

	w.log.Info("sending webhook message", "method", method)
	var (
		resp *http.Response
		err  error
	)
	if method == http.MethodPost {
		resp, err = w.transport.PostJSON(cfg.URL, p)
	} else {
		resp, err = w.transport.Get(cfg.URL, p.Query())
	}

	switch {
	case err != nil:
		d.Outcome = models.OutcomeError
		d.Error = err.Error()
		w.log.Error("webhook send failed", "error", err)
	case resp == nil:
		d.Outcome = models.OutcomeNoResponse
		d.Error = "no response received"
		w.log.Error("webhook send failed: no response received")
	default:
		if resp.Body != nil {
			defer resp.Body.Close()
		}
		d.StatusCode = resp.StatusCode
		if resp.StatusCode < http.StatusBadRequest {
			d.Outcome = models.OutcomeSent
			w.log.Info("webhook sent",
				"method", method,
				"url", cfg.URL,
				"title", p.Title,
				"desp", p.Desp,
			)
			return d
		}
		var body []byte
		if resp.Body != nil {
			body, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		}
		reason := statusReason(resp)
		d.Outcome = models.OutcomeFailed
		d.Error = fmt.Sprintf("status %d %s: %s", resp.StatusCode, reason, strings.TrimSpace(string(body)))
		w.log.Error("webhook send failed",
			"status", resp.StatusCode,
			"body", string(body),
			"reason", reason,
		)
	}
	return d
}

func (w *Webhook) record(d models.Delivery) {
	if w.recorder == nil {
		return
	}
	if err := w.recorder.SaveDelivery(d); err != nil {
		w.log.Error("failed to record delivery", "id", d.ID, "error", err)
	}
}

// statusReason extracts the reason phrase, e.g. "Not Found" from "404 Not Found"
func statusReason(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}
