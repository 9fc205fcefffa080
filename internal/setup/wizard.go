// Package setup implements the interactive noticehook setup wizard.
package setup

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/Fullex26/noticehook/internal/config"
	"github.com/Fullex26/noticehook/pkg/models"
)

const DefaultEnvPath = "/etc/noticehook/env"

// URLEnvVar holds the webhook URL so that tokens embedded in it stay out of
// the config file.
const URLEnvVar = "NOTICEHOOK_WEBHOOK_URL"

// defaultConfigTemplate is written when no config file exists yet.
const defaultConfigTemplate = `# noticehook configuration
# https://github.com/Fullex26/noticehook

# ── Webhook forwarding ──
webhook:
  enabled: false
  request_method: "POST"
  webhookurl: ""
  delay: 0
  msgtypes: []

# ── HTTP intake ──
intake:
  enabled: true
  listen: "127.0.0.1:8787"
  dedup_window: 0

# ── Delivery log ──
store:
  path: "/var/lib/noticehook/deliveries.db"
  retention_days: 30
  prune_schedule: "@daily"

log:
  level: "info"
`

// Hooks into the outside world, replaced in tests.
var (
	runTestFn      = runTest
	startServiceFn = startService
	stdinIsTTY     = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
)

type answers struct {
	advanced bool
	url      string
	method   string
	delay    string
	msgTypes []string
	dedup    string
	retain   string
}

// Run is the entry point for the interactive setup wizard.
func Run(configPath, envPath string) error {
	return run(bufio.NewReader(os.Stdin), configPath, envPath)
}

func run(r *bufio.Reader, configPath, envPath string) error {
	fmt.Println()
	fmt.Println("🔔 noticehook Setup")
	fmt.Println("───────────────────")
	fmt.Println()

	if err := ensureConfig(configPath); err != nil {
		return err
	}

	// ── Mode ────────────────────────────────────────────────────
	fmt.Println("  Choose setup mode:")
	fmt.Println("    [1] Simple   — webhook URL and method only  (recommended)")
	fmt.Println("    [2] Advanced — delay, type filter, intake and retention")
	fmt.Println()
	fmt.Print("  Selection [1]: ")

	advanced := readLine(r) == "2"
	fmt.Println()

	// ── Webhook ──────────────────────────────────────────────────
	a, err := collectWebhook(r)
	if err != nil {
		return err
	}

	if advanced {
		if err := collectAdvanced(r, &a); err != nil {
			return err
		}
	}

	// ── Write env file ───────────────────────────────────────────
	if err := writeEnvFile(envPath, map[string]string{URLEnvVar: a.url}); err != nil {
		return fmt.Errorf("writing env file: %w", err)
	}
	// Set in current process so config.Load and the test subprocess see it.
	_ = os.Setenv(URLEnvVar, a.url)
	fmt.Printf("  ✅ Webhook URL saved to %s\n", envPath)

	// ── Update config ─────────────────────────────────────────────
	configData, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	updated := applyAnswers(string(configData), a)
	if err := os.WriteFile(configPath, []byte(updated), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if _, err := config.Load(configPath); err != nil {
		return fmt.Errorf("written config does not load: %w", err)
	}
	fmt.Printf("  ✅ Config updated: %s\n", configPath)
	fmt.Println()

	// ── Test notification ─────────────────────────────────────────
	fmt.Print("  Send a test notification? [Y/n]: ")
	if readBool(r, true) {
		fmt.Print("  Sending... ")
		if err := runTestFn(configPath); err != nil {
			fmt.Printf("\n  ⚠️  Test failed: %v\n", err)
			fmt.Println("  Check the URL, then retry: sudo noticehook test")
		} else {
			fmt.Println("✅")
		}
	}
	fmt.Println()

	// ── Start service ─────────────────────────────────────────────
	fmt.Print("  Enable and start noticehook service? [Y/n]: ")
	if readBool(r, true) {
		if err := startServiceFn(); err != nil {
			fmt.Printf("  ⚠️  %v\n", err)
			fmt.Println("  Start manually: sudo systemctl enable --now noticehook")
		} else {
			fmt.Println("  ✅ Service enabled and started!")
		}
	}

	fmt.Println()
	fmt.Println("✅ Setup complete!")
	fmt.Println("   Run 'sudo noticehook status' to see recent deliveries.")
	fmt.Println()
	return nil
}

// ensureConfig creates the config file from the default template if absent.
func ensureConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0600); err != nil {
		return fmt.Errorf("creating default config: %w", err)
	}
	fmt.Printf("  Created default config: %s\n\n", path)
	return nil
}

func collectWebhook(r *bufio.Reader) (answers, error) {
	a := answers{}

	fmt.Println("  Webhook")
	fmt.Println("  ──────────────────────────────────────────────────────────")
	fmt.Println("  Every notice is sent as device=WebHookMsg, title, desp.")
	fmt.Println()

	u, err := readMasked(r, "  URL: ")
	if err != nil {
		return a, err
	}
	a.url = strings.TrimSpace(u)
	if a.url == "" {
		return a, fmt.Errorf("webhook url is required")
	}

	fmt.Print("  Request method [POST/get]: ")
	switch strings.ToUpper(strings.TrimSpace(readLine(r))) {
	case "GET":
		a.method = "GET"
	default:
		a.method = "POST"
	}

	fmt.Println()
	return a, nil
}

// collectAdvanced prompts for optional advanced configuration options.
func collectAdvanced(r *bufio.Reader, a *answers) error {
	a.advanced = true
	fmt.Println("  ── Advanced Settings ──────────────────────────────────────")
	fmt.Println("  (Press Enter to keep the value already in the config)")
	fmt.Println()

	fmt.Print("  Delay before each send, seconds: ")
	if v := strings.TrimSpace(readLine(r)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err != nil || f < 0 {
			return fmt.Errorf("invalid delay %q", v)
		}
		a.delay = v
	}

	fmt.Println("  Notice types to forward (comma separated, empty for all):")
	for _, t := range models.NotificationTypes() {
		fmt.Printf("    %-16s %s\n", t, t.Label())
	}
	fmt.Print("  Types: ")
	types, err := parseMsgTypes(readLine(r))
	if err != nil {
		return err
	}
	a.msgTypes = types

	fmt.Print("  Intake duplicate window, seconds (0 is off): ")
	if v := strings.TrimSpace(readLine(r)); v != "" {
		if n, err := strconv.Atoi(v); err != nil || n < 0 {
			return fmt.Errorf("invalid dedup window %q", v)
		}
		a.dedup = v
	}

	fmt.Print("  Keep delivery log for days: ")
	if v := strings.TrimSpace(readLine(r)); v != "" {
		if n, err := strconv.Atoi(v); err != nil || n < 1 {
			return fmt.Errorf("invalid retention %q", v)
		}
		a.retain = v
	}

	fmt.Println()
	return nil
}

// parseMsgTypes splits a comma separated list of type names and rejects
// names that are not notification types.
func parseMsgTypes(line string) ([]string, error) {
	var out []string
	for _, f := range strings.Split(line, ",") {
		name := strings.TrimSpace(f)
		if name == "" {
			continue
		}
		if !models.NotificationType(name).Valid() {
			return nil, fmt.Errorf("unknown notice type %q", name)
		}
		out = append(out, name)
	}
	return out, nil
}

// applyAnswers updates the config YAML with the wizard's answers. Keys are
// replaced whatever their current value, so re-running setup takes effect.
// Optional answers left empty keep the value already in the file.
func applyAnswers(cfg string, a answers) string {
	cfg = setKey(cfg, "webhook", "enabled", "true")
	// Env-var placeholder so config.Load expands it at runtime.
	cfg = setKey(cfg, "webhook", "webhookurl", `"${`+URLEnvVar+`}"`)
	cfg = setKey(cfg, "webhook", "request_method", strconv.Quote(a.method))

	if a.delay != "" {
		cfg = setKey(cfg, "webhook", "delay", a.delay)
	}
	if a.advanced {
		quoted := make([]string, len(a.msgTypes))
		for i, t := range a.msgTypes {
			quoted[i] = strconv.Quote(t)
		}
		cfg = setKey(cfg, "webhook", "msgtypes", "["+strings.Join(quoted, ", ")+"]")
	}
	if a.dedup != "" {
		cfg = setKey(cfg, "intake", "dedup_window", a.dedup)
	}
	if a.retain != "" {
		cfg = setKey(cfg, "store", "retention_days", a.retain)
	}
	return cfg
}

// setKey sets "  key: value" inside the top-level YAML section that begins
// with "{section}:\n" at the start of a line. An existing key line is
// replaced up to the end of the line; a missing key is added right under the
// section header. cfg is returned unchanged when the section is absent.
func setKey(cfg, section, key, value string) string {
	start, end, ok := sectionBounds(cfg, section)
	if !ok {
		return cfg
	}
	line := "  " + key + ": " + value

	block := cfg[start:end]
	prefix := "  " + key + ":"
	pos := 0
	for pos < len(block) {
		nl := strings.IndexByte(block[pos:], '\n')
		lineEnd := len(block)
		if nl != -1 {
			lineEnd = pos + nl
		}
		cur := block[pos:lineEnd]
		if cur == prefix || strings.HasPrefix(cur, prefix+" ") {
			return cfg[:start+pos] + line + cfg[start+lineEnd:]
		}
		if nl == -1 {
			break
		}
		pos = lineEnd + 1
	}
	return cfg[:start] + line + "\n" + cfg[start:]
}

// sectionBounds returns the byte range of the body of a top-level section:
// from just after "{section}:\n" to the first non-empty line that is not
// indented.
func sectionBounds(cfg, section string) (start, end int, ok bool) {
	marker := section + ":\n"
	idx := -1
	for from := 0; from < len(cfg); {
		i := strings.Index(cfg[from:], marker)
		if i == -1 {
			break
		}
		i += from
		if i == 0 || cfg[i-1] == '\n' {
			idx = i
			break
		}
		from = i + len(marker)
	}
	if idx == -1 {
		return 0, 0, false
	}

	start = idx + len(marker)
	end = len(cfg)
	for pos := start; pos < len(cfg); {
		nl := strings.IndexByte(cfg[pos:], '\n')
		if nl == -1 {
			break
		}
		line := cfg[pos : pos+nl]
		if len(line) > 0 && !strings.HasPrefix(line, "  ") {
			end = pos
			break
		}
		pos += nl + 1
	}
	return start, end, true
}

// writeEnvFile writes KEY=value pairs to path (one per line, mode 0600).
func writeEnvFile(path string, vars map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	var sb strings.Builder
	for k, v := range vars {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(v)
		sb.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(sb.String()), 0600)
}

// runTest invokes the current binary's "test" subcommand. The child inherits
// the parent's environment, including the URL set by os.Setenv above.
func runTest(configPath string) error {
	self, err := os.Executable()
	if err != nil {
		self = "noticehook"
	}
	cmd := exec.Command(self, "--config", configPath, "test")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// startService enables and starts the noticehook systemd service.
func startService() error {
	out, err := exec.Command("systemctl", "enable", "--now", "noticehook").CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl: %s", strings.TrimSpace(string(out)))
	}
	return nil
}

// readLine reads one line from r, stripping the trailing newline.
func readLine(r *bufio.Reader) string {
	line, _ := r.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

// readMasked reads a secret without echoing characters when stdin is a TTY.
// Falls back to plain line reading for non-interactive contexts (pipes, CI).
func readMasked(r *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	if stdinIsTTY() {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return string(b), nil
	}
	return readLine(r), nil
}

// readBool parses a y/n response; returns defaultVal on empty input.
func readBool(r *bufio.Reader, defaultVal bool) bool {
	line := strings.ToLower(strings.TrimSpace(readLine(r)))
	if line == "" {
		return defaultVal
	}
	return line == "y" || line == "yes"
}
