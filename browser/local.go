package browser

import (
	"context"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/webparser/config"
	"github.com/use-agent/webparser/models"
)

// LocalProvider launches a dedicated Chromium process per session.
type LocalProvider struct {
	cfg config.BrowserConfig
	bin string
}

// NewLocalProvider resolves the browser binary once. When none is configured
// or found on the system, rod downloads a pinned Chromium on first launch.
func NewLocalProvider(cfg config.BrowserConfig) *LocalProvider {
	bin := cfg.BrowserBin
	if bin == "" {
		if found, ok := launcher.LookPath(); ok {
			bin = found
		}
	}
	slog.Info("browser provider: local", "bin", bin, "headless", cfg.Headless)
	return &LocalProvider{cfg: cfg, bin: bin}
}

func (p *LocalProvider) Name() string { return "local" }

// Acquire launches Chromium, connects to it and opens one page.
func (p *LocalProvider) Acquire(ctx context.Context, opts SessionOptions) (Session, error) {
	l := p.newLauncher().Context(ctx)

	controlURL, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, models.NewPipelineError(
			models.ErrCodeRenderLaunchFailed, models.StageRender,
			"failed to launch browser", err,
		)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, models.NewPipelineError(
			models.ErrCodeRenderLaunchFailed, models.StageRender,
			"failed to connect to launched browser", err,
		)
	}

	sess, err := newRodSession(b, p.cfg, opts, func() {
		l.Kill()
		l.Cleanup()
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (p *LocalProvider) newLauncher() *launcher.Launcher {
	l := launcher.New().
		Headless(p.cfg.Headless).
		NoSandbox(p.cfg.NoSandbox)

	if p.bin != "" {
		l = l.Bin(p.bin)
	}
	if p.cfg.Proxy != "" {
		l = l.Proxy(p.cfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("no-first-run"))
	return l
}
