// Package app wires configuration, logging, telemetry and the request
// dispatcher together and runs the selected mode.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dmitrijs2005/xcauth/internal/buildinfo"
	"github.com/dmitrijs2005/xcauth/internal/cloud"
	"github.com/dmitrijs2005/xcauth/internal/config"
	"github.com/dmitrijs2005/xcauth/internal/extauth"
	"github.com/dmitrijs2005/xcauth/internal/logging"
	"github.com/dmitrijs2005/xcauth/internal/observe"
	"github.com/dmitrijs2005/xcauth/internal/protocol"
	"github.com/dmitrijs2005/xcauth/internal/token"
	"github.com/google/uuid"
)

const (
	MetricsFileName = "metrics.json"
	TracesFileName  = "traces.json"
)

// redirectStderr is a test seam; tests must not lose their own stderr.
var redirectStderr = (*logging.Files).RedirectStderr

// now is a test seam for token issuing.
var now = time.Now

type App struct {
	config     *config.Config
	logger     logging.Logger
	stdin      io.Reader
	stdout     io.Writer
	files      *logging.Files
	exports    []io.Closer
	obs        *observe.Observer
	dispatcher *extauth.Dispatcher
}

// NewApp builds an App for cfg. cfg must already be validated.
// In serve mode the log files are opened in cfg.LogDir and stderr is
// redirected there; one-shot modes log to stdout.
func NewApp(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout io.Writer) (*App, error) {
	app := &App{config: cfg, stdin: stdin, stdout: stdout}

	if cfg.Mode() == config.ModeServe {
		files, err := logging.OpenFiles(cfg.LogDir)
		if err != nil {
			return nil, err
		}
		app.files = files
		if err := redirectStderr(files); err != nil {
			app.closeFiles()
			return nil, fmt.Errorf("redirect stderr: %w", err)
		}
		app.logger = logging.NewTextLogger(files.Log, cfg.Debug).With("session", uuid.NewString())
	} else {
		app.logger = logging.NewTextLogger(stdout, true)
	}

	obs, err := app.newObserver(ctx)
	if err != nil {
		app.closeFiles()
		return nil, err
	}
	app.obs = obs

	secret := []byte(cfg.Secret)
	verifier := token.NewVerifier(secret, token.WithLogger(app.logger), token.WithObserver(obs))
	client := cloud.NewClient(cfg.URL, secret,
		cloud.WithTimeout(cfg.Timeout),
		cloud.WithLogger(app.logger),
		cloud.WithObserver(obs),
	)
	app.dispatcher = extauth.NewDispatcher(verifier, client, app.logger, extauth.WithObserver(obs))

	return app, nil
}

func (app *App) newObserver(ctx context.Context) (*observe.Observer, error) {
	if !app.config.Metrics && !app.config.Traces {
		return observe.Nop(), nil
	}

	oc := observe.Config{ServiceName: "xcauth", Version: buildinfo.Version}
	if app.config.Metrics {
		f, err := app.openExport(MetricsFileName)
		if err != nil {
			return nil, err
		}
		oc.Metrics = f
	}
	if app.config.Traces {
		f, err := app.openExport(TracesFileName)
		if err != nil {
			return nil, err
		}
		oc.Traces = f
	}

	obs, err := observe.New(ctx, oc)
	if err != nil {
		return nil, fmt.Errorf("telemetry init error: %w", err)
	}
	return obs, nil
}

func (app *App) openExport(name string) (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(app.config.LogDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	app.exports = append(app.exports, f)
	return f, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) (stop func()) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			// A repeated signal gets the default action.
			signal.Stop(sigs)
			cancelFunc()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// Run executes the configured mode.
func (app *App) Run(ctx context.Context) error {
	switch app.config.Mode() {
	case config.ModeAuthTest:
		return app.runAuthTest(ctx)
	case config.ModeIsUserTest:
		args := app.config.IsUserTest
		return app.printResult(app.dispatcher.IsUser(ctx, args[0], args[1]))
	case config.ModeIssueToken:
		return app.runIssueToken()
	case config.ModeServe:
		return app.serve(ctx)
	default:
		return errors.New("no mode selected")
	}
}

func (app *App) runAuthTest(ctx context.Context) error {
	args := app.config.AuthTest
	password := args[2]
	if password == "-" {
		pw, err := GetPassword(app.stdout)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = string(pw)
		wipe(pw)
	}
	return app.printResult(app.dispatcher.Auth(ctx, args[0], args[1], password))
}

func (app *App) runIssueToken() error {
	args := app.config.IssueToken
	jid := token.JID(args[0], args[1])
	tok := token.Issue([]byte(app.config.Secret), jid, 0, now().Add(app.config.TokenTTL))
	_, err := fmt.Fprintln(app.stdout, tok)
	return err
}

func (app *App) printResult(ok bool) error {
	s := "False"
	if ok {
		s = "True"
	}
	_, err := fmt.Fprintln(app.stdout, s)
	return err
}

func (app *App) serve(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	stop := app.initSignalHandler(cancelFunc)
	defer stop()

	logger := app.logger
	logger.Info(ctx, fmt.Sprintf("Start external auth script %s for %s with endpoint %s",
		buildinfo.Version, app.config.ServerType, app.config.URL))

	serverType, err := protocol.ParseServerType(app.config.ServerType)
	if err != nil {
		return err
	}
	a, err := protocol.New(serverType, app.stdin, app.stdout, logger)
	if err != nil {
		return err
	}

	// Serve blocks in Read while the XMPP server keeps stdin open and idle,
	// so cancellation is observed here rather than inside the loop.
	errc := make(chan error, 1)
	go func() { errc <- app.dispatcher.Serve(ctx, a) }()

	select {
	case err = <-errc:
	case <-ctx.Done():
		if c, ok := app.stdin.(io.Closer); ok {
			_ = c.Close()
		}
		logger.Info(ctx, "session cancelled", "reason", ctx.Err().Error())
	}

	if err != nil {
		logger.Error(ctx, "session ended", "error", err.Error())
	}
	logger.Info(ctx, "Shutting down...")
	return err
}

// Close flushes telemetry and closes the files opened by NewApp.
func (app *App) Close(ctx context.Context) error {
	var errs []error
	if app.obs != nil {
		errs = append(errs, app.obs.Shutdown(ctx))
	}
	for _, c := range app.exports {
		errs = append(errs, c.Close())
	}
	app.exports = nil
	errs = append(errs, app.closeFiles())
	return errors.Join(errs...)
}

func (app *App) closeFiles() error {
	for _, c := range app.exports {
		_ = c.Close()
	}
	app.exports = nil
	if app.files == nil {
		return nil
	}
	err := app.files.Close()
	app.files = nil
	return err
}
