package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stipple/pkg/buildinfo"
	"github.com/matzehuels/stipple/pkg/cache"
	"github.com/matzehuels/stipple/pkg/errors"
	stippleio "github.com/matzehuels/stipple/pkg/io"
	"github.com/matzehuels/stipple/pkg/observability"
	"github.com/matzehuels/stipple/pkg/pipeline"
)

const (
	defaultAddr           = ":8080"
	defaultKeyPrefix      = "stipple:"
	defaultRequestTimeout = 2 * time.Minute
	shutdownTimeout       = 10 * time.Second

	// multipartMemory is how much of an upload is buffered in memory
	// before spilling to disk.
	multipartMemory = 8 << 20
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr    string
	redis   string
	prefix  string
	timeout time.Duration
	noCache bool
}

// serveCommand creates the HTTP server command.
func (c *CLI) serveCommand() *cobra.Command {
	so := serveOpts{
		addr:    defaultAddr,
		prefix:  defaultKeyPrefix,
		timeout: defaultRequestTimeout,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the stippling pipeline over HTTP",
		Long: `Serve exposes the pipeline as an HTTP API.

  GET  /healthz      liveness probe
  POST /v1/stipple   multipart form with an "image" file; options as query
                     parameters (points, iterations, gamma, invert, relax,
                     spp, seed, max_dim, dot_size, dot_color, background,
                     show_source, scale, refresh) and format=svg|png|json

Rendered artifacts are cached in Redis when --redis is set, otherwise in the
local cache directory.`,
		Example: `  stipple serve --addr :9000
  curl -F image=@cat.jpg 'localhost:9000/v1/stipple?points=6000&format=png' -o cat.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			cfg := c.serverConfig(cmd, so)

			ch, keyer, err := c.serverCache(ctx, cfg, so.noCache)
			if err != nil {
				return err
			}
			runner := pipeline.NewRunner(ch, keyer, logger)
			defer runner.Close()

			defaults := c.Config.Options()
			defaults.Logger = logger
			if err := defaults.ValidateAndSetDefaults(); err != nil {
				return fmt.Errorf("preset: %w", err)
			}

			srv := newServer(runner, defaults, logger, cfg.RequestTimeout)
			return srv.listenAndServe(ctx, cfg.Addr)
		},
	}

	cmd.Flags().StringVar(&so.addr, "addr", so.addr, "listen address")
	cmd.Flags().StringVar(&so.redis, "redis", "", "Redis address for the shared artifact cache")
	cmd.Flags().StringVar(&so.prefix, "key-prefix", so.prefix, "cache key prefix for Redis")
	cmd.Flags().DurationVar(&so.timeout, "timeout", so.timeout, "per-request processing limit")
	cmd.Flags().BoolVar(&so.noCache, "no-cache", false, "disable the artifact cache")

	return cmd
}

// serverConfig merges the preset [server] section with explicitly set flags.
func (c *CLI) serverConfig(cmd *cobra.Command, so serveOpts) ServerConfig {
	cfg := c.Config.Server
	changed := cmd.Flags().Changed

	if cfg.Addr == "" || changed("addr") {
		cfg.Addr = so.addr
	}
	if cfg.KeyPrefix == "" || changed("key-prefix") {
		cfg.KeyPrefix = so.prefix
	}
	if cfg.RequestTimeout == 0 || changed("timeout") {
		cfg.RequestTimeout = so.timeout
	}
	if changed("redis") {
		cfg.Redis.Addr = so.redis
	}
	return cfg
}

// serverCache opens Redis when configured and the local file cache otherwise.
func (c *CLI) serverCache(ctx context.Context, cfg ServerConfig, noCache bool) (cache.Cache, cache.Keyer, error) {
	if noCache || cfg.Redis.Addr == "" {
		ch, err := newCache(noCache || c.Config.Cache.Disabled, c.Config.Cache.Dir)
		return ch, nil, err
	}
	rc, err := cache.NewRedisCache(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	return rc, cache.NewScopedKeyer(cache.NewDefaultKeyer(), cfg.KeyPrefix), nil
}

// =============================================================================
// Server
// =============================================================================

// server serves the pipeline over HTTP.
type server struct {
	runner   *pipeline.Runner
	defaults pipeline.Options
	logger   *log.Logger
	timeout  time.Duration
}

func newServer(runner *pipeline.Runner, defaults pipeline.Options, logger *log.Logger, timeout time.Duration) *server {
	return &server{
		runner:   runner,
		defaults: defaults,
		logger:   logger,
		timeout:  timeout,
	}
}

// routes builds the router.
func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/stipple", s.handleStipple)
	})
	return r
}

// listenAndServe runs until ctx is cancelled, then shuts down gracefully.
func (s *server) listenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- hs.ListenAndServe()
	}()
	printSuccess("Listening on %s", StyleLink.Render(addr))
	printKeyValue("Version", buildinfo.Version)

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return ctx.Err()
}

// observe reports every request to the HTTP hooks.
func (s *server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.HTTP()
		start := time.Now()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, time.Since(start))
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *server) handleStipple(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, stippleio.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "expected a multipart form with an image"))
		return
	}
	defer r.MultipartForm.RemoveAll()
	file, _, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "missing form file %q", "image"))
		return
	}
	defer file.Close()

	opts, format, err := optionsFromQuery(r.URL.Query(), s.defaults)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	img, err := stippleio.Decode(file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	opts.Logger = s.logger.With("request", middleware.GetReqID(ctx))

	result, err := s.runner.Execute(ctx, img, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	cacheStatus := "miss"
	if result.CacheHit {
		cacheStatus = "hit"
	}
	h := w.Header()
	h.Set("Content-Type", contentType(format))
	h.Set("X-Run-ID", result.RunID.String())
	h.Set("X-Cache", cacheStatus)
	h.Set("X-Image-Size", fmt.Sprintf("%dx%d", result.Width, result.Height))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Artifacts[format])
}

// optionsFromQuery overlays query parameters on base and selects the single
// response format.
func optionsFromQuery(q url.Values, base pipeline.Options) (pipeline.Options, string, error) {
	o := base
	var err error
	parse := func(name string, fn func(string) error) {
		if err != nil || !q.Has(name) {
			return
		}
		if perr := fn(q.Get(name)); perr != nil {
			err = errors.Wrap(errors.ErrCodeInvalidParameter, perr, "query parameter %s", name)
		}
	}
	parseInt := func(dst *int) func(string) error {
		return func(v string) error {
			n, e := strconv.Atoi(v)
			*dst = n
			return e
		}
	}
	parseFloat := func(dst *float64) func(string) error {
		return func(v string) error {
			f, e := strconv.ParseFloat(v, 64)
			*dst = f
			return e
		}
	}
	// Zero would be read as "unset" and replaced by a default, so explicit
	// values of these parameters must be positive.
	positiveInt := func(dst *int) func(string) error {
		return func(v string) error {
			if e := parseInt(dst)(v); e != nil {
				return e
			}
			if *dst <= 0 {
				return fmt.Errorf("must be positive, got %d", *dst)
			}
			return nil
		}
	}
	positiveFloat := func(dst *float64) func(string) error {
		return func(v string) error {
			if e := parseFloat(dst)(v); e != nil {
				return e
			}
			if !(*dst > 0) {
				return fmt.Errorf("must be positive, got %v", *dst)
			}
			return nil
		}
	}
	parseBool := func(dst *bool) func(string) error {
		return func(v string) error {
			b, e := strconv.ParseBool(v)
			*dst = b
			return e
		}
	}
	setString := func(dst *string) func(string) error {
		return func(v string) error {
			*dst = v
			return nil
		}
	}

	parse("points", positiveInt(&o.Points))
	parse("iterations", parseInt(&o.Iterations))
	parse("gamma", positiveFloat(&o.Gamma))
	parse("invert", parseBool(&o.Invert))
	parse("relax", parseFloat(&o.Relax))
	parse("spp", positiveInt(&o.SamplesPerPoint))
	parse("seed", func(v string) error {
		n, e := strconv.ParseUint(v, 10, 64)
		o.Seed = n
		return e
	})
	parse("max_dim", positiveInt(&o.MaxDim))
	parse("dot_size", positiveFloat(&o.DotSize))
	parse("dot_color", setString(&o.DotColor))
	parse("background", setString(&o.Background))
	parse("show_source", parseBool(&o.ShowSource))
	parse("scale", positiveFloat(&o.Scale))
	parse("refresh", parseBool(&o.Refresh))
	if err != nil {
		return o, "", err
	}

	format := pipeline.FormatSVG
	if v := q.Get("format"); v != "" {
		format = strings.ToLower(v)
	}
	if err := pipeline.ValidateFormats([]string{format}); err != nil {
		return o, "", err
	}
	o.Formats = []string{format}
	return o, format, nil
}

// contentType returns the MIME type of an artifact format.
func contentType(format string) string {
	switch format {
	case pipeline.FormatSVG:
		return "image/svg+xml"
	case pipeline.FormatPNG:
		return "image/png"
	default:
		return "application/json"
	}
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case stderrors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrCodeUnsupported):
		return http.StatusUnsupportedMediaType
	}
	return http.StatusInternalServerError
}

// errorResponse is the JSON body of a failed request.
type errorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)
	}
	code := errors.GetCode(err)
	if code == "" && status == http.StatusGatewayTimeout {
		code = errors.ErrCodeTimeout
	}
	writeJSON(w, status, errorResponse{Error: errors.UserMessage(err), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
