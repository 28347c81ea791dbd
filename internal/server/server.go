// Package server exposes layout sessions over HTTP. A client posts an Edit
// packet with a description and then steps, converges or resamples the
// session it gets back. Replies are shapes or error packets.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/san-kum/layoutopt/internal/constraint"
	"github.com/san-kum/layoutopt/internal/layout"
)

var (
	errBusy       = errors.New("server: session is busy")
	errNotFound   = errors.New("server: no such session")
	errTooMany    = errors.New("server: too many sessions")
	errBadRequest = errors.New("server: bad request")
)

const maxBody = 4 << 20

type Options struct {
	Layout      layout.Options
	MaxSessions int
	Seed        int64
	Logger      *log.Logger
}

// session owns one State. mu is only ever TryLocked, so a second request
// against a session that is still stepping fails fast instead of queueing.
type session struct {
	mu  sync.Mutex
	st  *layout.State
	rng *rand.Rand
}

type Server struct {
	opts   Options
	logger *log.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 256
	}
	return &Server{
		opts:     opts,
		logger:   opts.Logger.WithPrefix("server"),
		sessions: make(map[string]*session),
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/constraints", s.handleConstraints)
	r.Route("/states", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleEdit)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Post("/step", s.handleStep)
			r.Post("/converge", s.handleConverge)
			r.Post("/resample", s.handleResample)
			r.Get("/description", s.handleDescription)
		})
	})
	return r
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		l := s.logger.With("req", middleware.GetReqID(r.Context()))
		ctx := layout.WithLogger(r.Context(), l)

		next.ServeHTTP(ww, r.WithContext(ctx))

		l.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "took", time.Since(start))
	})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	program, err := editProgram(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	desc, err := layout.Decode(bytes.NewReader(program), layout.FormatJSON)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := layout.New(desc, s.opts.Layout)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sess, err := s.add(st)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	layout.LoggerFrom(r.Context()).Info("session created", "id", st.ID,
		"shapes", len(st.Shapes), "terms", len(st.Terms), "varying", len(st.Varying))

	if v, _ := strconv.ParseBool(r.URL.Query().Get("converge")); v {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		_, err := layout.StepUntilConvergence(r.Context(), sess.st)
		s.reply(w, r, http.StatusCreated, sess.st, err)
		return
	}
	s.reply(w, r, http.StatusCreated, st, nil)
}

// editProgram accepts either an Edit packet or a bare description.
func editProgram(body []byte) (json.RawMessage, error) {
	var probe struct {
		Tag      string          `json:"tag"`
		Contents json.RawMessage `json:"contents"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, &layout.StateDecodeError{Message: "json", Cause: err}
	}
	if probe.Tag == "" {
		return body, nil
	}
	if probe.Tag != "Edit" {
		return nil, fmt.Errorf("%w: unknown packet tag %q", errBadRequest, probe.Tag)
	}
	var edit EditRequest
	if err := json.Unmarshal(probe.Contents, &edit); err != nil || len(edit.Program) == 0 {
		return nil, fmt.Errorf("%w: Edit packet without a program", errBadRequest)
	}
	return edit.Program, nil
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) (int, error) {
		return http.StatusOK, nil
	})
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) (int, error) {
		_, err := layout.StepState(r.Context(), sess.st)
		return http.StatusOK, err
	})
}

func (s *Server) handleConverge(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) (int, error) {
		_, err := layout.StepUntilConvergence(r.Context(), sess.st)
		return http.StatusOK, err
	})
}

// handleResample replaces the session state with a fresh random start. The
// session keeps its ID. An explicit ?seed= makes the draw reproducible.
func (s *Server) handleResample(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) (int, error) {
		rng := sess.rng
		if q := r.URL.Query().Get("seed"); q != "" {
			seed, err := strconv.ParseInt(q, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: seed %q", errBadRequest, q)
			}
			rng = rand.New(rand.NewSource(seed))
		}
		fresh, err := layout.Resample(sess.st, rng)
		if err != nil {
			return 0, err
		}
		fresh.ID = sess.st.ID
		sess.st = fresh
		return http.StatusOK, nil
	})
}

func (s *Server) handleDescription(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lock(w, r)
	if !ok {
		return
	}
	defer sess.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if err := sess.st.Describe().Encode(w, layout.FormatJSON); err != nil {
		s.logger.Error("encode description", "err", err)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		s.fail(w, r, errNotFound)
		return
	}
	layout.LoggerFrom(r.Context()).Info("session deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

type sessionInfo struct {
	ID       string        `json:"id"`
	Status   layout.Status `json:"status"`
	Energy   float64       `json:"energy"`
	GradNorm float64       `json:"gradNorm"`
	Steps    int           `json:"steps"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make([]sessionInfo, 0, len(s.sessions))
	for id, sess := range s.sessions {
		info := sessionInfo{ID: id}
		// Busy sessions are listed without figures.
		if sess.mu.TryLock() {
			info.Status = sess.st.Status
			info.Energy = sess.st.Energy
			info.GradNorm = sess.st.GradNorm
			info.Steps = sess.st.Steps
			sess.mu.Unlock()
		}
		out = append(out, info)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

type termInfo struct {
	Name      string     `json:"name"`
	Kind      string     `json:"kind"`
	Doc       string     `json:"doc,omitempty"`
	Accepts   [][]string `json:"accepts"`
	MaxParams int        `json:"maxParams"`
}

func (s *Server) handleConstraints(w http.ResponseWriter, r *http.Request) {
	entries := constraint.List()
	out := make([]termInfo, len(entries))
	for i, e := range entries {
		accepts := make([][]string, len(e.Accepts))
		for j, ks := range e.Accepts {
			for _, k := range ks {
				accepts[j] = append(accepts[j], string(k))
			}
		}
		out[i] = termInfo{Name: e.Name, Kind: e.Kind.String(), Doc: e.Doc, Accepts: accepts, MaxParams: e.MaxParams}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) add(st *layout.State) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) >= s.opts.MaxSessions {
		return nil, fmt.Errorf("%w: limit is %d", errTooMany, s.opts.MaxSessions)
	}
	sess := &session{
		st:  st,
		rng: rand.New(rand.NewSource(s.opts.Seed + int64(len(s.sessions)))),
	}
	s.sessions[st.ID] = sess
	return sess, nil
}

// lock finds the session named in the URL and claims it. On failure the
// error reply has already been written.
func (s *Server) lock(w http.ResponseWriter, r *http.Request) (*session, bool) {
	id := chi.URLParam(r, "id")
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		s.fail(w, r, fmt.Errorf("%w: %s", errNotFound, id))
		return nil, false
	}
	if !sess.mu.TryLock() {
		s.fail(w, r, fmt.Errorf("%w: %s", errBusy, id))
		return nil, false
	}
	return sess, true
}

// withSession runs fn on a claimed session and replies with its state. A
// did-not-converge warning still yields a shapes packet.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*session) (int, error)) {
	sess, ok := s.lock(w, r)
	if !ok {
		return
	}
	defer sess.mu.Unlock()

	code, err := fn(sess)
	s.reply(w, r, code, sess.st, err)
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request, code int, st *layout.State, err error) {
	switch {
	case err == nil:
		writeJSON(w, code, shapesPacket(st.Snapshot(), nil))
	case layout.IsWarning(err):
		writeJSON(w, code, shapesPacket(st.Snapshot(), err))
	default:
		s.fail(w, r, err)
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	tag := errorTag(err)
	code := statusFor(tag)
	l := layout.LoggerFrom(r.Context())
	if code >= http.StatusInternalServerError {
		l.Error("request failed", "tag", tag, "err", err)
	} else {
		l.Debug("request rejected", "tag", tag, "err", err)
	}
	writeJSON(w, code, errorPacket(tag, err))
}

func statusFor(tag string) int {
	switch tag {
	case TagStateDecode, TagUnknownTerm, TagUnsupportedPair, TagShapeField, TagArity, TagBadRequest:
		return http.StatusBadRequest
	case TagNumericDivergence:
		return http.StatusUnprocessableEntity
	case TagNotFound:
		return http.StatusNotFound
	case TagBusy:
		return http.StatusConflict
	case TagTooManySessions:
		return http.StatusServiceUnavailable
	case TagCanceled:
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
