package database

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"vendor-service/pkg/logger"
)

// Session is a request-scoped unit of work
type Session interface {
	// DB returns the handle queries of this session must run on
	DB() *gorm.DB
	Commit() error
	Rollback() error
	// Close releases the session, rolling back if it was never finished
	Close() error
}

// Opener starts new sessions
type Opener interface {
	Open(ctx context.Context) (Session, error)
}

type sessionKey struct{}

// WithSession attaches s to ctx
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session attached to ctx, if any
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok && s != nil
}

// Conn returns the handle to query with: the request session when one is
// attached to ctx, otherwise fallback bound to ctx.
func Conn(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if s, ok := SessionFromContext(ctx); ok {
		if db := s.DB(); db != nil {
			return db.WithContext(ctx)
		}
	}
	return fallback.WithContext(ctx)
}

// Scope runs fn inside a new session. The session is committed when fn
// returns nil and rolled back when fn returns an error or panics. A failed
// commit is rolled back before its error is returned. The session is always
// closed.
func Scope(ctx context.Context, opener Opener, fn func(ctx context.Context) error) (err error) {
	s, err := opener.Open(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	log := logger.FromContext(ctx)
	defer func() {
		if cerr := s.Close(); cerr != nil {
			log.Warn("Failed to close database session", zap.Error(cerr))
		}
	}()

	defer func() {
		if p := recover(); p != nil {
			if rbErr := s.Rollback(); rbErr != nil {
				log.Error("Rollback after panic failed", zap.Error(rbErr))
			}
			panic(p)
		}
	}()

	if err = fn(WithSession(ctx, s)); err != nil {
		if rbErr := s.Rollback(); rbErr != nil {
			log.Error("Rollback failed", zap.Error(rbErr))
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err = s.Commit(); err != nil {
		if rbErr := s.Rollback(); rbErr != nil {
			log.Error("Rollback after failed commit failed", zap.Error(rbErr))
			return errors.Join(fmt.Errorf("commit: %w", err), fmt.Errorf("rollback: %w", rbErr))
		}
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// SessionMiddleware wraps every request in a session: the handler's queries
// share one transaction that commits when the handler succeeds. The response
// is held back until the commit, so a failed commit reaches the client as a
// 500 instead of the handler's success body.
func SessionMiddleware(opener Opener) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			w := res.Writer
			buf := newBufferedWriter(w)
			res.Writer = buf

			finished := false
			defer func() {
				res.Writer = w
				if !finished {
					// panicking: let Recover render the error on a clean response
					discardResponse(res)
				}
			}()

			var handlerErr error
			err := Scope(req.Context(), opener, func(ctx context.Context) error {
				c.SetRequest(req.WithContext(ctx))
				handlerErr = next(c)
				return handlerErr
			})
			finished = true
			res.Writer = w

			if err != nil && handlerErr == nil {
				logger.FromEcho(c).Error("Request session failed", zap.Error(err))
				discardResponse(res)
				return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
			}

			if ferr := buf.flush(); ferr != nil {
				logger.FromEcho(c).Warn("Failed to write response", zap.Error(ferr))
			}
			return err
		}
	}
}

// discardResponse forgets a buffered response so the error handler can write
// its own
func discardResponse(res *echo.Response) {
	res.Committed = false
	res.Status = http.StatusOK
	res.Size = 0
}

// bufferedWriter holds the status, headers and body of a response until flush
type bufferedWriter struct {
	w      http.ResponseWriter
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedWriter(w http.ResponseWriter) *bufferedWriter {
	return &bufferedWriter{w: w, header: w.Header().Clone()}
}

func (b *bufferedWriter) Header() http.Header {
	return b.header
}

func (b *bufferedWriter) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

// Flush is a no-op: nothing leaves the buffer before the session ends
func (b *bufferedWriter) Flush() {}

// flush copies the held response to the underlying writer
func (b *bufferedWriter) flush() error {
	if b.status == 0 {
		return nil
	}
	dst := b.w.Header()
	for k := range dst {
		if _, ok := b.header[k]; !ok {
			dst.Del(k)
		}
	}
	for k, v := range b.header {
		dst[k] = v
	}
	b.w.WriteHeader(b.status)
	_, err := b.w.Write(b.body.Bytes())
	return err
}

// GormOpener opens sessions as GORM transactions
type GormOpener struct {
	db *gorm.DB
}

// NewGormOpener creates an Opener backed by db
func NewGormOpener(db *gorm.DB) *GormOpener {
	return &GormOpener{db: db}
}

// Open begins a transaction bound to ctx
func (o *GormOpener) Open(ctx context.Context) (Session, error) {
	tx := o.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &gormSession{tx: tx}, nil
}

type gormSession struct {
	mu   sync.Mutex
	tx   *gorm.DB
	done bool
}

func (s *gormSession) DB() *gorm.DB {
	return s.tx
}

func (s *gormSession) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return gorm.ErrInvalidTransaction
	}
	// the driver finishes the transaction whether or not the commit succeeds
	s.done = true
	return s.tx.Commit().Error
}

func (s *gormSession) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done = true
	return s.tx.Rollback().Error
}

func (s *gormSession) Close() error {
	return s.Rollback()
}
