// internal/controller/sessions.go
package controller

import (
	"net/http"
	"strings"
	"sync"

	"github.com/unclebandit/isp-broadcast/internal/service"
)

// OperatorHeader names the admin whose dispatch and history state a request acts on.
const OperatorHeader = "X-Operator-ID"

const defaultOperator = "default"

// Session is one operator's dispatch flow and history selection.
type Session struct {
	Dispatch *service.DispatchController
	History  *service.HistoryFeed
}

// Sessions hands each operator a private Session, created on first use.
type Sessions struct {
	NewDispatch func() *service.DispatchController
	NewHistory  func() *service.HistoryFeed

	mu         sync.Mutex
	byOperator map[string]*Session
}

func (s *Sessions) For(r *http.Request) *Session {
	return s.Get(operatorID(r))
}

func (s *Sessions) Get(operator string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.byOperator == nil {
		s.byOperator = map[string]*Session{}
	}
	if sess, ok := s.byOperator[operator]; ok {
		return sess
	}
	sess := &Session{Dispatch: s.NewDispatch(), History: s.NewHistory()}
	s.byOperator[operator] = sess
	return sess
}

func operatorID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(OperatorHeader)); id != "" {
		return id
	}
	return defaultOperator
}
