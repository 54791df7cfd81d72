package audit

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/shopmate/sentinel/internal/security"
	"github.com/valyala/bytebufferpool"
)

// FileSink appends batches as JSON lines. The whole batch is serialized
// into a pooled buffer first so the file sees a single write per flush.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

func NewFileSink(path string) (*FileSink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	return &FileSink{file: file}, nil
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) WriteBatch(ctx context.Context, batch []*security.SecurityEvent) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	for _, event := range batch {
		line, err := json.Marshal(event)
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.file.Write(buf.Bytes())
	return err
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
