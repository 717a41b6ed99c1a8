package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMaxBytes rotates journal files at 64 MiB.
const DefaultMaxBytes = 64 << 20

// Journal is an append-only JSON-lines audit log with size-based
// rotation. One record per line; records are never rewritten.
type Journal struct {
	mu       sync.Mutex
	dir      string
	prefix   string
	maxBytes int64
	file     *os.File
	size     int64
	logger   *logrus.Entry
	now      func() time.Time
}

// Open creates the journal directory if needed and starts a new segment.
func Open(dir, prefix string, maxBytes int64) (*Journal, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory %s: %w", dir, err)
	}

	j := &Journal{
		dir:      dir,
		prefix:   prefix,
		maxBytes: maxBytes,
		logger:   logrus.WithField("component", "journal"),
		now:      time.Now,
	}
	if err := j.rotate(); err != nil {
		return nil, err
	}
	return j, nil
}

// Append writes one record as a JSON line, rotating first if the segment
// would exceed its size limit.
func (j *Journal) Append(record interface{}) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal journal record: %w", err)
	}
	line := append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.size+int64(len(line)) > j.maxBytes {
		if err := j.rotateLocked(); err != nil {
			return err
		}
	}

	n, err := j.file.Write(line)
	j.size += int64(n)
	if err != nil {
		return fmt.Errorf("failed to append journal record: %w", err)
	}
	return nil
}

// Close flushes and closes the current segment.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

func (j *Journal) rotate() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rotateLocked()
}

func (j *Journal) rotateLocked() error {
	if j.file != nil {
		if err := j.file.Close(); err != nil {
			j.logger.WithError(err).Warn("failed to close journal segment")
		}
	}

	name := fmt.Sprintf("%s-%s.jsonl", j.prefix, j.now().UTC().Format("20060102-150405.000000000"))
	path := filepath.Join(j.dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journal segment %s: %w", path, err)
	}

	j.file = file
	j.size = 0
	j.logger.WithField("segment", name).Info("journal segment opened")
	return nil
}
