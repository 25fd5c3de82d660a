// Package recorder keeps an append-only capture of raw device samples and
// replays it as a Collector.
package recorder

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

// record layout: [8 bytes id][4 bytes len][len bytes JSON sample]
const headerLen = 12

var ErrRecorderClosed = errors.New("recorder closed")

type FileRecorder struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	writer    *bufio.Writer
	lastID    ports.RecordID
	records   uint64
	sizeBytes int64
	closed    bool
}

var _ ports.Recorder = (*FileRecorder)(nil)

// OpenFile opens or creates the capture at path. A torn record left by a
// crash is cut off so appends continue from the last complete one.
func OpenFile(path string) (*FileRecorder, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create capture dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}

	r := &FileRecorder{path: path, file: f}
	if err := r.recover(); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, fmt.Errorf("seek capture end: %w", err)
	}
	r.writer = bufio.NewWriterSize(f, 64<<10)
	return r, nil
}

func (r *FileRecorder) recover() error {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	var valid int64
	err := scan(bufio.NewReader(r.file), func(id ports.RecordID, body []byte) error {
		r.lastID = id
		r.records++
		valid += int64(headerLen + len(body))
		return nil
	})
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("scan capture: %w", err)
	}
	if err := r.file.Truncate(valid); err != nil {
		return fmt.Errorf("truncate torn record: %w", err)
	}
	r.sizeBytes = valid
	return nil
}

func (r *FileRecorder) Append(s *domain.Sample) (ports.RecordID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrRecorderClosed
	}

	body, err := json.Marshal(s)
	if err != nil {
		return 0, fmt.Errorf("marshal sample: %w", err)
	}

	id := r.lastID + 1
	var hdr [headerLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], uint64(id))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(body)))

	if _, err := r.writer.Write(hdr[:]); err != nil {
		return 0, fmt.Errorf("write record header: %w", err)
	}
	if _, err := r.writer.Write(body); err != nil {
		return 0, fmt.Errorf("write record body: %w", err)
	}

	r.lastID = id
	r.records++
	r.sizeBytes += int64(headerLen + len(body))
	return id, nil
}

// Iterate calls fn for every record with id >= from, in order.
func (r *FileRecorder) Iterate(from ports.RecordID, fn func(id ports.RecordID, s *domain.Sample) error) error {
	r.mu.Lock()
	if !r.closed {
		if err := r.writer.Flush(); err != nil {
			r.mu.Unlock()
			return fmt.Errorf("flush capture: %w", err)
		}
	}
	path := r.path
	r.mu.Unlock()

	return ReadFile(path, from, fn)
}

func (r *FileRecorder) Stats() ports.RecorderStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ports.RecorderStats{
		Records:   r.records,
		LatestID:  r.lastID,
		SizeBytes: r.sizeBytes,
		Path:      r.path,
	}
}

// Flush pushes buffered records to the file and syncs it.
func (r *FileRecorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRecorderClosed
	}
	if err := r.writer.Flush(); err != nil {
		return err
	}
	return r.file.Sync()
}

func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return errors.Join(r.writer.Flush(), r.file.Sync(), r.file.Close())
}

// ReadFile iterates a capture file without opening it for writing.
func ReadFile(path string, from ports.RecordID, fn func(id ports.RecordID, s *domain.Sample) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	err = scan(bufio.NewReader(f), func(id ports.RecordID, body []byte) error {
		if id < from {
			return nil
		}
		var s domain.Sample
		if err := json.Unmarshal(body, &s); err != nil {
			return fmt.Errorf("corrupt record %d: %w", id, err)
		}
		return fn(id, &s)
	})
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("capture truncated: %w", err)
	}
	return err
}

// scan walks records until EOF. A partial trailing record yields io.ErrUnexpectedEOF.
func scan(rd *bufio.Reader, fn func(id ports.RecordID, body []byte) error) error {
	for {
		var hdr [headerLen]byte
		if _, err := io.ReadFull(rd, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		id := ports.RecordID(binary.BigEndian.Uint64(hdr[0:8]))
		body := make([]byte, binary.BigEndian.Uint32(hdr[8:12]))
		if _, err := io.ReadFull(rd, body); err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		if err := fn(id, body); err != nil {
			return err
		}
	}
}
