package utils

import (
	"io"
	"sync"
)

type flusher interface {
	Flush() error
}

// FlushingWriter serializes writes to a destination and flushes buffered destinations after every write,
// so log lines and report tables appear in the order they were produced.
type FlushingWriter struct {
	destination io.Writer
	mutex       sync.Mutex
}

// NewFlushingWriter wraps destination. Nil stays nil and an existing FlushingWriter is returned as is.
func NewFlushingWriter(destination io.Writer) io.Writer {
	if destination == nil {
		return nil
	}
	if existing, wrapped := destination.(*FlushingWriter); wrapped {
		return existing
	}
	return &FlushingWriter{destination: destination}
}

// Write forwards data and flushes the destination when it buffers output.
func (writer *FlushingWriter) Write(data []byte) (int, error) {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()

	written, writeError := writer.destination.Write(data)
	if writeError != nil {
		return written, writeError
	}
	return written, writer.flushLocked()
}

// Sync flushes the destination. It makes the writer a zapcore.WriteSyncer.
func (writer *FlushingWriter) Sync() error {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()
	return writer.flushLocked()
}

func (writer *FlushingWriter) flushLocked() error {
	if buffered, canFlush := writer.destination.(flusher); canFlush {
		return buffered.Flush()
	}
	return nil
}
