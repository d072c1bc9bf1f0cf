package log

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// TimeTicker fires once at each rotation boundary.
type TimeTicker struct {
	stop chan struct{}
	C    <-chan time.Time
}

// NewTimeTicker creates a TimeTicker that notifies based on rotateHours parameter.
// if rotateHours is 1 and current time is 11:32 it means that the ticker will tick at 12:00
// if rotateHours is 2 and current time is 09:12 means that the ticker will tick at 11:00
// specially, if rotateHours is 0, then no rotation
func NewTimeTicker(rotateHours uint) *TimeTicker {
	ch := make(chan time.Time)
	tt := TimeTicker{
		stop: make(chan struct{}, 1),
		C:    ch,
	}
	if rotateHours > 0 {
		tt.startTicker(ch, rotateHours)
	}
	return &tt
}

// Stop terminates the ticker goroutine.
func (tt *TimeTicker) Stop() {
	select {
	case tt.stop <- struct{}{}:
	default:
	}
}

func (tt *TimeTicker) startTicker(ch chan time.Time, rotateHours uint) {
	go func() {
		next := getNextRotationHour(timeNow(), rotateHours)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case t := <-ticker.C:
				if t.Hour() != next {
					continue
				}
				select {
				case ch <- t:
				case <-tt.stop:
					return
				}
				next = getNextRotationHour(timeNow(), rotateHours)
			case <-tt.stop:
				return
			}
		}
	}()
}

func getNextRotationHour(now time.Time, delta uint) int {
	return now.Add(time.Hour * time.Duration(delta)).Hour()
}

// AsyncFileWriter decouples log producers from disk latency. Records are
// queued on a bounded channel and written by a single goroutine to a
// lumberjack file that rotates by size and, optionally, every rotateHours.
// Records arriving while the queue is full are dropped.
type AsyncFileWriter struct {
	out *lumberjack.Logger

	wg         sync.WaitGroup
	started    int32
	dropped    atomic.Int64
	buf        chan []byte
	stop       chan struct{}
	timeTicker *TimeTicker
}

// NewAsyncFileWriter returns a writer for filePath buffering up to queueLen
// records. maxSizeMB bounds each file before size rotation; zero uses the
// lumberjack default.
func NewAsyncFileWriter(filePath string, queueLen int, maxSizeMB int, rotateHours uint) *AsyncFileWriter {
	absFilePath, err := filepath.Abs(filePath)
	if err != nil {
		panic(fmt.Sprintf("get file path of logger error. filePath=%s, err=%s", filePath, err))
	}
	return &AsyncFileWriter{
		out: &lumberjack.Logger{
			Filename: absFilePath,
			MaxSize:  maxSizeMB,
		},
		buf:        make(chan []byte, queueLen),
		stop:       make(chan struct{}),
		timeTicker: NewTimeTicker(rotateHours),
	}
}

// Start launches the writer goroutine.
func (w *AsyncFileWriter) Start() error {
	if !atomic.CompareAndSwapInt32(&w.started, 0, 1) {
		return errors.New("logger has already been started")
	}
	w.wg.Add(1)
	go func() {
		defer func() {
			w.flushBuffer()
			if err := w.out.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "close log file error. err=%s\n", err)
			}
			atomic.StoreInt32(&w.started, 0)
			w.wg.Done()
		}()
		for {
			select {
			case msg := <-w.buf:
				w.syncWrite(msg)
			case <-w.timeTicker.C:
				if err := w.out.Rotate(); err != nil {
					fmt.Fprintf(os.Stderr, "rotate log file error. err=%s\n", err)
				}
			case <-w.stop:
				return
			}
		}
	}()
	return nil
}

func (w *AsyncFileWriter) flushBuffer() {
	for {
		select {
		case msg := <-w.buf:
			w.syncWrite(msg)
		default:
			return
		}
	}
}

func (w *AsyncFileWriter) syncWrite(msg []byte) {
	if _, err := w.out.Write(msg); err != nil {
		fmt.Fprintf(os.Stderr, "write log file error. err=%s\n", err)
	}
}

// Stop drains the queue, closes the file and waits for the writer goroutine.
func (w *AsyncFileWriter) Stop() {
	if atomic.LoadInt32(&w.started) == 0 {
		return
	}
	w.stop <- struct{}{}
	w.wg.Wait()
	w.timeTicker.Stop()
}

// Write queues msg. It never blocks.
func (w *AsyncFileWriter) Write(msg []byte) (n int, err error) {
	// Handlers reuse their buffers, so the record must be copied.
	buf := make([]byte, len(msg))
	copy(buf, msg)

	select {
	case w.buf <- buf:
	default:
		w.dropped.Add(1)
	}
	return len(msg), nil
}

// Dropped returns the number of records discarded because the queue was full.
func (w *AsyncFileWriter) Dropped() int64 {
	return w.dropped.Load()
}
