package metrics

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

type Logger interface {
	Log(info *MetricsInfo)
}

type StdoutLogger struct{}

func NewStdoutLogger() *StdoutLogger {
	return &StdoutLogger{}
}

func (l *StdoutLogger) Log(info *MetricsInfo) {
	infoStr, err := info.ToJSON()
	if err != nil {
		log.Printf("StdoutLogger: error: %v", err)
		return
	}
	log.Print(infoStr)
}

const defaultQueueSize = 2000
const defaultLogWriters = 2
const defaultMaxLogFileSize = 1024 * 1024 * 1024
const defaultMaxLogFiles = 10

// FileLogger writes request metrics as JSON lines into files under
// LogDir. Writes are queued so request handlers never block on disk;
// a full queue drops metrics rather than stalling the server. Each
// writer owns one file named metrics<idx> and rotates it to a
// numbered archive once it grows past MaxLogFileSize, pruning the
// oldest archives beyond MaxLogFiles.
type FileLogger struct {
	queue          chan *MetricsInfo
	LogDir         string
	MaxLogFileSize int64
	MaxLogFiles    int
	Verbose        bool
}

func NewFileLogger(logDir string, maxLogFileSize int64, maxLogFiles int, verbose bool) *FileLogger {
	if maxLogFileSize <= 0 {
		maxLogFileSize = defaultMaxLogFileSize
	}
	if maxLogFiles <= 0 {
		maxLogFiles = defaultMaxLogFiles
	}
	logger := &FileLogger{
		queue:          make(chan *MetricsInfo, defaultQueueSize),
		LogDir:         logDir,
		MaxLogFileSize: maxLogFileSize,
		MaxLogFiles:    maxLogFiles,
		Verbose:        verbose,
	}

	for i := 0; i < defaultLogWriters; i++ {
		go logger.runWriter(i)
	}
	return logger
}

func (l *FileLogger) Log(info *MetricsInfo) {
	select {
	case l.queue <- info:
	default:
		log.Printf("FileLogger: metrics queue full, dropping entry")
	}
}

func (l *FileLogger) logPath(idx int) string {
	return path.Join(l.LogDir, fmt.Sprintf("metrics%d", idx))
}

func (l *FileLogger) openLogFile(idx int) (*os.File, error) {
	return os.OpenFile(l.logPath(idx), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

func (l *FileLogger) runWriter(idx int) {
	f, err := l.openLogFile(idx)
	if err != nil {
		log.Printf("FileLogger%d: log open error: %v", idx, err)
	}

	var written int64
	if f != nil {
		if st, err := f.Stat(); err == nil {
			written = st.Size()
		}
	}

	seq := 0
	for info := range l.queue {
		infoStr, err := info.ToJSON()
		if err != nil {
			log.Printf("FileLogger%d: info.ToJSON() error: %v", idx, err)
			continue
		}

		if f != nil && written >= l.MaxLogFileSize {
			f.Close()
			seq++
			if err := l.rotate(idx, seq); err != nil {
				log.Printf("FileLogger%d: log rotation error: %v", idx, err)
			}
			f, err = l.openLogFile(idx)
			if err != nil {
				log.Printf("FileLogger%d: log open error: %v", idx, err)
			}
			written = 0
		}
		if f == nil {
			continue
		}

		n, err := f.WriteString(infoStr)
		if err != nil {
			log.Printf("FileLogger%d: write error: %v", idx, err)
			continue
		}
		written += int64(n)
		f.Sync()
	}
}

// rotate archives the current file as metrics<idx>.<seq> and removes
// the oldest archives once more than MaxLogFiles exist.
func (l *FileLogger) rotate(idx, seq int) error {
	archive := fmt.Sprintf("%s.%d", l.logPath(idx), seq)
	if err := os.Rename(l.logPath(idx), archive); err != nil {
		return err
	}
	if l.Verbose {
		log.Printf("FileLogger%d: log file rotated: %s", idx, archive)
	}

	files, err := ioutil.ReadDir(l.LogDir)
	if err != nil {
		return err
	}
	prefix := fmt.Sprintf("metrics%d.", idx)
	var archives []string
	for _, file := range files {
		if file.Mode().IsRegular() && strings.HasPrefix(file.Name(), prefix) {
			archives = append(archives, file.Name())
		}
	}
	if len(archives) <= l.MaxLogFiles {
		return nil
	}

	// archive suffixes increase within a run; older runs sort first
	sort.Slice(archives, func(i, j int) bool {
		a, _ := strconv.Atoi(strings.TrimPrefix(archives[i], prefix))
		b, _ := strconv.Atoi(strings.TrimPrefix(archives[j], prefix))
		return a < b
	})
	for _, name := range archives[:len(archives)-l.MaxLogFiles] {
		if err := os.Remove(filepath.Join(l.LogDir, name)); err != nil {
			return err
		}
	}
	return nil
}
