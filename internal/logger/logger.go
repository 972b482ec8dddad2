package logger

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LoggerService routes the standard logger into size-rotated files and
// zips files older than the retention period.
type LoggerService struct {
	mu            sync.Mutex
	file          *os.File
	currentLog    string
	folderPath    string
	maxFileBytes  int64
	retentionDays int
	toStderr      bool
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

func NewLoggerService(cfg map[string]interface{}) *LoggerService {
	folder, _ := cfg["folder_path"].(string)
	if folder == "" {
		folder = "./logs"
	}
	toStderr, _ := cfg["stderr"].(bool)
	return &LoggerService{
		folderPath:    folder,
		maxFileBytes:  int64(intValue(cfg["max_file_mb"])) * 1024 * 1024,
		retentionDays: intValue(cfg["retention_days"]),
		toStderr:      toStderr,
		stopCh:        make(chan struct{}),
	}
}

func intValue(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	}
	return 0
}

func (l *LoggerService) Name() string {
	return "logger"
}

func (l *LoggerService) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.folderPath, 0755); err != nil {
		return fmt.Errorf("create log folder: %w", err)
	}
	if err := l.openLocked(); err != nil {
		return err
	}
	log.Println("[LoggerService] Started, writing to", l.currentLog)

	l.wg.Add(1)
	go l.backgroundWorker()
	return nil
}

func (l *LoggerService) Stop() error {
	close(l.stopCh)
	l.wg.Wait()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	log.Println("[LoggerService] Stopping")
	log.SetOutput(os.Stderr)
	return l.file.Close()
}

func (l *LoggerService) openLocked() error {
	name := filepath.Join(l.folderPath, fmt.Sprintf("ledger_%s.log", time.Now().Format("20060102_150405")))
	file, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	l.file = file
	l.currentLog = name
	if l.toStderr {
		log.SetOutput(io.MultiWriter(os.Stderr, file))
	} else {
		log.SetOutput(file)
	}
	return nil
}

func (l *LoggerService) rotateIfNeeded() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil || l.maxFileBytes <= 0 {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() < l.maxFileBytes {
		return nil
	}
	old := l.file
	if err := l.openLocked(); err != nil {
		return err
	}
	old.Close()
	log.Println("[LoggerService] Rotated log file to", l.currentLog)
	return nil
}

func (l *LoggerService) backgroundWorker() {
	defer l.wg.Done()
	ticker := time.NewTicker(10 * time.Second)
	retentionTicker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	defer retentionTicker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			if err := l.rotateIfNeeded(); err != nil {
				log.Println("[LoggerService] rotation failed:", err)
			}
		case <-retentionTicker.C:
			l.zipAndCleanOldLogs()
		}
	}
}

func (l *LoggerService) zipAndCleanOldLogs() {
	if l.retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -l.retentionDays)
	entries, err := os.ReadDir(l.folderPath)
	if err != nil {
		return
	}
	zipName := filepath.Join(l.folderPath, fmt.Sprintf("logs_%s.zip", time.Now().Format("20060102")))
	zipFile, err := os.Create(zipName)
	if err != nil {
		return
	}
	defer zipFile.Close()
	zw := zip.NewWriter(zipFile)
	defer zw.Close()

	l.mu.Lock()
	current := l.currentLog
	l.mu.Unlock()

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".log" {
			continue
		}
		full := filepath.Join(l.folderPath, e.Name())
		if full == current {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		w, err := zw.Create(e.Name())
		if err != nil {
			continue
		}
		src, err := os.Open(full)
		if err != nil {
			continue
		}
		io.Copy(w, src)
		src.Close()
		os.Remove(full)
	}
}

func (l *LoggerService) LogAudit(msg string) {
	log.Printf("[AUDIT] %s", msg)
}

func (l *LoggerService) LogError(msg string) {
	log.Printf("[ERROR] %s", msg)
}

var GlobalLogger *LoggerService

func SetGlobalLogger(l *LoggerService) {
	GlobalLogger = l
}

// Audit writes an audit line through GlobalLogger, or the plain logger when
// no LoggerService is running (tests, CLI tools).
func Audit(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if GlobalLogger != nil {
		GlobalLogger.LogAudit(msg)
		return
	}
	log.Printf("[AUDIT] %s", msg)
}

// Error logs server-side failure detail that is never sent to clients.
func Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if GlobalLogger != nil {
		GlobalLogger.LogError(msg)
		return
	}
	log.Printf("[ERROR] %s", msg)
}
