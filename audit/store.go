// Package audit 以每日一个 JSON Lines 文件的形式记录完成的翻译任务
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"pdftranslate/models"
)

const (
	filePrefix = "translations-"
	fileSuffix = ".jsonl"
	// DateLayout 日志文件使用的日期格式
	DateLayout = "2006-01-02"
)

// Store 审计记录存储
type Store struct {
	dir   string
	mutex sync.Mutex
	now   func() time.Time
}

// NewStore 创建存储，目录不存在时自动创建
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Append 追加一条记录，Timestamp 为空时自动填写
func (s *Store) Append(record models.AuditRecord) error {
	now := s.now().UTC()
	if record.Timestamp == "" {
		record.Timestamp = now.Format(time.RFC3339)
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}
	line = append(line, '\n')

	s.mutex.Lock()
	defer s.mutex.Unlock()

	f, err := os.OpenFile(s.pathFor(now.Format(DateLayout)), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("write audit log: %w", err)
	}
	return f.Close()
}

// Read 读取某一天的记录，没有文件时返回空列表
func (s *Store) Read(date string) ([]models.AuditRecord, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	f, err := os.Open(s.pathFor(date))
	if errors.Is(err, os.ErrNotExist) {
		return []models.AuditRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	records := []models.AuditRecord{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec models.AuditRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// 跳过损坏的行
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return records, nil
}

// Dates 列出有记录的日期，新的在前
func (s *Store) Dates() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list audit dir: %w", err)
	}

	dates := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		date := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		if _, err := time.Parse(DateLayout, date); err == nil {
			dates = append(dates, date)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// Today 当天日期（UTC）
func (s *Store) Today() string {
	return s.now().UTC().Format(DateLayout)
}

func (s *Store) pathFor(date string) string {
	return filepath.Join(s.dir, filePrefix+date+fileSuffix)
}
