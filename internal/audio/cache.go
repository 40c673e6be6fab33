package audio

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iabetor/mathspeech/internal/logger"
)

// ErrNotCached 表示缓存中没有该音频。
var ErrNotCached = errors.New("audio not cached")

// CacheEntry 缓存索引中的一条记录。
type CacheEntry struct {
	Key       string  `json:"key"`
	VoiceID   string  `json:"voice_id"`
	Language  string  `json:"language"`
	TextChars int     `json:"text_chars"`
	Size      int64   `json:"size"`
	Duration  float64 `json:"duration"` // 秒
	CachedAt  string  `json:"cached_at"`
	LastUsed  string  `json:"last_used"`
}

// Cache 管理合成音频的磁盘缓存和索引。
// 被播放会话 Acquire 的条目不会被 LRU 淘汰，直到对应的 Release。
type Cache struct {
	mu       sync.Mutex
	cacheDir string
	maxSize  int64 // 最大缓存大小（字节），<=0 表示禁用缓存
	index    map[string]*CacheEntry
	pins     map[string]int
}

// 固定宽度的 UTC 时间，字符串比较即时间先后。
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func now() string { return time.Now().UTC().Format(timeLayout) }

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

// Key 由合成参数计算缓存键（SHA-256 十六进制）。
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ValidKey 检查外部传入的缓存键格式，防止路径穿越。
func ValidKey(key string) bool {
	if len(key) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(key)
	return err == nil && strings.ToLower(key) == key
}

// NewCache 创建音频缓存。maxSizeMB <= 0 表示禁用缓存。
func NewCache(cacheDir string, maxSizeMB int64) (*Cache, error) {
	c := &Cache{
		cacheDir: cacheDir,
		index:    make(map[string]*CacheEntry),
		pins:     make(map[string]int),
	}
	if maxSizeMB <= 0 {
		return c, nil
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("[cache] 创建缓存目录失败: %w", err)
	}
	c.maxSize = maxSizeMB * 1024 * 1024

	if err := c.loadIndex(); err != nil {
		logger.Warnf("[cache] 加载缓存索引失败（将使用空索引）: %v", err)
		c.index = make(map[string]*CacheEntry)
	}
	c.validateIndex()
	return c, nil
}

// Enabled 返回缓存是否启用。
func (c *Cache) Enabled() bool {
	return c.maxSize > 0
}

// FilePath 返回缓存文件的完整路径。
func (c *Cache) FilePath(key string) string {
	return filepath.Join(c.cacheDir, key+".mp3")
}

// Store 写入音频文件并更新索引，写入过程先落到临时文件再改名。
// 刚写入的条目不参与本次淘汰。
func (c *Cache) Store(key string, data []byte, entry CacheEntry) error {
	if !c.Enabled() {
		return nil
	}
	if !ValidKey(key) {
		return fmt.Errorf("[cache] 非法的缓存键: %q", key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tmp := c.FilePath(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("[cache] 写入缓存文件失败: %w", err)
	}
	if err := os.Rename(tmp, c.FilePath(key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("[cache] 重命名缓存文件失败: %w", err)
	}

	ts := now()
	entry.Key = key
	entry.Size = int64(len(data))
	entry.CachedAt = ts
	entry.LastUsed = ts
	c.index[key] = &entry

	if err := c.saveIndexLocked(); err != nil {
		return fmt.Errorf("[cache] 保存缓存索引失败: %w", err)
	}
	c.evictLocked(key)

	logger.Infof("[cache] 已缓存: %s (%d bytes, %.1fs)", shortKey(key), entry.Size, entry.Duration)
	return nil
}

// Lookup 查找缓存条目并刷新最近使用时间。
func (c *Cache) Lookup(key string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index[key]
	if !ok {
		return CacheEntry{}, false
	}
	if _, err := os.Stat(c.FilePath(key)); err != nil {
		delete(c.index, key)
		return CacheEntry{}, false
	}
	entry.LastUsed = now()
	return *entry, true
}

// Read 读取缓存的音频数据。
func (c *Cache) Read(key string) ([]byte, error) {
	if _, ok := c.Lookup(key); !ok {
		return nil, ErrNotCached
	}
	data, err := os.ReadFile(c.FilePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotCached
		}
		return nil, fmt.Errorf("[cache] 读取缓存文件失败: %w", err)
	}
	return data, nil
}

// Acquire 钉住一个条目，返回条目是否存在。
func (c *Cache) Acquire(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[key]; !ok {
		return false
	}
	c.pins[key]++
	return true
}

// Release 取消一次钉住。钉住计数归零后条目重新参与淘汰。
func (c *Cache) Release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.pins[key]
	switch {
	case n <= 0:
		logger.Warnf("[cache] 释放未钉住的条目: %s", key)
	case n == 1:
		delete(c.pins, key)
		c.evictLocked("")
	default:
		c.pins[key] = n - 1
	}
}

// Pins 返回条目当前的钉住计数。
func (c *Cache) Pins(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pins[key]
}

// List 返回所有缓存条目，按最近使用时间倒序排列。
func (c *Cache) List() []CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	results := make([]CacheEntry, 0, len(c.index))
	for _, entry := range c.index {
		results = append(results, *entry)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].LastUsed > results[j].LastUsed
	})
	return results
}

// Size 返回索引中所有条目的总字节数。
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	for _, entry := range c.index {
		total += entry.Size
	}
	return total
}

func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(c.cacheDir, "cache_index.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &c.index)
}

// saveIndexLocked 持久化缓存索引（调用方需持有锁）。
func (c *Cache) saveIndexLocked() error {
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.cacheDir, "cache_index.json"), data, 0644)
}

// validateIndex 移除本地文件不存在的条目。
func (c *Cache) validateIndex() {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.index {
		if !ValidKey(key) {
			delete(c.index, key)
			removed++
			continue
		}
		if _, err := os.Stat(c.FilePath(key)); err != nil {
			delete(c.index, key)
			removed++
			continue
		}
		entry.Key = key
	}
	if removed > 0 {
		logger.Infof("[cache] 索引校验：移除 %d 个无效条目", removed)
		c.saveIndexLocked()
	}
	logger.Infof("[cache] 缓存已加载: %d 段音频, 目录 %s", len(c.index), c.cacheDir)
}

// evictLocked 总大小超出上限时淘汰最久未使用且未被钉住的条目（调用方需持有锁）。
func (c *Cache) evictLocked(keep string) {
	if c.maxSize <= 0 {
		return
	}

	var totalSize int64
	for _, entry := range c.index {
		totalSize += entry.Size
	}
	if totalSize <= c.maxSize {
		return
	}

	entries := make([]*CacheEntry, 0, len(c.index))
	for _, v := range c.index {
		entries = append(entries, v)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastUsed < entries[j].LastUsed
	})

	evicted := 0
	for _, e := range entries {
		if totalSize <= c.maxSize {
			break
		}
		if e.Key == keep || c.pins[e.Key] > 0 {
			continue
		}
		if err := os.Remove(c.FilePath(e.Key)); err != nil && !os.IsNotExist(err) {
			logger.Warnf("[cache] 删除缓存文件失败: %s: %v", e.Key, err)
			continue
		}
		totalSize -= e.Size
		delete(c.index, e.Key)
		evicted++
		logger.Infof("[cache] LRU 淘汰: %s (%d bytes)", shortKey(e.Key), e.Size)
	}

	if evicted > 0 {
		c.saveIndexLocked()
	}
}
