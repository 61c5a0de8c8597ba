// Package dictionary 加载 "word,difficulty" 格式的词库
package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
)

// Entry 词条
type Entry struct {
	Word       string
	Difficulty string
}

// Load 从文件加载词库，shuffle 为 true 时打乱顺序
func Load(path string, shuffle bool) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开词库失败: %w", err)
	}
	defer func() { _ = f.Close() }()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("读取词库 %s 失败: %w", path, err)
	}
	if shuffle {
		Shuffle(entries)
	}
	return entries, nil
}

// Parse 逐行解析词库，只保留恰好两个字段且词不为空的行
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		// 兼容 CRLF
		line := strings.TrimRight(scanner.Text(), "\r")
		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			continue
		}
		word := strings.TrimSpace(parts[0])
		if word == "" {
			continue
		}
		entries = append(entries, Entry{Word: word, Difficulty: strings.TrimSpace(parts[1])})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Shuffle 原地打乱词库
func Shuffle(entries []Entry) {
	rand.Shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})
}
