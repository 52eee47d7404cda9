package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/LouYuanbo1/profilecrawler/internal/infra/crawler/types"
)

// LoadCookies 读取保存的cookie, 文件不存在时返回的错误满足 errors.Is(err, fs.ErrNotExist)
func LoadCookies(path string) ([]types.Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cookies []types.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("解析cookie文件失败: %w", err)
	}
	return cookies, nil
}

// SaveCookies 保存cookie, 文件只对当前用户可读
func SaveCookies(path string, cookies []types.Cookie) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建cookie目录失败: %w", err)
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化cookie失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("写入cookie文件失败: %w", err)
	}
	return nil
}
