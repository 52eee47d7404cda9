package export

import (
	"encoding/csv"
	"fmt"
	"os"
)

// 带BOM, Excel 直接打开时按 UTF-8 识别
const utf8BOM = "\ufeff"

func writeCSV(path string, data [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建CSV文件失败: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return fmt.Errorf("写入CSV失败: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header()); err != nil {
		return fmt.Errorf("写入CSV失败: %w", err)
	}
	if err := w.WriteAll(data); err != nil {
		return fmt.Errorf("写入CSV失败: %w", err)
	}
	return f.Close()
}
