package entity

import (
	"github.com/LouYuanbo1/profilecrawler/internal/domain/model"
)

// 可写入索引的实体接口
// D是文档类型,必须实现model.Document接口
type Crawlable[D model.Document] interface {
	*Record
	ToDocument() D
}
