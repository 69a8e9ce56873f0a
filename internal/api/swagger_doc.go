//go:build swagger

package api

import "github.com/swaggo/swag"

// openAPIDoc 将内嵌文档注册为 swag 文档源，供 /swagger/doc.json 使用
type openAPIDoc struct{}

func (openAPIDoc) ReadDoc() string { return string(openAPIDocument) }

func init() {
	swag.Register(swag.Name, openAPIDoc{})
}
