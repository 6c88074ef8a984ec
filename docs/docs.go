// Package docs 短链接注册表的 Swagger 文档
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/links": {
            "get": {
                "description": "按创建时间倒序返回所有记录（包括已过期的）",
                "produces": ["application/json"],
                "tags": ["Stats"],
                "summary": "获取全部短链接",
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/model.URLRecord"}}
                    }
                }
            }
        },
        "/api/links/{code}/qr": {
            "get": {
                "description": "生成短链接的 PNG 二维码，size 取值 128-1024",
                "produces": ["image/png"],
                "tags": ["ShortLink"],
                "summary": "短链接二维码",
                "parameters": [
                    {"type": "string", "description": "短码", "name": "code", "in": "path", "required": true},
                    {"type": "integer", "description": "图片边长", "name": "size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "二维码图片", "schema": {"type": "file"}},
                    "400": {"description": "参数错误", "schema": {"$ref": "#/definitions/handler.BatchErrorResponse"}},
                    "404": {"description": "短码不存在", "schema": {"$ref": "#/definitions/handler.BatchErrorResponse"}}
                }
            }
        },
        "/api/shorten": {
            "post": {
                "description": "为一个长 URL 创建短链接，可指定有效期（分钟）和自定义短码",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ShortLink"],
                "summary": "创建短链接",
                "parameters": [
                    {"description": "长链接 URL", "name": "url", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.CreateShortLinkRequest"}}
                ],
                "responses": {
                    "201": {"description": "成功响应", "schema": {"$ref": "#/definitions/registry.ShortenedURL"}},
                    "400": {"description": "请求无效", "schema": {"$ref": "#/definitions/handler.BatchErrorResponse"}},
                    "409": {"description": "短码已被占用", "schema": {"$ref": "#/definitions/handler.BatchErrorResponse"}},
                    "500": {"description": "保存失败", "schema": {"$ref": "#/definitions/handler.BatchErrorResponse"}}
                }
            }
        },
        "/api/shorten/batch": {
            "post": {
                "description": "一次最多提交 5 条，任何一条不合法或短码重复时整批拒绝",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ShortLink"],
                "summary": "批量创建短链接",
                "parameters": [
                    {"description": "待缩短的 URL 列表", "name": "entries", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.BatchRequest"}}
                ],
                "responses": {
                    "201": {"description": "成功响应", "schema": {"$ref": "#/definitions/handler.BatchResponse"}},
                    "400": {"description": "校验失败", "schema": {"$ref": "#/definitions/handler.BatchErrorResponse"}},
                    "500": {"description": "保存失败", "schema": {"$ref": "#/definitions/handler.BatchErrorResponse"}}
                }
            }
        },
        "/api/stats": {
            "get": {
                "description": "总数、有效数、过期数和总点击数，按固定周期刷新",
                "produces": ["application/json"],
                "tags": ["Stats"],
                "summary": "获取统计数据",
                "responses": {
                    "200": {"description": "成功响应", "schema": {"$ref": "#/definitions/stats.Summary"}}
                }
            }
        }
    },
    "definitions": {
        "handler.BatchEntry": {
            "type": "object",
            "properties": {
                "shortcode": {"type": "string", "example": "gin123"},
                "url": {"type": "string", "example": "https://github.com/gin-gonic/gin"},
                "validity": {"type": "number", "example": 30}
            }
        },
        "handler.BatchErrorResponse": {
            "type": "object",
            "properties": {
                "entries": {"type": "array", "items": {"type": "string"}},
                "error": {"type": "string"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/registry.ShortenedURL"}}
            }
        },
        "handler.BatchRequest": {
            "type": "object",
            "required": ["entries"],
            "properties": {
                "entries": {"type": "array", "items": {"$ref": "#/definitions/handler.BatchEntry"}}
            }
        },
        "handler.BatchResponse": {
            "type": "object",
            "properties": {
                "results": {"type": "array", "items": {"$ref": "#/definitions/registry.ShortenedURL"}}
            }
        },
        "handler.CreateShortLinkRequest": {
            "type": "object",
            "required": ["url"],
            "properties": {
                "shortcode": {"type": "string", "example": "gin123"},
                "url": {"type": "string", "example": "https://github.com/gin-gonic/gin"},
                "validity": {"type": "number", "minimum": 0, "example": 30}
            }
        },
        "model.ClickEvent": {
            "type": "object",
            "properties": {
                "location": {"type": "string"},
                "referrer": {"type": "string"},
                "timestamp": {"type": "string"},
                "userAgent": {"type": "string"}
            }
        },
        "model.URLRecord": {
            "type": "object",
            "properties": {
                "clickHistory": {"type": "array", "items": {"$ref": "#/definitions/model.ClickEvent"}},
                "clicks": {"type": "integer"},
                "createdAt": {"type": "string"},
                "expiryDate": {"type": "string"},
                "id": {"type": "string"},
                "originalUrl": {"type": "string"},
                "shortcode": {"type": "string"}
            }
        },
        "registry.ShortenedURL": {
            "type": "object",
            "properties": {
                "expiry": {"type": "string"},
                "expiryDate": {"type": "string"},
                "originalUrl": {"type": "string"},
                "shortUrl": {"type": "string"},
                "shortcode": {"type": "string"}
            }
        },
        "stats.Summary": {
            "type": "object",
            "properties": {
                "active": {"type": "integer"},
                "expired": {"type": "integer"},
                "total": {"type": "integer"},
                "totalClicks": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "短链接注册表 API",
	Description:      "创建带有效期的短链接、跳转并统计访问。",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
