package registry

import (
	"context"
	"time"
)

// Endpoint 表示一个PowerDNS API服务端点
type Endpoint struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	APIURL          string    `json:"api_url"`
	APIKey          string    `json:"api_key"`
	Description     string    `json:"description"`
	IsDefault       bool      `json:"is_default"`
	IsActive        bool      `json:"is_active"`
	MultiServerMode bool      `json:"multi_server_mode"`
	Timeout         int       `json:"timeout"`
	VerifySSL       bool      `json:"verify_ssl"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EndpointUpdate 表示端点的部分更新，nil字段保持原值
type EndpointUpdate struct {
	Name            *string `json:"name,omitempty"`
	APIURL          *string `json:"api_url,omitempty"`
	APIKey          *string `json:"api_key,omitempty"`
	Description     *string `json:"description,omitempty"`
	IsDefault       *bool   `json:"is_default,omitempty"`
	IsActive        *bool   `json:"is_active,omitempty"`
	MultiServerMode *bool   `json:"multi_server_mode,omitempty"`
	Timeout         *int    `json:"timeout,omitempty"`
	VerifySSL       *bool   `json:"verify_ssl,omitempty"`
}

// EndpointRegistry 定义端点注册表接口
type EndpointRegistry interface {
	// CreateEndpoint 创建端点并分配ID；is_default为true时取消其他端点的默认标记
	CreateEndpoint(ctx context.Context, endpoint *Endpoint) error

	// GetEndpoint 获取端点详情
	GetEndpoint(ctx context.Context, id int64) (*Endpoint, error)

	// ListEndpoints 获取所有端点列表（包括未激活的）
	ListEndpoints(ctx context.Context) ([]*Endpoint, error)

	// GetDefaultEndpoint 获取默认端点：优先is_default且激活的端点，
	// 否则返回ID最小的激活端点；没有激活端点时返回NotFound错误
	GetDefaultEndpoint(ctx context.Context) (*Endpoint, error)

	// UpdateEndpoint 按字段更新端点；is_default更新为true时取消其他端点的默认标记
	UpdateEndpoint(ctx context.Context, id int64, update *EndpointUpdate) (*Endpoint, error)

	// DeleteEndpoint 删除端点
	DeleteEndpoint(ctx context.Context, id int64) error
}

// RegistryError 定义注册表操作可能返回的错误类型
type RegistryError struct {
	Code    int
	Message string
}

// Error 实现error接口
func (e *RegistryError) Error() string {
	return e.Message
}

// 定义错误代码
const (
	// ErrNotFound 资源不存在
	ErrNotFound = iota + 1
	// ErrAlreadyExists 资源已存在
	ErrAlreadyExists
	// ErrInvalidArgument 参数无效
	ErrInvalidArgument
	// ErrInternal 内部错误
	ErrInternal
)

// NewNotFoundError 创建资源不存在错误
func NewNotFoundError(message string) *RegistryError {
	return &RegistryError{
		Code:    ErrNotFound,
		Message: message,
	}
}

// NewAlreadyExistsError 创建资源已存在错误
func NewAlreadyExistsError(message string) *RegistryError {
	return &RegistryError{
		Code:    ErrAlreadyExists,
		Message: message,
	}
}

// NewInvalidArgumentError 创建参数无效错误
func NewInvalidArgumentError(message string) *RegistryError {
	return &RegistryError{
		Code:    ErrInvalidArgument,
		Message: message,
	}
}

// NewInternalError 创建内部错误
func NewInternalError(message string) *RegistryError {
	return &RegistryError{
		Code:    ErrInternal,
		Message: message,
	}
}
