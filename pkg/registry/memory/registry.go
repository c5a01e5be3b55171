package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dnsmate/pdns-fanout/pkg/registry"
)

// MemoryRegistry 是基于内存的端点注册表实现，适用于单实例部署和测试
type MemoryRegistry struct {
	endpoints map[int64]*registry.Endpoint
	nextID    int64
	mutex     sync.RWMutex
}

// NewMemoryRegistry 创建新的内存注册表
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		endpoints: make(map[int64]*registry.Endpoint),
		nextID:    1,
	}
}

// CreateEndpoint 创建端点并分配ID
func (m *MemoryRegistry) CreateEndpoint(ctx context.Context, endpoint *registry.Endpoint) error {
	if endpoint.Name == "" || endpoint.APIURL == "" || endpoint.APIKey == "" {
		return registry.NewInvalidArgumentError("端点名称、API地址和API密钥不能为空")
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	// 端点名称必须唯一
	for _, existing := range m.endpoints {
		if existing.Name == endpoint.Name {
			return registry.NewAlreadyExistsError("端点名称已存在: " + endpoint.Name)
		}
	}

	// 填充默认值和时间戳
	now := time.Now()
	if endpoint.Timeout <= 0 {
		endpoint.Timeout = 30
	}
	endpoint.CreatedAt = now
	endpoint.UpdatedAt = now
	endpoint.ID = m.nextID
	m.nextID++

	// 新端点为默认时取消其他端点的默认标记
	if endpoint.IsDefault {
		m.unsetAllDefaults()
	}

	m.endpoints[endpoint.ID] = endpoint
	return nil
}

// GetEndpoint 获取端点详情
func (m *MemoryRegistry) GetEndpoint(ctx context.Context, id int64) (*registry.Endpoint, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	endpoint, exists := m.endpoints[id]
	if !exists {
		return nil, registry.NewNotFoundError(fmt.Sprintf("端点不存在: %d", id))
	}

	return endpoint, nil
}

// ListEndpoints 获取所有端点列表，按ID升序
func (m *MemoryRegistry) ListEndpoints(ctx context.Context) ([]*registry.Endpoint, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	endpoints := make([]*registry.Endpoint, 0, len(m.endpoints))
	for _, endpoint := range m.endpoints {
		endpoints = append(endpoints, endpoint)
	}
	sort.Slice(endpoints, func(i, j int) bool {
		return endpoints[i].ID < endpoints[j].ID
	})

	return endpoints, nil
}

// GetDefaultEndpoint 获取默认端点
func (m *MemoryRegistry) GetDefaultEndpoint(ctx context.Context) (*registry.Endpoint, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	// 优先返回标记为默认且激活的端点
	var fallback *registry.Endpoint
	for _, endpoint := range m.endpoints {
		if !endpoint.IsActive {
			continue
		}
		if endpoint.IsDefault {
			return endpoint, nil
		}
		if fallback == nil || endpoint.ID < fallback.ID {
			fallback = endpoint
		}
	}

	// 没有默认端点时返回ID最小的激活端点
	if fallback != nil {
		return fallback, nil
	}

	return nil, registry.NewNotFoundError("没有可用的端点")
}

// UpdateEndpoint 按字段更新端点
func (m *MemoryRegistry) UpdateEndpoint(ctx context.Context, id int64, update *registry.EndpointUpdate) (*registry.Endpoint, error) {
	if update == nil {
		return nil, registry.NewInvalidArgumentError("更新内容不能为空")
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	endpoint, exists := m.endpoints[id]
	if !exists {
		return nil, registry.NewNotFoundError(fmt.Sprintf("端点不存在: %d", id))
	}

	// 更新名称时检查唯一性
	if update.Name != nil && *update.Name != endpoint.Name {
		for _, existing := range m.endpoints {
			if existing.ID != id && existing.Name == *update.Name {
				return nil, registry.NewAlreadyExistsError("端点名称已存在: " + *update.Name)
			}
		}
		endpoint.Name = *update.Name
	}
	if update.APIURL != nil {
		endpoint.APIURL = *update.APIURL
	}
	if update.APIKey != nil {
		endpoint.APIKey = *update.APIKey
	}
	if update.Description != nil {
		endpoint.Description = *update.Description
	}
	if update.IsDefault != nil {
		// 设为默认时取消其他端点的默认标记
		if *update.IsDefault && !endpoint.IsDefault {
			m.unsetAllDefaults()
		}
		endpoint.IsDefault = *update.IsDefault
	}
	if update.IsActive != nil {
		endpoint.IsActive = *update.IsActive
	}
	if update.MultiServerMode != nil {
		endpoint.MultiServerMode = *update.MultiServerMode
	}
	if update.Timeout != nil {
		endpoint.Timeout = *update.Timeout
	}
	if update.VerifySSL != nil {
		endpoint.VerifySSL = *update.VerifySSL
	}

	endpoint.UpdatedAt = time.Now()
	return endpoint, nil
}

// DeleteEndpoint 删除端点
func (m *MemoryRegistry) DeleteEndpoint(ctx context.Context, id int64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.endpoints[id]; !exists {
		return registry.NewNotFoundError(fmt.Sprintf("端点不存在: %d", id))
	}

	delete(m.endpoints, id)
	return nil
}

// unsetAllDefaults 取消所有端点的默认标记，调用方必须持有写锁
func (m *MemoryRegistry) unsetAllDefaults() {
	for _, endpoint := range m.endpoints {
		endpoint.IsDefault = false
	}
}
