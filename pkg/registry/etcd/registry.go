package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dnsmate/pdns-fanout/pkg/registry"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdRegistry 实现基于etcd的端点注册表，端点以JSON文档存储
type EtcdRegistry struct {
	client *Client
}

var _ registry.EndpointRegistry = (*EtcdRegistry)(nil)

// NewEtcdRegistry 创建etcd端点注册表
func NewEtcdRegistry(client *Client) *EtcdRegistry {
	return &EtcdRegistry{
		client: client,
	}
}

// CreateEndpoint 创建端点并分配ID
func (r *EtcdRegistry) CreateEndpoint(ctx context.Context, endpoint *registry.Endpoint) error {
	if endpoint.Name == "" || endpoint.APIURL == "" || endpoint.APIKey == "" {
		return registry.NewInvalidArgumentError("端点名称、API地址和API密钥不能为空")
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	// 端点名称必须唯一
	existing, err := r.listEndpoints(ctx)
	if err != nil {
		return err
	}
	for _, ep := range existing {
		if ep.Name == endpoint.Name {
			return registry.NewAlreadyExistsError("端点名称已存在: " + endpoint.Name)
		}
	}

	// 通过CAS事务分配递增ID
	id, err := r.nextID(ctx)
	if err != nil {
		return err
	}

	// 填充默认值和时间戳
	now := time.Now()
	if endpoint.Timeout <= 0 {
		endpoint.Timeout = 30
	}
	endpoint.ID = id
	endpoint.CreatedAt = now
	endpoint.UpdatedAt = now

	// 新端点为默认时取消其他端点的默认标记
	if endpoint.IsDefault {
		if err := r.unsetOtherDefaults(ctx, existing, id); err != nil {
			return err
		}
	}

	return r.putEndpoint(ctx, endpoint)
}

// GetEndpoint 获取端点详情
func (r *EtcdRegistry) GetEndpoint(ctx context.Context, id int64) (*registry.Endpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := r.client.GetClient().Get(ctx, r.client.GetEndpointKey(id))
	if err != nil {
		return nil, registry.NewInternalError(fmt.Sprintf("从etcd读取失败: %v", err))
	}

	if len(resp.Kvs) == 0 {
		return nil, registry.NewNotFoundError(fmt.Sprintf("端点不存在: %d", id))
	}

	var endpoint registry.Endpoint
	if err := json.Unmarshal(resp.Kvs[0].Value, &endpoint); err != nil {
		return nil, registry.NewInternalError(fmt.Sprintf("解析端点数据失败: %v", err))
	}

	return &endpoint, nil
}

// ListEndpoints 获取所有端点列表，按ID升序
func (r *EtcdRegistry) ListEndpoints(ctx context.Context) ([]*registry.Endpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	return r.listEndpoints(ctx)
}

// GetDefaultEndpoint 获取默认端点
func (r *EtcdRegistry) GetDefaultEndpoint(ctx context.Context) (*registry.Endpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	endpoints, err := r.listEndpoints(ctx)
	if err != nil {
		return nil, err
	}

	// 优先返回标记为默认且激活的端点，否则返回ID最小的激活端点
	var fallback *registry.Endpoint
	for _, endpoint := range endpoints {
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

	if fallback != nil {
		return fallback, nil
	}

	return nil, registry.NewNotFoundError("没有可用的端点")
}

// UpdateEndpoint 按字段更新端点
func (r *EtcdRegistry) UpdateEndpoint(ctx context.Context, id int64, update *registry.EndpointUpdate) (*registry.Endpoint, error) {
	if update == nil {
		return nil, registry.NewInvalidArgumentError("更新内容不能为空")
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	endpoint, err := r.GetEndpoint(ctx, id)
	if err != nil {
		return nil, err
	}

	// 更新名称时检查唯一性
	if update.Name != nil && *update.Name != endpoint.Name {
		existing, err := r.listEndpoints(ctx)
		if err != nil {
			return nil, err
		}
		for _, ep := range existing {
			if ep.ID != id && ep.Name == *update.Name {
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
		if *update.IsDefault && !endpoint.IsDefault {
			existing, err := r.listEndpoints(ctx)
			if err != nil {
				return nil, err
			}
			if err := r.unsetOtherDefaults(ctx, existing, id); err != nil {
				return nil, err
			}
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
	if err := r.putEndpoint(ctx, endpoint); err != nil {
		return nil, err
	}

	return endpoint, nil
}

// DeleteEndpoint 删除端点
func (r *EtcdRegistry) DeleteEndpoint(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := r.client.GetClient().Delete(ctx, r.client.GetEndpointKey(id))
	if err != nil {
		return registry.NewInternalError(fmt.Sprintf("从etcd删除失败: %v", err))
	}

	if resp.Deleted == 0 {
		return registry.NewNotFoundError(fmt.Sprintf("端点不存在: %d", id))
	}

	return nil
}

// listEndpoints 读取全部端点，调用方负责超时控制
func (r *EtcdRegistry) listEndpoints(ctx context.Context) ([]*registry.Endpoint, error) {
	resp, err := r.client.GetClient().Get(ctx, r.client.GetEndpointsPrefix(), clientv3.WithPrefix())
	if err != nil {
		return nil, registry.NewInternalError(fmt.Sprintf("从etcd读取失败: %v", err))
	}

	endpoints := make([]*registry.Endpoint, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var endpoint registry.Endpoint
		if err := json.Unmarshal(kv.Value, &endpoint); err != nil {
			// 忽略无法解析的数据，继续处理其他数据
			continue
		}
		endpoints = append(endpoints, &endpoint)
	}
	sort.Slice(endpoints, func(i, j int) bool {
		return endpoints[i].ID < endpoints[j].ID
	})

	return endpoints, nil
}

// nextID 通过CAS事务分配下一个端点ID
func (r *EtcdRegistry) nextID(ctx context.Context) (int64, error) {
	key := r.client.GetNextIDKey()
	kv := r.client.GetClient()

	for {
		select {
		case <-ctx.Done():
			return 0, registry.NewInternalError("分配端点ID超时")
		default:
		}

		resp, err := kv.Get(ctx, key)
		if err != nil {
			return 0, registry.NewInternalError(fmt.Sprintf("读取ID计数器失败: %v", err))
		}

		// 计数器不存在时初始化为1，下一个值写入2
		if len(resp.Kvs) == 0 {
			txn, err := kv.Txn(ctx).
				If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
				Then(clientv3.OpPut(key, "2")).
				Commit()
			if err != nil {
				return 0, registry.NewInternalError(fmt.Sprintf("初始化ID计数器失败: %v", err))
			}
			if txn.Succeeded {
				return 1, nil
			}
			continue
		}

		current, err := strconv.ParseInt(string(resp.Kvs[0].Value), 10, 64)
		if err != nil {
			return 0, registry.NewInternalError(fmt.Sprintf("解析ID计数器失败: %v", err))
		}

		txn, err := kv.Txn(ctx).
			If(clientv3.Compare(clientv3.Value(key), "=", string(resp.Kvs[0].Value))).
			Then(clientv3.OpPut(key, strconv.FormatInt(current+1, 10))).
			Commit()
		if err != nil {
			return 0, registry.NewInternalError(fmt.Sprintf("更新ID计数器失败: %v", err))
		}
		if txn.Succeeded {
			return current, nil
		}
		// 并发冲突时重试
	}
}

// putEndpoint 序列化并写入端点
func (r *EtcdRegistry) putEndpoint(ctx context.Context, endpoint *registry.Endpoint) error {
	data, err := json.Marshal(endpoint)
	if err != nil {
		return registry.NewInternalError(fmt.Sprintf("序列化端点数据失败: %v", err))
	}

	_, err = r.client.GetClient().Put(ctx, r.client.GetEndpointKey(endpoint.ID), string(data))
	if err != nil {
		return registry.NewInternalError(fmt.Sprintf("写入etcd失败: %v", err))
	}

	return nil
}

// unsetOtherDefaults 取消除excludeID外所有端点的默认标记
func (r *EtcdRegistry) unsetOtherDefaults(ctx context.Context, endpoints []*registry.Endpoint, excludeID int64) error {
	for _, endpoint := range endpoints {
		if endpoint.ID == excludeID || !endpoint.IsDefault {
			continue
		}
		endpoint.IsDefault = false
		endpoint.UpdatedAt = time.Now()
		if err := r.putEndpoint(ctx, endpoint); err != nil {
			return err
		}
	}
	return nil
}
