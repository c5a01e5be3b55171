package memory

import (
	"context"
	"testing"

	"github.com/dnsmate/pdns-fanout/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegistry_CreateEndpoint(t *testing.T) {
	// 创建注册表实例
	r := NewMemoryRegistry()
	ctx := context.Background()

	// 创建测试端点
	endpoint := &registry.Endpoint{
		Name:            "ns1",
		APIURL:          "http://ns1.example.com:8081",
		APIKey:          "secret1",
		IsActive:        true,
		MultiServerMode: true,
	}

	// 创建端点
	err := r.CreateEndpoint(ctx, endpoint)
	require.NoError(t, err)
	assert.Equal(t, int64(1), endpoint.ID, "第一个端点ID应为1")

	// 验证创建是否成功
	saved, err := r.GetEndpoint(ctx, endpoint.ID)
	require.NoError(t, err)
	assert.Equal(t, "ns1", saved.Name)
	assert.Equal(t, "http://ns1.example.com:8081", saved.APIURL)
	assert.Equal(t, 30, saved.Timeout, "未指定超时应填充默认值30秒")
	assert.False(t, saved.CreatedAt.IsZero())
	assert.False(t, saved.UpdatedAt.IsZero())

	// 测试无效参数
	invalid := &registry.Endpoint{Name: "ns2"}
	err = r.CreateEndpoint(ctx, invalid)
	assert.Error(t, err)
	regErr, ok := err.(*registry.RegistryError)
	require.True(t, ok)
	assert.Equal(t, registry.ErrInvalidArgument, regErr.Code)

	// 测试名称冲突
	duplicate := &registry.Endpoint{
		Name:   "ns1",
		APIURL: "http://other.example.com:8081",
		APIKey: "secret2",
	}
	err = r.CreateEndpoint(ctx, duplicate)
	assert.Error(t, err)
	regErr, ok = err.(*registry.RegistryError)
	require.True(t, ok)
	assert.Equal(t, registry.ErrAlreadyExists, regErr.Code)
}

func TestMemoryRegistry_CreateEndpointDefaultUniqueness(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	// 创建第一个默认端点
	first := &registry.Endpoint{
		Name:      "ns1",
		APIURL:    "http://ns1.example.com:8081",
		APIKey:    "secret1",
		IsDefault: true,
		IsActive:  true,
	}
	require.NoError(t, r.CreateEndpoint(ctx, first))

	// 创建第二个默认端点，第一个应失去默认标记
	second := &registry.Endpoint{
		Name:      "ns2",
		APIURL:    "http://ns2.example.com:8081",
		APIKey:    "secret2",
		IsDefault: true,
		IsActive:  true,
	}
	require.NoError(t, r.CreateEndpoint(ctx, second))

	saved1, err := r.GetEndpoint(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, saved1.IsDefault, "旧默认端点应失去默认标记")

	saved2, err := r.GetEndpoint(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, saved2.IsDefault, "新端点应为默认")
}

func TestMemoryRegistry_GetEndpoint(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	endpoint := &registry.Endpoint{
		Name:   "ns1",
		APIURL: "http://ns1.example.com:8081",
		APIKey: "secret1",
	}
	require.NoError(t, r.CreateEndpoint(ctx, endpoint))

	// 测试获取端点
	saved, err := r.GetEndpoint(ctx, endpoint.ID)
	require.NoError(t, err)
	assert.Equal(t, endpoint.ID, saved.ID)

	// 测试获取不存在的端点
	_, err = r.GetEndpoint(ctx, 999)
	assert.Error(t, err)
	regErr, ok := err.(*registry.RegistryError)
	require.True(t, ok)
	assert.Equal(t, registry.ErrNotFound, regErr.Code)
}

func TestMemoryRegistry_ListEndpoints(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	// 创建多个端点
	endpoints := []*registry.Endpoint{
		{Name: "ns1", APIURL: "http://ns1.example.com:8081", APIKey: "s1"},
		{Name: "ns2", APIURL: "http://ns2.example.com:8081", APIKey: "s2"},
		{Name: "ns3", APIURL: "http://ns3.example.com:8081", APIKey: "s3"},
	}
	for _, ep := range endpoints {
		require.NoError(t, r.CreateEndpoint(ctx, ep))
	}

	// 列表应包含所有端点并按ID升序排列
	all, err := r.ListEndpoints(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ns1", all[0].Name)
	assert.Equal(t, "ns2", all[1].Name)
	assert.Equal(t, "ns3", all[2].Name)
}

func TestMemoryRegistry_GetDefaultEndpoint(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	// 空注册表应返回NotFound
	_, err := r.GetDefaultEndpoint(ctx)
	assert.Error(t, err)
	regErr, ok := err.(*registry.RegistryError)
	require.True(t, ok)
	assert.Equal(t, registry.ErrNotFound, regErr.Code)

	// 只有激活端点时返回ID最小的
	ep1 := &registry.Endpoint{Name: "ns1", APIURL: "http://ns1.example.com:8081", APIKey: "s1", IsActive: true}
	ep2 := &registry.Endpoint{Name: "ns2", APIURL: "http://ns2.example.com:8081", APIKey: "s2", IsActive: true}
	require.NoError(t, r.CreateEndpoint(ctx, ep1))
	require.NoError(t, r.CreateEndpoint(ctx, ep2))

	def, err := r.GetDefaultEndpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, ep1.ID, def.ID, "无默认标记时应返回ID最小的激活端点")

	// 标记ns2为默认后应优先返回ns2
	isDefault := true
	_, err = r.UpdateEndpoint(ctx, ep2.ID, &registry.EndpointUpdate{IsDefault: &isDefault})
	require.NoError(t, err)

	def, err = r.GetDefaultEndpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, ep2.ID, def.ID, "应优先返回带默认标记的端点")

	// 默认端点停用后回退到ID最小的激活端点
	isActive := false
	_, err = r.UpdateEndpoint(ctx, ep2.ID, &registry.EndpointUpdate{IsActive: &isActive})
	require.NoError(t, err)

	def, err = r.GetDefaultEndpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, ep1.ID, def.ID, "停用的默认端点不应被返回")
}

func TestMemoryRegistry_UpdateEndpoint(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	endpoint := &registry.Endpoint{
		Name:     "ns1",
		APIURL:   "http://ns1.example.com:8081",
		APIKey:   "secret1",
		IsActive: true,
		Timeout:  30,
	}
	require.NoError(t, r.CreateEndpoint(ctx, endpoint))

	// 部分更新：只改超时和描述
	timeout := 60
	desc := "主数据中心"
	updated, err := r.UpdateEndpoint(ctx, endpoint.ID, &registry.EndpointUpdate{
		Timeout:     &timeout,
		Description: &desc,
	})
	require.NoError(t, err)
	assert.Equal(t, 60, updated.Timeout)
	assert.Equal(t, "主数据中心", updated.Description)
	assert.Equal(t, "ns1", updated.Name, "未更新的字段应保持原值")

	// 更新不存在的端点
	_, err = r.UpdateEndpoint(ctx, 999, &registry.EndpointUpdate{Timeout: &timeout})
	assert.Error(t, err)
	regErr, ok := err.(*registry.RegistryError)
	require.True(t, ok)
	assert.Equal(t, registry.ErrNotFound, regErr.Code)

	// 名称冲突
	other := &registry.Endpoint{Name: "ns2", APIURL: "http://ns2.example.com:8081", APIKey: "s2"}
	require.NoError(t, r.CreateEndpoint(ctx, other))
	conflict := "ns1"
	_, err = r.UpdateEndpoint(ctx, other.ID, &registry.EndpointUpdate{Name: &conflict})
	assert.Error(t, err)
	regErr, ok = err.(*registry.RegistryError)
	require.True(t, ok)
	assert.Equal(t, registry.ErrAlreadyExists, regErr.Code)
}

func TestMemoryRegistry_UpdateEndpointDefaultUniqueness(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	ep1 := &registry.Endpoint{Name: "ns1", APIURL: "http://ns1.example.com:8081", APIKey: "s1", IsDefault: true, IsActive: true}
	ep2 := &registry.Endpoint{Name: "ns2", APIURL: "http://ns2.example.com:8081", APIKey: "s2", IsActive: true}
	require.NoError(t, r.CreateEndpoint(ctx, ep1))
	require.NoError(t, r.CreateEndpoint(ctx, ep2))

	// 将ns2设为默认，ns1应失去默认标记
	isDefault := true
	_, err := r.UpdateEndpoint(ctx, ep2.ID, &registry.EndpointUpdate{IsDefault: &isDefault})
	require.NoError(t, err)

	saved1, err := r.GetEndpoint(ctx, ep1.ID)
	require.NoError(t, err)
	assert.False(t, saved1.IsDefault, "旧默认端点应失去默认标记")

	saved2, err := r.GetEndpoint(ctx, ep2.ID)
	require.NoError(t, err)
	assert.True(t, saved2.IsDefault)
}

func TestMemoryRegistry_DeleteEndpoint(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	endpoint := &registry.Endpoint{
		Name:   "ns1",
		APIURL: "http://ns1.example.com:8081",
		APIKey: "secret1",
	}
	require.NoError(t, r.CreateEndpoint(ctx, endpoint))

	// 删除端点
	err := r.DeleteEndpoint(ctx, endpoint.ID)
	require.NoError(t, err)

	// 验证端点已被删除
	_, err = r.GetEndpoint(ctx, endpoint.ID)
	assert.Error(t, err)
	regErr, ok := err.(*registry.RegistryError)
	require.True(t, ok)
	assert.Equal(t, registry.ErrNotFound, regErr.Code)

	// 删除不存在的端点
	err = r.DeleteEndpoint(ctx, 999)
	assert.Error(t, err)
}
