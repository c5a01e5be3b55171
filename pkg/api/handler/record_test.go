package handler

import (
	"net/http"
	"testing"

	"github.com/dnsmate/pdns-fanout/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRecordFanout(t *testing.T) {
	e, reg, _ := newZoneRecordTestServer(t)
	fakeA := newFakePowerDNS(t)
	fakeB := newFakePowerDNS(t)
	registerFakeEndpoint(t, reg, "ns1", fakeA)
	registerFakeEndpoint(t, reg, "ns2", fakeB)

	rec := performRequest(e, http.MethodPost, "/api/v1/zones/example.com/records", map[string]interface{}{
		"name":    "www.example.com.",
		"type":    "A",
		"content": "192.0.2.1",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["success_count"])
	assert.Equal(t, "add_record", data["operation"])

	// 两个端点都收到REPLACE变更，TTL使用默认值300
	patch := string(fakeA.lastPatch())
	require.NotEmpty(t, patch)
	assert.Contains(t, patch, `"changetype":"REPLACE"`)
	assert.Contains(t, patch, `"name":"www.example.com."`)
	assert.Contains(t, patch, `"ttl":300`)
	assert.Equal(t, 1, fakeB.patchCount())
}

func TestAddRecordValidation(t *testing.T) {
	e, reg, _ := newZoneRecordTestServer(t)
	fake := newFakePowerDNS(t)
	registerFakeEndpoint(t, reg, "ns1", fake)

	t.Run("Invalid Type", func(t *testing.T) {
		rec := performRequest(e, http.MethodPost, "/api/v1/zones/example.com/records", map[string]interface{}{
			"name":    "www.example.com.",
			"type":    "BOGUS",
			"content": "192.0.2.1",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decodeResponse(t, rec)
		assert.Contains(t, resp.Message, "参数验证失败")
	})

	t.Run("TTL Too Large", func(t *testing.T) {
		rec := performRequest(e, http.MethodPost, "/api/v1/zones/example.com/records", map[string]interface{}{
			"name":    "www.example.com.",
			"type":    "A",
			"content": "192.0.2.1",
			"ttl":     90000,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Missing Content", func(t *testing.T) {
		rec := performRequest(e, http.MethodPost, "/api/v1/zones/example.com/records", map[string]interface{}{
			"name": "www.example.com.",
			"type": "A",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	// 验证失败时不应触达任何端点
	assert.Equal(t, 0, fake.patchCount())
}

func TestUpdateRecordFanout(t *testing.T) {
	e, reg, _ := newZoneRecordTestServer(t)
	fake := newFakePowerDNS(t)
	registerFakeEndpoint(t, reg, "ns1", fake)
	registerFakeEndpoint(t, reg, "ns2", fake)

	rec := performRequest(e, http.MethodPut, "/api/v1/zones/example.com/records", map[string]interface{}{
		"name":    "www.example.com.",
		"type":    "A",
		"content": "192.0.2.99",
		"ttl":     600,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "update_record", data["operation"])
	assert.Equal(t, float64(2), data["success_count"])

	// 更新与添加一样使用REPLACE变更
	patch := string(fake.lastPatch())
	assert.Contains(t, patch, `"changetype":"REPLACE"`)
	assert.Contains(t, patch, `"content":"192.0.2.99"`)
	assert.Contains(t, patch, `"ttl":600`)
}

func TestDeleteRecordFanout(t *testing.T) {
	e, reg, _ := newZoneRecordTestServer(t)
	fakeA := newFakePowerDNS(t)
	fakeB := newFakePowerDNS(t)
	registerFakeEndpoint(t, reg, "ns1", fakeA)
	registerFakeEndpoint(t, reg, "ns2", fakeB)

	t.Run("Valid Deletion", func(t *testing.T) {
		rec := performRequest(e, http.MethodDelete,
			"/api/v1/zones/example.com/records?name=www.example.com.&type=a", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		resp := decodeResponse(t, rec)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "delete_record", data["operation"])
		assert.Equal(t, float64(2), data["success_count"])

		// 类型参数被归一为大写，变更类型为DELETE
		patch := string(fakeA.lastPatch())
		require.NotEmpty(t, patch)
		assert.Contains(t, patch, `"changetype":"DELETE"`)
		assert.Contains(t, patch, `"type":"A"`)
	})

	t.Run("Missing Name", func(t *testing.T) {
		rec := performRequest(e, http.MethodDelete, "/api/v1/zones/example.com/records?type=A", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decodeResponse(t, rec)
		assert.Contains(t, resp.Message, "记录名称不能为空")
	})

	t.Run("Invalid Type", func(t *testing.T) {
		rec := performRequest(e, http.MethodDelete,
			"/api/v1/zones/example.com/records?name=www.example.com.&type=BOGUS", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decodeResponse(t, rec)
		assert.Contains(t, resp.Message, "记录类型无效")
	})
}

func TestListRecords(t *testing.T) {
	e, reg, _ := newZoneRecordTestServer(t)
	fake := newFakePowerDNS(t)
	registerFakeEndpoint(t, reg, "primary", fake, func(endpoint *registry.Endpoint) {
		endpoint.IsDefault = true
	})

	rec := performRequest(e, http.MethodGet, "/api/v1/zones/example.com/records", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	records := resp.Data.([]interface{})
	// rrset中的两条记录被展开为两个条目
	require.Len(t, records, 2)

	first := records[0].(map[string]interface{})
	assert.Equal(t, "www.example.com.", first["name"])
	assert.Equal(t, "A", first["type"])
	assert.Equal(t, "192.0.2.1", first["content"])
	assert.Equal(t, float64(300), first["ttl"])
	assert.Equal(t, "example.com.", first["zone_name"])
}
