package handler

import (
	"net/http"
	"strings"

	"github.com/dnsmate/pdns-fanout/pkg/config"
	"github.com/dnsmate/pdns-fanout/pkg/fanout"
	"github.com/dnsmate/pdns-fanout/pkg/pdns"
	"github.com/dnsmate/pdns-fanout/pkg/registry"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// 允许的记录类型
const recordTypes = "A AAAA CNAME MX NS PTR SOA SRV TXT CAA"

// RecordRequest 创建或更新记录请求
type RecordRequest struct {
	Name     string `json:"name" validate:"required"`
	Type     string `json:"type" validate:"required,oneof=A AAAA CNAME MX NS PTR SOA SRV TXT CAA"`
	Content  string `json:"content" validate:"required"`
	TTL      int    `json:"ttl" validate:"omitempty,min=1,max=86400"`
	Disabled bool   `json:"disabled"`
}

// RecordView 记录的公开视图，按单条记录展开rrset
type RecordView struct {
	ZoneName string `json:"zone_name"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	TTL      int    `json:"ttl"`
	Disabled bool   `json:"disabled"`
}

// RecordHandler 处理记录管理API。
// 写操作经编排器下发到所有端点，读操作只访问默认端点。
type RecordHandler struct {
	registry     registry.EndpointRegistry
	orchestrator *fanout.Orchestrator
	logger       config.Logger
}

// NewRecordHandler 创建记录处理器
func NewRecordHandler(reg registry.EndpointRegistry, orchestrator *fanout.Orchestrator, logger config.Logger) *RecordHandler {
	return &RecordHandler{
		registry:     reg,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// bindRecordRequest 解析并验证记录请求，补齐TTL默认值
func bindRecordRequest(c echo.Context) (*pdns.RecordSpec, error) {
	var req RecordRequest
	if err := c.Bind(&req); err != nil {
		return nil, c.JSON(http.StatusBadRequest, APIResponse{
			Code:    http.StatusBadRequest,
			Message: "请求参数无效: " + err.Error(),
		})
	}

	if err := c.Validate(&req); err != nil {
		return nil, c.JSON(http.StatusBadRequest, APIResponse{
			Code:    http.StatusBadRequest,
			Message: "参数验证失败: " + err.Error(),
		})
	}

	ttl := req.TTL
	if ttl == 0 {
		ttl = 300
	}

	return &pdns.RecordSpec{
		Name:     strings.TrimSpace(req.Name),
		Type:     req.Type,
		Content:  req.Content,
		TTL:      ttl,
		Disabled: req.Disabled,
	}, nil
}

// ListRecords 获取默认端点上指定区域的所有记录
func (h *RecordHandler) ListRecords(c echo.Context) error {
	zoneName := normalizeZoneName(c.Param("zone"))

	endpoint, err := h.registry.GetDefaultEndpoint(c.Request().Context())
	if err != nil {
		return registryErrorJSON(c, err, "获取默认端点失败")
	}

	client, err := clientForEndpoint(endpoint)
	if err != nil {
		return registryErrorJSON(c, err, "获取默认端点失败")
	}

	rrsets, err := client.GetRecords(c.Request().Context(), zoneName)
	if err != nil {
		return c.JSON(http.StatusBadGateway, APIResponse{
			Code:    http.StatusBadGateway,
			Message: "获取记录列表失败: " + err.Error(),
		})
	}

	views := make([]*RecordView, 0, len(rrsets))
	for _, rrset := range rrsets {
		for _, record := range rrset.Records {
			views = append(views, &RecordView{
				ZoneName: zoneName,
				Name:     rrset.Name,
				Type:     rrset.Type,
				Content:  record.Content,
				TTL:      rrset.TTL,
				Disabled: record.Disabled,
			})
		}
	}

	return c.JSON(http.StatusOK, APIResponse{
		Code:    http.StatusOK,
		Message: "success",
		Data:    views,
	})
}

// AddRecord 在所有端点上添加记录
func (h *RecordHandler) AddRecord(c echo.Context) error {
	zoneName := normalizeZoneName(c.Param("zone"))

	record, err := bindRecordRequest(c)
	if record == nil {
		return err
	}

	result, err := h.orchestrator.AddRecordToAll(c.Request().Context(), zoneName, *record)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, APIResponse{
			Code:    http.StatusInternalServerError,
			Message: "添加记录失败: " + err.Error(),
		})
	}

	h.logger.Info("记录添加操作完成",
		zap.String("zone", zoneName),
		zap.String("record", record.Name),
		zap.String("type", record.Type),
		zap.String("operation_id", result.OperationID),
		zap.Int("success", result.SuccessCount),
		zap.Int("total", result.TotalEndpoints))

	return fanoutJSON(c, result, http.StatusCreated)
}

// UpdateRecord 在所有端点上更新记录
func (h *RecordHandler) UpdateRecord(c echo.Context) error {
	zoneName := normalizeZoneName(c.Param("zone"))

	record, err := bindRecordRequest(c)
	if record == nil {
		return err
	}

	result, err := h.orchestrator.UpdateRecordOnAll(c.Request().Context(), zoneName, *record)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, APIResponse{
			Code:    http.StatusInternalServerError,
			Message: "更新记录失败: " + err.Error(),
		})
	}

	h.logger.Info("记录更新操作完成",
		zap.String("zone", zoneName),
		zap.String("record", record.Name),
		zap.String("type", record.Type),
		zap.String("operation_id", result.OperationID),
		zap.Int("success", result.SuccessCount),
		zap.Int("total", result.TotalEndpoints))

	return fanoutJSON(c, result, http.StatusOK)
}

// DeleteRecord 从所有端点删除记录，记录名和类型通过查询参数指定
func (h *RecordHandler) DeleteRecord(c echo.Context) error {
	zoneName := normalizeZoneName(c.Param("zone"))

	recordName := strings.TrimSpace(c.QueryParam("name"))
	if recordName == "" {
		return c.JSON(http.StatusBadRequest, APIResponse{
			Code:    http.StatusBadRequest,
			Message: "记录名称不能为空",
		})
	}

	recordType := strings.ToUpper(strings.TrimSpace(c.QueryParam("type")))
	if !validRecordType(recordType) {
		return c.JSON(http.StatusBadRequest, APIResponse{
			Code:    http.StatusBadRequest,
			Message: "记录类型无效，允许的类型: " + recordTypes,
		})
	}

	result, err := h.orchestrator.DeleteRecordFromAll(c.Request().Context(), zoneName, recordName, recordType)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, APIResponse{
			Code:    http.StatusInternalServerError,
			Message: "删除记录失败: " + err.Error(),
		})
	}

	h.logger.Info("记录删除操作完成",
		zap.String("zone", zoneName),
		zap.String("record", recordName),
		zap.String("type", recordType),
		zap.String("operation_id", result.OperationID),
		zap.Int("success", result.SuccessCount),
		zap.Int("total", result.TotalEndpoints))

	return fanoutJSON(c, result, http.StatusOK)
}

// validRecordType 检查记录类型是否在允许范围内
func validRecordType(recordType string) bool {
	if recordType == "" {
		return false
	}
	for _, valid := range strings.Fields(recordTypes) {
		if recordType == valid {
			return true
		}
	}
	return false
}
