package pdns

// Zone kind取值
const (
	KindNative = "Native"
	KindMaster = "Master"
	KindSlave  = "Slave"
)

// rrset changetype取值
const (
	ChangeTypeReplace = "REPLACE"
	ChangeTypeDelete  = "DELETE"
)

// Server 表示一个PowerDNS服务器实例
type Server struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	DaemonType string `json:"daemon_type,omitempty"`
	Version    string `json:"version,omitempty"`
}

// Zone 表示PowerDNS管理的DNS区域
type Zone struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Type    string   `json:"type,omitempty"`
	Kind    string   `json:"kind"`
	Serial  int      `json:"serial,omitempty"`
	Masters []string `json:"masters,omitempty"`
	RRSets  []RRSet  `json:"rrsets,omitempty"`
}

// RRSet 表示同名同类型的一组资源记录
type RRSet struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	TTL        int      `json:"ttl"`
	Changetype string   `json:"changetype,omitempty"`
	Records    []Record `json:"records"`
}

// Record 表示RRSet中的单条DNS记录
type Record struct {
	Content  string `json:"content"`
	Disabled bool   `json:"disabled"`
}

// ZoneSpec 创建区域的请求参数
type ZoneSpec struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Nameservers []string `json:"nameservers"`
	Masters     []string `json:"masters,omitempty"`
	Account     string   `json:"account,omitempty"`
}

// RecordSpec 创建或更新记录的请求参数
type RecordSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	TTL      int    `json:"ttl"`
	Disabled bool   `json:"disabled"`
}

// ConnectionTestResult 端点连接测试结果
type ConnectionTestResult struct {
	Success        bool    `json:"success"`
	Message        string  `json:"message"`
	ResponseTimeMS float64 `json:"response_time_ms"`
	ServerVersion  string  `json:"server_version,omitempty"`
	ZonesCount     *int    `json:"zones_count,omitempty"`
}
