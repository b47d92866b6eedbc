package xray

import (
	"encoding/json"
	"path/filepath"

	"xinbound/internal/inbound"
	"xinbound/internal/logger"
)

const (
	APITag         = "api"
	DefaultAPIPort = 10085
)

// ServerOptions are the host-level settings of the rendered config.
type ServerOptions struct {
	LogDir  string
	APIPort int
}

// ServerConfig is the full xray server config for a set of inbounds.
type ServerConfig struct {
	Log       LogSection     `json:"log"`
	API       APISection     `json:"api"`
	Inbounds  []InboundEntry `json:"inbounds"`
	Outbounds []Outbound     `json:"outbounds"`
	Routing   Routing        `json:"routing"`
	Stats     struct{}       `json:"stats"`
	Policy    Policy         `json:"policy"`
}

type LogSection struct {
	LogLevel string `json:"loglevel"`
	Access   string `json:"access,omitempty"`
	Error    string `json:"error,omitempty"`
}

type APISection struct {
	Tag      string   `json:"tag"`
	Services []string `json:"services"`
}

type Outbound struct {
	Tag      string `json:"tag"`
	Protocol string `json:"protocol"`
}

type Routing struct {
	DomainStrategy string        `json:"domainStrategy"`
	Rules          []RoutingRule `json:"rules"`
}

type RoutingRule struct {
	Type        string   `json:"type"`
	InboundTag  []string `json:"inboundTag,omitempty"`
	OutboundTag string   `json:"outboundTag,omitempty"`
}

type Policy struct {
	Levels map[string]LevelPolicy `json:"levels"`
	System SystemPolicy           `json:"system"`
}

type LevelPolicy struct {
	Handshake         int  `json:"handshake"`
	ConnIdle          int  `json:"connIdle"`
	UplinkOnly        int  `json:"uplinkOnly"`
	DownlinkOnly      int  `json:"downlinkOnly"`
	StatsUserUplink   bool `json:"statsUserUplink"`
	StatsUserDownlink bool `json:"statsUserDownlink"`
	BufferSize        int  `json:"bufferSize"`
}

type SystemPolicy struct {
	StatsInboundUplink    bool `json:"statsInboundUplink"`
	StatsInboundDownlink  bool `json:"statsInboundDownlink"`
	StatsOutboundUplink   bool `json:"statsOutboundUplink"`
	StatsOutboundDownlink bool `json:"statsOutboundDownlink"`
}

// Render builds the server config for every enabled record. A record that
// cannot be converted is logged and left out.
func Render(records []*inbound.Record, opts ServerOptions) *ServerConfig {
	apiPort := opts.APIPort
	if apiPort == 0 {
		apiPort = DefaultAPIPort
	}

	cfg := &ServerConfig{
		Log: LogSection{LogLevel: "error"},
		API: APISection{
			Tag:      APITag,
			Services: []string{"HandlerService", "LoggerService", "StatsService"},
		},
		Inbounds: []InboundEntry{{
			Tag:      APITag,
			Listen:   "127.0.0.1",
			Port:     apiPort,
			Protocol: "dokodemo-door",
			Settings: json.RawMessage(`{"address":"127.0.0.1"}`),
		}},
		Outbounds: []Outbound{
			{Tag: "direct", Protocol: "freedom"},
			{Tag: "blocked", Protocol: "blackhole"},
		},
		Routing: Routing{
			DomainStrategy: "IPIfNonMatch",
			Rules: []RoutingRule{
				{Type: "field", InboundTag: []string{APITag}, OutboundTag: APITag},
			},
		},
		Policy: Policy{
			Levels: map[string]LevelPolicy{
				"0": {
					Handshake:         4,
					ConnIdle:          300,
					UplinkOnly:        2,
					DownlinkOnly:      5,
					StatsUserUplink:   true,
					StatsUserDownlink: true,
					BufferSize:        512,
				},
			},
			System: SystemPolicy{
				StatsInboundUplink:    true,
				StatsInboundDownlink:  true,
				StatsOutboundUplink:   true,
				StatsOutboundDownlink: true,
			},
		},
	}
	if opts.LogDir != "" {
		cfg.Log.Access = filepath.Join(opts.LogDir, "access.log")
		cfg.Log.Error = filepath.Join(opts.LogDir, "error.log")
	}

	for _, rec := range records {
		if !rec.Enable {
			continue
		}
		in, err := toInboundJSON(rec)
		if err != nil {
			logger.Log.Warnf("Skipping inbound %q: %v", rec.Remark, err)
			continue
		}
		cfg.Inbounds = append(cfg.Inbounds, *in)
	}
	return cfg
}

// JSON renders the config the way xray reads it from disk.
func (c *ServerConfig) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
