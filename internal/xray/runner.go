package xray

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/xtls/xray-core/core"
	"github.com/xtls/xray-core/infra/conf"

	"xinbound/internal/inbound"
	"xinbound/internal/logger"

	// Import distro to register all protocols/transports
	_ "github.com/xtls/xray-core/main/distro/all"
)

// RecordError ties a build failure to the record that caused it.
type RecordError struct {
	Remark string
	Err    error
}

func (e *RecordError) Error() string { return fmt.Sprintf("%s: %v", e.Remark, e.Err) }
func (e *RecordError) Unwrap() error { return e.Err }

// CheckRecords builds every record through xray-core on its own and returns
// one error per record xray rejects.
func CheckRecords(records []*inbound.Record) []error {
	var errs []error
	for _, rec := range records {
		detour, err := ToInbound(rec)
		if err == nil {
			func() {
				restore := muteLogs()
				defer restore()
				_, err = detour.Build()
			}()
		}
		if err != nil {
			errs = append(errs, &RecordError{Remark: rec.Remark, Err: err})
		}
	}
	return errs
}

func parseConfig(cfg *ServerConfig) (*conf.Config, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var c conf.Config
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse rendered config: %w", err)
	}
	return &c, nil
}

// Verify builds the whole config and creates (without starting) an xray
// instance from it. Log output is silenced so verification touches no files.
func Verify(cfg *ServerConfig) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("CRITICAL: Xray Core Panic recovered: %v", r)
			err = fmt.Errorf("xray core panic: %v", r)
		}
	}()

	c, err := parseConfig(cfg)
	if err != nil {
		return err
	}
	c.LogConfig = &conf.LogConfig{
		LogLevel:  "none",
		AccessLog: "none",
		ErrorLog:  "none",
	}

	restore := muteLogs()
	defer restore()

	pbConfig, err := c.Build()
	if err != nil {
		return err
	}
	instance, err := core.New(pbConfig)
	if err != nil {
		return err
	}
	return instance.Close()
}

// Start runs the config in-process. The caller owns the returned instance.
func Start(cfg *ServerConfig) (instance *core.Instance, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("CRITICAL: Xray Core Panic recovered: %v", r)
			err = fmt.Errorf("xray core panic: %v", r)
			if instance != nil {
				instance.Close()
				instance = nil
			}
		}
	}()

	c, err := parseConfig(cfg)
	if err != nil {
		return nil, err
	}
	pbConfig, err := c.Build()
	if err != nil {
		return nil, err
	}
	instance, err = core.New(pbConfig)
	if err != nil {
		return nil, err
	}
	if err := instance.Start(); err != nil {
		instance.Close()
		return nil, err
	}
	return instance, nil
}

// CheckPortFree reports whether listen:port can be bound right now.
func CheckPortFree(listen string, port int) error {
	if listen == "" {
		listen = "0.0.0.0"
	}
	l, err := net.Listen("tcp", net.JoinHostPort(listen, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("port %d is not available: %w", port, err)
	}
	return l.Close()
}

func muteLogs() func() {
	origStdout := os.Stdout
	origStderr := os.Stderr

	devNull, _ := os.Open(os.DevNull)
	if devNull != nil {
		os.Stdout = devNull
		os.Stderr = devNull
	}

	return func() {
		os.Stdout = origStdout
		os.Stderr = origStderr
		if devNull != nil {
			devNull.Close()
		}
	}
}
